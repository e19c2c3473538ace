package handlers

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_NotConfigured(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(nil, nil).Check(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"database":"not_configured"`)
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer raw.Close()
	mock.ExpectPing().WillReturnError(stderrors.New("dial tcp 127.0.0.1:5432: connection refused"))

	rr := httptest.NewRecorder()
	NewHealthHandler(sqlx.NewDb(raw, "postgres"), nil).Check(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rr.Body.String(), `"database":"unhealthy: dial tcp 127.0.0.1:5432: connection refused"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
