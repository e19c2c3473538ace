package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/julienschmidt/httprouter"

	apiContext "docketflow/internal/api/context"
	"docketflow/internal/platform/auth"
	"docketflow/internal/platform/authz"
	"docketflow/internal/platform/models"
	"docketflow/internal/platform/repositories"
)

var membershipCols = []string{"id", "tenant_id", "user_id", "role", "status", "invited_by", "created_at", "updated_at"}

func companyRequest(userID, tenantID string) *http.Request {
	req, _ := http.NewRequest("GET", "/api/v1/companies/"+tenantID, nil)
	ctx := context.WithValue(req.Context(), apiContext.Params, httprouter.Params{{Key: "company_id", Value: tenantID}})
	if userID != "" {
		ctx = context.WithValue(ctx, apiContext.Principal, &auth.Principal{UserID: userID})
	}
	return req.WithContext(ctx)
}

func TestMembershipMiddleware(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	members := repositories.NewMembershipRepository(sqlx.NewDb(db, "sqlmock"))
	mw := NewMembershipMiddleware(authz.New(members))

	t.Run("Active admin", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM memberships WHERE tenant_id = \\? AND user_id = \\?").
			WithArgs("ten_123", "usr_1").
			WillReturnRows(sqlmock.NewRows(membershipCols).AddRow("mem_1", "ten_123", "usr_1", "admin", "active", nil, 1, 1))

		rr := httptest.NewRecorder()
		handler := mw.Require("company_id", authz.AdminRoles...)(func(w http.ResponseWriter, r *http.Request) {
			m := MembershipFrom(r.Context())
			if m == nil || m.Role != models.RoleAdmin {
				t.Errorf("Expected admin membership in context, got %+v", m)
			}
			w.WriteHeader(http.StatusOK)
		})
		handler.ServeHTTP(rr, companyRequest("usr_1", "ten_123"))

		if rr.Code != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
		}
	})

	t.Run("Member lacks role", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM memberships").
			WithArgs("ten_123", "usr_2").
			WillReturnRows(sqlmock.NewRows(membershipCols).AddRow("mem_2", "ten_123", "usr_2", "member", "active", nil, 1, 1))

		rr := httptest.NewRecorder()
		handler := mw.Require("company_id", authz.AdminRoles...)(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		})
		handler.ServeHTTP(rr, companyRequest("usr_2", "ten_123"))

		if rr.Code != http.StatusForbidden {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusForbidden)
		}
	})

	t.Run("No membership", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM memberships").
			WithArgs("ten_999", "usr_1").
			WillReturnError(sql.ErrNoRows)

		rr := httptest.NewRecorder()
		handler := mw.Require("company_id")(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		})
		handler.ServeHTTP(rr, companyRequest("usr_1", "ten_999"))

		if rr.Code != http.StatusForbidden {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusForbidden)
		}
	})

	t.Run("Backend failure", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM memberships").
			WithArgs("ten_123", "usr_1").
			WillReturnError(sql.ErrConnDone)

		rr := httptest.NewRecorder()
		handler := mw.Require("company_id")(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		})
		handler.ServeHTTP(rr, companyRequest("usr_1", "ten_123"))

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusInternalServerError)
		}
	})

	t.Run("No principal", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler := mw.Require("company_id")(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		})
		handler.ServeHTTP(rr, companyRequest("", "ten_123"))

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusUnauthorized)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
