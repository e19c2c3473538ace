package ingestion

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/models"
	"docketflow/internal/platform/repositories"
)

func TestRecords_ListAndCorrect(t *testing.T) {
	f := newFixture(t)
	out, err := f.orch.Process(context.Background(), validRequest())
	require.NoError(t, err)

	auditLog := &fakeAudit{}
	records := NewRecords(repositories.NewDocketRepository(f.db), auditLog)

	list, err := records.List(context.Background(), testTenant, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, out.DocketID, list[0].ID)

	corrected, err := records.Correct(context.Background(), testTenant, out.DocketID, "usr_admin", Correction{
		SupplierName: strPtr("  Fresh Produce Company Ltd "),
		DeliveryDate: strPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "Fresh Produce Company Ltd", *corrected.SupplierName)
	assert.Nil(t, corrected.DeliveryDate)
	assert.Equal(t, "DK-20931", *corrected.DocketNumber)

	stored, err := repositories.NewDocketRepository(f.db).GetByID(context.Background(), testTenant, out.DocketID)
	require.NoError(t, err)
	assert.Equal(t, "Fresh Produce Company Ltd", *stored.SupplierName)
	assert.Equal(t, models.DocketCompleted, stored.Status)

	require.Len(t, auditLog.entries, 1)
	assert.Equal(t, []string{"supplier_name", "delivery_date"}, auditLog.entries[0].Metadata["fields"])
}

func TestRecords_CorrectErrors(t *testing.T) {
	f := newFixture(t)
	records := NewRecords(repositories.NewDocketRepository(f.db), nil)

	_, err := records.Correct(context.Background(), testTenant, "dkt_missing", "usr_1", Correction{})
	var verr *errors.ValidationError
	assert.True(t, stderrors.As(err, &verr))

	_, err = records.Correct(context.Background(), testTenant, "dkt_missing", "usr_1", Correction{DeliveryDate: strPtr("14/03/2025")})
	assert.True(t, stderrors.As(err, &verr))

	_, err = records.Correct(context.Background(), testTenant, "dkt_missing", "usr_1", Correction{DocketNumber: strPtr("DK-1")})
	var nerr *errors.NotFoundError
	assert.True(t, stderrors.As(err, &nerr))
}

func TestRecords_ListClampsPage(t *testing.T) {
	records := NewRecords(repositories.NewDocketRepository(nil), nil)

	_, err := records.List(context.Background(), testTenant, 1000, -1)
	assert.True(t, errors.IsUpstream(err))
}
