package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"luthier-backend/internal/record"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

var recordColumns = []string{"id", "tenant_id", "document", "created_at", "updated_at"}

func TestGormStore_Records(t *testing.T) {
	created := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	legacyDoc := []byte(`{"cliente":"Rui","status":"pronto para entrega","servicos":[{"descricao":"Setup","preco":"30"}],"precoTotal":999}`)

	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		run              func(t *testing.T, s Store)
	}{
		{
			name: "Get normalizes a legacy document",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "record_documents" WHERE id = $1 AND tenant_id = $2`)).
					WillReturnRows(sqlmock.NewRows(recordColumns).AddRow("r1", "t1", legacyDoc, created, created))
			},
			run: func(t *testing.T, s Store) {
				r, err := s.GetRecord(context.Background(), "t1", "r1")
				require.NoError(t, err)
				assert.Equal(t, "r1", r.ID)
				assert.Equal(t, "Rui", r.Client)
				assert.Equal(t, record.StatusReadyForDelivery, r.Status)
				assert.True(t, decimal.NewFromInt(30).Equal(r.TotalPrice))
				require.NotNil(t, r.CreatedAt)
				assert.True(t, created.Equal(*r.CreatedAt))
			},
		},
		{
			name: "Get of a missing record is ErrNotFound",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "record_documents"`)).
					WillReturnRows(sqlmock.NewRows(recordColumns))
			},
			run: func(t *testing.T, s Store) {
				_, err := s.GetRecord(context.Background(), "t1", "missing")
				assert.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name: "List is scoped to the tenant",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "record_documents" WHERE tenant_id = $1 ORDER BY created_at ASC`)).
					WithArgs("t1").
					WillReturnRows(sqlmock.NewRows(recordColumns).
						AddRow("r1", "t1", legacyDoc, created, created).
						AddRow("r2", "t1", []byte(`not json`), created, created))
			},
			run: func(t *testing.T, s Store) {
				records, err := s.ListRecords(context.Background(), "t1")
				require.NoError(t, err)
				require.Len(t, records, 2)
				assert.Equal(t, "r2", records[1].ID)
				assert.Equal(t, record.StatusQueued, records[1].Status)
			},
		},
		{
			name: "Create assigns an id and recomputes the total",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "record_documents"`)).
					WithArgs(Any{}, "t1", Any{}, Any{}, Any{}).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			run: func(t *testing.T, s Store) {
				r, err := s.CreateRecord(context.Background(), "t1", record.ServiceRecord{
					Client:     "Ana",
					Services:   []record.LineItem{{Description: "Setup", UnitPrice: decimal.NewFromInt(40)}},
					Products:   []record.LineItem{{Description: "Cordas", UnitPrice: decimal.NewFromInt(10)}},
					TotalPrice: decimal.NewFromInt(1),
				})
				require.NoError(t, err)
				assert.NotEmpty(t, r.ID)
				assert.NotNil(t, r.CreatedAt)
				assert.Equal(t, record.StatusQueued, r.Status)
				assert.Equal(t, "em fila de espera", r.RawStatus)
				assert.True(t, decimal.NewFromInt(50).Equal(r.TotalPrice))
			},
		},
		{
			name: "Update of a missing record is ErrNotFound",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "record_documents" SET`)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
			},
			run: func(t *testing.T, s Store) {
				_, err := s.UpdateRecord(context.Background(), "t1", record.ServiceRecord{ID: "missing"})
				assert.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name: "Delete is scoped to the tenant",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "record_documents" WHERE id = $1 AND tenant_id = $2`)).
					WithArgs("r1", "t1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			run: func(t *testing.T, s Store) {
				assert.NoError(t, s.DeleteRecord(context.Background(), "t1", "r1"))
			},
		},
		{
			name: "Missing profile is not an error",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "issuer_profiles" WHERE tenant_id = $1`)).
					WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "name"}))
			},
			run: func(t *testing.T, s Store) {
				p, err := s.GetProfile(context.Background(), "t1")
				assert.NoError(t, err)
				assert.Nil(t, p)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			store := NewGormStore(gormDB)

			tc.mockExpectations(mock)
			tc.run(t, store)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPrepareForSave_StatusPhrase(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	r := prepareForSave(record.ServiceRecord{Status: record.StatusDelivered, RawStatus: "em fila de espera"}, now)
	assert.Equal(t, "entregue", r.RawStatus)

	r = prepareForSave(record.ServiceRecord{RawStatus: "Pronto"}, now)
	assert.Equal(t, record.StatusReadyForDelivery, r.Status)
	assert.Equal(t, "Pronto", r.RawStatus)
	assert.True(t, now.Equal(*r.CreatedAt))
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
