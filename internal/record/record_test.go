package record

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestNormalize_LegacyDocument(t *testing.T) {
	doc := map[string]any{
		"cliente":         "Ana Maria",
		"contacto":        "912345678",
		"numeroServico":   "2024-017",
		"tipoInstrumento": "Guitarra",
		"marca":           "Fender",
		"modelo":          "Stratocaster",
		"servicoEfetuar":  "Setup completo",
		"dataEntrada":     "2024-03-05",
		"criadoEm":        map[string]any{"seconds": float64(1709251200)},
		"status":          "Pronto para entrega",
		"servicos": []any{
			map[string]any{"descricao": "Setup", "preco": "40,50"},
			map[string]any{"descricao": "Trastes", "preco": 60},
		},
		"produtos": []any{
			map[string]any{"nome": "Cordas", "preco": 12.3},
			"not an item",
		},
		"precoTotal": 9999,
	}

	r := Normalize(doc)

	assert.Equal(t, "Ana Maria", r.Client)
	assert.Equal(t, "2024-017", r.ServiceNumber)
	assert.Equal(t, "Fender", r.Brand)
	assert.Equal(t, StatusReadyForDelivery, r.Status)
	assert.Equal(t, StatusReadyForDelivery, r.CanonicalStatus())
	require.Len(t, r.Services, 2)
	require.Len(t, r.Products, 1)
	assert.Equal(t, "Cordas", r.Products[0].Description)
	assert.True(t, decimal.RequireFromString("112.80").Equal(r.TotalPrice), "got %s", r.TotalPrice)
	assert.True(t, decimal.RequireFromString("100.50").Equal(r.ServicesTotal()))
	require.NotNil(t, r.IntakeDate)
	assert.True(t, day(2024, 3, 5).Equal(*r.IntakeDate))
	assert.Equal(t, r.IntakeDate, r.ReferenceDate())
}

func TestNormalize_Defaults(t *testing.T) {
	for _, doc := range []map[string]any{nil, {}, {"status": "", "servicos": "nope", "dataEntrada": "ontem"}} {
		r := Normalize(doc)
		assert.Equal(t, StatusQueued, r.Status)
		assert.Equal(t, StatusUnknown, r.CanonicalStatus())
		assert.NotNil(t, r.Services)
		assert.NotNil(t, r.Products)
		assert.Empty(t, r.Services)
		assert.Nil(t, r.IntakeDate)
		assert.Nil(t, r.ReferenceDate())
		assert.True(t, r.TotalPrice.IsZero())
	}
}

func TestNormalize_ForeignStatusKeptForCounting(t *testing.T) {
	r := Normalize(map[string]any{"status": "arquivado"})
	assert.Equal(t, StatusQueued, r.Status)
	assert.Equal(t, "arquivado", r.RawStatus)
	assert.Equal(t, StatusUnknown, r.CanonicalStatus())
}

func TestNormalize_Idempotent(t *testing.T) {
	docs := []map[string]any{
		{},
		{
			"id":              "abc",
			"client":          "João",
			"intakeDate":      "2024-01-10T10:30:00Z",
			"deliveryDate":    float64(time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC).UnixMilli()),
			"status":          "entregue",
			"services":        []any{map[string]any{"description": "Regulação", "price": 35.999}},
			"cordasAplicadas": "D'Addario 10-46",
		},
		{"intakeDate": float64(1e15), "deliveryDate": map[string]any{"seconds": float64(-1e13)}},
	}
	for _, doc := range docs {
		once := Normalize(doc)
		twice := Normalize(once.Document())
		assert.Equal(t, once.Document(), twice.Document())
		assert.Equal(t, once.Status, twice.Status)
		assert.True(t, once.TotalPrice.Equal(twice.TotalPrice))
	}
}

func TestNormalize_RejectsOutOfRangeValues(t *testing.T) {
	r := Normalize(map[string]any{
		"intakeDate": float64(1e15),
		"services": []any{
			map[string]any{"description": "Trastes", "price": "1e200000000"},
			map[string]any{"description": "Cordas", "price": "12,50"},
		},
	})
	assert.Nil(t, r.IntakeDate)
	assert.Equal(t, "12.5", r.TotalPrice.String())
}

func TestReferenceDate_FallsBackToCreatedAt(t *testing.T) {
	r := ServiceRecord{CreatedAt: day(2024, 2, 1)}
	assert.Equal(t, r.CreatedAt, r.ReferenceDate())
	r.IntakeDate = day(2024, 1, 1)
	assert.Equal(t, r.IntakeDate, r.ReferenceDate())
}

func TestTurnaroundDays(t *testing.T) {
	r := ServiceRecord{IntakeDate: day(2024, 1, 1), DeliveryDate: day(2024, 1, 4)}
	d, ok := r.TurnaroundDays()
	assert.True(t, ok)
	assert.Equal(t, 3.0, d)

	r.DeliveryDate = day(2023, 12, 31)
	_, ok = r.TurnaroundDays()
	assert.False(t, ok)

	r.DeliveryDate = nil
	_, ok = r.TurnaroundDays()
	assert.False(t, ok)
}

func TestCanonicalStatus(t *testing.T) {
	testCases := []struct {
		input    string
		expected Status
	}{
		{"pronto para entrega", StatusReadyForDelivery},
		{"  PRONTO  ", StatusReadyForDelivery},
		{"ready-for-delivery", StatusReadyForDelivery},
		{"Entregue", StatusDelivered},
		{"em manutenção", StatusInMaintenance},
		{"A aguardar peças", StatusAwaitingParts},
		{"em fila de espera", StatusQueued},
		{"", StatusUnknown},
		{"perdido", StatusUnknown},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, CanonicalStatus(tc.input))
		})
	}
}

func TestSetStatus(t *testing.T) {
	var r ServiceRecord
	r.SetStatus(StatusDelivered)
	assert.Equal(t, StatusDelivered, r.Status)
	assert.Equal(t, "entregue", r.RawStatus)
	assert.True(t, StatusDelivered.Valid())
	assert.False(t, StatusUnknown.Valid())
	assert.False(t, Status("bogus").Valid())
}
