package metrics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"luthier-backend/internal/record"
)

// PendingLimit caps the open-jobs list on the dashboard.
const PendingLimit = 10

// StatusCount is one bar of the status histogram.
type StatusCount struct {
	Status record.Status `json:"status"`
	Label  string        `json:"label"`
	Count  int           `json:"count"`
}

// Metrics is the dashboard summary of a record set. Month buckets are
// indexed by calendar month (0 = January) regardless of year.
type Metrics struct {
	CreatedPerMonth   [12]int `json:"createdPerMonth"`
	DeliveredPerMonth [12]int `json:"deliveredPerMonth"`

	StatusHistogram []StatusCount `json:"statusHistogram"`

	TotalCount          int     `json:"totalCount"`
	DeliveredCount      int     `json:"deliveredCount"`
	DeliveryRatePercent float64 `json:"deliveryRatePercent"`

	// TotalRevenue counts services only.
	TotalRevenue             decimal.Decimal `json:"totalRevenue"`
	TotalServicesAndProducts decimal.Decimal `json:"totalServicesAndProducts"`

	AverageTurnaroundDays float64 `json:"averageTurnaroundDays"`

	TopInstrumentTypes []RankEntry `json:"topInstrumentTypes"`
	TopClients         []RankEntry `json:"topClients"`
	TopBrands          []RankEntry `json:"topBrands"`

	Pending []record.ServiceRecord `json:"pending"`
}

// Aggregate computes Metrics over records. An empty input yields zeros.
func Aggregate(records []record.ServiceRecord) Metrics {
	m := Metrics{
		TotalCount:               len(records),
		TotalRevenue:             decimal.Zero,
		TotalServicesAndProducts: decimal.Zero,
	}

	counts := make(map[record.Status]int, len(record.Statuses)+1)
	var turnaround float64
	var turnaroundN int

	for _, r := range records {
		status := r.CanonicalStatus()
		counts[status]++
		delivered := status == record.StatusDelivered
		if delivered {
			m.DeliveredCount++
		}

		if ref := r.ReferenceDate(); ref != nil {
			month := int(ref.Month()) - 1
			m.CreatedPerMonth[month]++
			if delivered {
				m.DeliveredPerMonth[month]++
			}
		}

		services := r.ServicesTotal()
		m.TotalRevenue = m.TotalRevenue.Add(services)
		m.TotalServicesAndProducts = m.TotalServicesAndProducts.Add(services).Add(r.ProductsTotal())

		if days, ok := r.TurnaroundDays(); ok {
			turnaround += days
			turnaroundN++
		}
	}

	m.StatusHistogram = histogram(counts)
	if m.TotalCount > 0 {
		m.DeliveryRatePercent = round1(float64(m.DeliveredCount) / float64(m.TotalCount) * 100)
	}
	if turnaroundN > 0 {
		m.AverageTurnaroundDays = round1(turnaround / float64(turnaroundN))
	}

	m.TopInstrumentTypes = TopN(records, Fields["instrumentType"], DefaultTopN)
	m.TopClients = TopN(records, Fields["client"], DefaultTopN)
	m.TopBrands = TopN(records, Fields["brand"], DefaultTopN)
	m.Pending = Pending(records, PendingLimit)
	return m
}

func histogram(counts map[record.Status]int) []StatusCount {
	out := make([]StatusCount, 0, len(record.Statuses)+1)
	for _, s := range record.Statuses {
		out = append(out, StatusCount{Status: s, Label: s.Label(), Count: counts[s]})
	}
	if n := counts[record.StatusUnknown]; n > 0 {
		out = append(out, StatusCount{Status: record.StatusUnknown, Label: record.StatusUnknown.Label(), Count: n})
	}
	return out
}

// Pending lists up to limit open jobs, those neither delivered nor ready
// for delivery, oldest first. Undated records sort last.
func Pending(records []record.ServiceRecord, limit int) []record.ServiceRecord {
	out := []record.ServiceRecord{}
	for _, r := range records {
		switch r.CanonicalStatus() {
		case record.StatusDelivered, record.StatusReadyForDelivery:
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ReferenceDate(), out[j].ReferenceDate()
		if a == nil || b == nil {
			return a != nil
		}
		return a.Before(*b)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
