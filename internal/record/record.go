// Package record holds the canonical in-memory shape of a repair job and
// the normalizer that builds it from loosely typed stored documents.
package record

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one priced service or product on a job.
type LineItem struct {
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"price"`
}

// Setup is the instrument setup sheet filled in at delivery.
type Setup struct {
	StringsApplied string `json:"stringsApplied"`
	Tuning         string `json:"tuning"`
	Action12LowE   string `json:"action12LowE"`
	Action12HighE  string `json:"action12HighE"`
	Action1Fret    string `json:"action1Fret"`
	PickupHeight   string `json:"pickupHeight"`
}

// ServiceRecord is one repair job.
type ServiceRecord struct {
	ID            string `json:"id"`
	ServiceNumber string `json:"serviceNumber"`

	Client  string `json:"client"`
	Contact string `json:"contact"`

	InstrumentType string `json:"instrumentType"`
	Brand          string `json:"brand"`
	Model          string `json:"model"`
	SerialNumber   string `json:"serialNumber"`

	WorkToPerform string `json:"workToPerform"`
	WorkPerformed string `json:"workPerformed"`
	Upgrades      string `json:"upgrades"`
	Other         string `json:"other"`
	Setup         Setup  `json:"setup"`

	Services []LineItem `json:"services"`
	Products []LineItem `json:"products"`

	IntakeDate   *time.Time `json:"intakeDate"`
	DeliveryDate *time.Time `json:"deliveryDate"`
	CreatedAt    *time.Time `json:"createdAt"`

	// Status drives the workflow and defaults to queued. RawStatus is the
	// stored text, kept verbatim so aggregation can tell missing or foreign
	// values apart from a real queued job.
	Status    Status `json:"status"`
	RawStatus string `json:"rawStatus"`

	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// ReferenceDate is the date used to bucket a record: the intake date, else
// the creation timestamp, else nil.
func (r ServiceRecord) ReferenceDate() *time.Time {
	if r.IntakeDate != nil {
		return r.IntakeDate
	}
	return r.CreatedAt
}

// CanonicalStatus is the status tag used for counting.
func (r ServiceRecord) CanonicalStatus() Status {
	return CanonicalStatus(r.RawStatus)
}

// SetStatus moves the record to s and stores its display phrase.
func (r *ServiceRecord) SetStatus(s Status) {
	r.Status = s
	r.RawStatus = s.Label()
}

// ServicesTotal sums the service line items.
func (r ServiceRecord) ServicesTotal() decimal.Decimal {
	return sum(r.Services)
}

// ProductsTotal sums the product line items.
func (r ServiceRecord) ProductsTotal() decimal.Decimal {
	return sum(r.Products)
}

// Recompute refreshes TotalPrice from the line items. Every save goes
// through it; a persisted total is never trusted.
func (r *ServiceRecord) Recompute() {
	r.TotalPrice = r.ServicesTotal().Add(r.ProductsTotal())
}

// TurnaroundDays is the elapsed days from intake to delivery. ok is false
// when either date is missing or delivery precedes intake.
func (r ServiceRecord) TurnaroundDays() (float64, bool) {
	if r.IntakeDate == nil || r.DeliveryDate == nil {
		return 0, false
	}
	d := r.DeliveryDate.Sub(*r.IntakeDate)
	if d < 0 {
		return 0, false
	}
	return d.Hours() / 24, true
}

func sum(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice)
	}
	return total
}
