package record

import "strings"

// Status is the workflow state of a repair job.
type Status string

const (
	StatusQueued           Status = "queued"
	StatusAwaitingParts    Status = "awaiting-parts"
	StatusInMaintenance    Status = "in-maintenance"
	StatusReadyForDelivery Status = "ready-for-delivery"
	StatusDelivered        Status = "delivered"
	StatusUnknown          Status = "unknown"
)

// Statuses lists the workflow states in display order.
var Statuses = []Status{
	StatusQueued,
	StatusAwaitingParts,
	StatusInMaintenance,
	StatusReadyForDelivery,
	StatusDelivered,
}

// labels are the phrases the shop stores and prints for each status.
var labels = map[Status]string{
	StatusQueued:           "em fila de espera",
	StatusAwaitingParts:    "a aguardar peças",
	StatusInMaintenance:    "em manutenção",
	StatusReadyForDelivery: "pronto para entrega",
	StatusDelivered:        "entregue",
	StatusUnknown:          "desconhecido",
}

var byText = func() map[string]Status {
	m := make(map[string]Status, len(labels)*2+1)
	for s, label := range labels {
		if s == StatusUnknown {
			continue
		}
		m[string(s)] = s
		m[label] = s
	}
	// Older dashboards stored the short form.
	m["pronto"] = StatusReadyForDelivery
	return m
}()

// Label returns the stored/display phrase for s.
func (s Status) Label() string {
	if label, ok := labels[s]; ok {
		return label
	}
	return labels[StatusUnknown]
}

// Valid reports whether s is one of the workflow states.
func (s Status) Valid() bool {
	_, ok := byText[string(s)]
	return ok && s != StatusUnknown
}

// CanonicalStatus maps stored status text to its tag for counting. Both the
// tags and the shop's phrases are recognised, case-insensitively; empty or
// unrecognised text is StatusUnknown.
func CanonicalStatus(text string) Status {
	key := strings.ToLower(strings.TrimSpace(text))
	if key == "" {
		return StatusUnknown
	}
	if s, ok := byText[key]; ok {
		return s
	}
	return StatusUnknown
}

// ParseStatus is CanonicalStatus for the workflow: anything unknown is a
// job still waiting in the queue.
func ParseStatus(text string) Status {
	if s := CanonicalStatus(text); s != StatusUnknown {
		return s
	}
	return StatusQueued
}
