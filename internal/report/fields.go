package report

import (
	"fmt"
	"strings"
	"time"

	"luthier-backend/internal/record"
)

// Kind selects the document layout.
type Kind string

const (
	KindIntake   Kind = "intake"
	KindDelivery Kind = "delivery"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindIntake, KindDelivery:
		return k, nil
	default:
		return "", fmt.Errorf("unknown report kind %q", s)
	}
}

type layout struct {
	title    string
	prefix   string
	fields   []field
	disclaim string
	signer   string
}

type field struct {
	label string
	value func(record.ServiceRecord) []string
}

func one(f func(record.ServiceRecord) string) func(record.ServiceRecord) []string {
	return func(r record.ServiceRecord) []string { return []string{f(r)} }
}

func dateValue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006")
}

func lineItems(items []record.LineItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, fmt.Sprintf("%s - %s €", it.Description, it.UnitPrice.StringFixed(2)))
	}
	return out
}

var (
	fClient         = field{"Cliente", one(func(r record.ServiceRecord) string { return r.Client })}
	fServiceNumber  = field{"Número de Serviço", one(func(r record.ServiceRecord) string { return r.ServiceNumber })}
	fInstrumentType = field{"Instrumento", one(func(r record.ServiceRecord) string { return r.InstrumentType })}
	fBrand          = field{"Marca", one(func(r record.ServiceRecord) string { return r.Brand })}
	fModel          = field{"Modelo", one(func(r record.ServiceRecord) string { return r.Model })}
	fSerialNumber   = field{"Número de Série", one(func(r record.ServiceRecord) string { return r.SerialNumber })}
	fServices       = field{"Serviços", func(r record.ServiceRecord) []string { return lineItems(r.Services) }}
	fProducts       = field{"Produtos", func(r record.ServiceRecord) []string { return lineItems(r.Products) }}
	fTotal          = field{"Preço Total", one(func(r record.ServiceRecord) string { return r.TotalPrice.StringFixed(2) + " €" })}
)

var layouts = map[Kind]layout{
	KindIntake: {
		title:  "Ficha de Receção de Instrumento",
		prefix: "rececao_",
		fields: []field{
			fClient, fServiceNumber, fInstrumentType, fBrand, fModel, fSerialNumber,
			{"Serviço a Efetuar", one(func(r record.ServiceRecord) string { return r.WorkToPerform })},
			{"Data de Entrada", one(func(r record.ServiceRecord) string { return dateValue(r.IntakeDate) })},
			fServices, fProducts, fTotal,
		},
		disclaim: "Preço dos serviços sem IVA incluído. O preço indicado é uma previsão, podendo ser necessário ajustes.",
	},
	KindDelivery: {
		title:  "Relatório do Guitar Tech",
		prefix: "entrega_",
		fields: []field{
			fClient, fServiceNumber, fInstrumentType, fBrand, fModel, fSerialNumber,
			{"Serviço efetuado", one(func(r record.ServiceRecord) string { return r.WorkPerformed })},
			{"Upgrades", one(func(r record.ServiceRecord) string { return r.Upgrades })},
			{"Outros", one(func(r record.ServiceRecord) string { return r.Other })},
			{"Cordas aplicadas", one(func(r record.ServiceRecord) string { return r.Setup.StringsApplied })},
			{"Afinação", one(func(r record.ServiceRecord) string { return r.Setup.Tuning })},
			{"Ação 12º fret E grave", one(func(r record.ServiceRecord) string { return r.Setup.Action12LowE })},
			{"Ação 12º fret E aguda", one(func(r record.ServiceRecord) string { return r.Setup.Action12HighE })},
			{"Ação 1º traste", one(func(r record.ServiceRecord) string { return r.Setup.Action1Fret })},
			{"Altura dos pickups", one(func(r record.ServiceRecord) string { return r.Setup.PickupHeight })},
			{"Data de Entrega", one(func(r record.ServiceRecord) string { return dateValue(r.DeliveryDate) })},
			fServices, fProducts, fTotal,
		},
		signer: "O Guitar Tech",
	},
}
