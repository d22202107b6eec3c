package record

import (
	"time"

	"luthier-backend/internal/parse"
)

// Document keys. Each field lists the canonical key first, then the keys
// written by older clients of the store.
var (
	keyID             = []string{"id"}
	keyServiceNumber  = []string{"serviceNumber", "numeroServico"}
	keyClient         = []string{"client", "cliente"}
	keyContact        = []string{"contact", "contacto"}
	keyInstrumentType = []string{"instrumentType", "tipoInstrumento"}
	keyBrand          = []string{"brand", "marca"}
	keyModel          = []string{"model", "modelo"}
	keySerialNumber   = []string{"serialNumber", "numeroSerie"}
	keyWorkToPerform  = []string{"workToPerform", "servicoEfetuar"}
	keyWorkPerformed  = []string{"workPerformed", "servicoEfetuado"}
	keyUpgrades       = []string{"upgrades"}
	keyOther          = []string{"other", "outros"}
	keyStrings        = []string{"stringsApplied", "cordasAplicadas"}
	keyTuning         = []string{"tuning", "afinacao"}
	keyAction12LowE   = []string{"action12LowE", "acao12LowE"}
	keyAction12HighE  = []string{"action12HighE", "acao12HighE"}
	keyAction1Fret    = []string{"action1Fret", "acao1Fret"}
	keyPickupHeight   = []string{"pickupHeight", "alturaPickups"}
	keyServices       = []string{"services", "servicos"}
	keyProducts       = []string{"products", "produtos"}
	keyIntakeDate     = []string{"intakeDate", "dataEntrada"}
	keyDeliveryDate   = []string{"deliveryDate", "dataEntrega"}
	keyCreatedAt      = []string{"createdAt", "criadoEm"}
	keyStatus         = []string{"status"}
	keyItemDesc       = []string{"description", "descricao", "nome"}
	keyItemPrice      = []string{"price", "preco"}
)

func lookup(doc map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := doc[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func text(doc map[string]any, keys []string) string {
	return parse.Text(lookup(doc, keys))
}

func date(doc map[string]any, keys []string) *time.Time {
	t, ok := parse.Date(lookup(doc, keys))
	if !ok {
		return nil
	}
	return &t
}

func items(doc map[string]any, keys []string) []LineItem {
	out := []LineItem{}
	raw, _ := lookup(doc, keys).([]any)
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, LineItem{
			Description: text(m, keyItemDesc),
			UnitPrice:   parse.Price(lookup(m, keyItemPrice)),
		})
	}
	return out
}

// Normalize builds a ServiceRecord from a stored document. It never fails:
// missing or malformed fields take their zero value, an unrecognised status
// becomes queued and the total is recomputed from the line items.
func Normalize(doc map[string]any) ServiceRecord {
	if doc == nil {
		doc = map[string]any{}
	}
	raw := text(doc, keyStatus)
	r := ServiceRecord{
		ID:             text(doc, keyID),
		ServiceNumber:  text(doc, keyServiceNumber),
		Client:         text(doc, keyClient),
		Contact:        text(doc, keyContact),
		InstrumentType: text(doc, keyInstrumentType),
		Brand:          text(doc, keyBrand),
		Model:          text(doc, keyModel),
		SerialNumber:   text(doc, keySerialNumber),
		WorkToPerform:  text(doc, keyWorkToPerform),
		WorkPerformed:  text(doc, keyWorkPerformed),
		Upgrades:       text(doc, keyUpgrades),
		Other:          text(doc, keyOther),
		Setup: Setup{
			StringsApplied: text(doc, keyStrings),
			Tuning:         text(doc, keyTuning),
			Action12LowE:   text(doc, keyAction12LowE),
			Action12HighE:  text(doc, keyAction12HighE),
			Action1Fret:    text(doc, keyAction1Fret),
			PickupHeight:   text(doc, keyPickupHeight),
		},
		Services:     items(doc, keyServices),
		Products:     items(doc, keyProducts),
		IntakeDate:   date(doc, keyIntakeDate),
		DeliveryDate: date(doc, keyDeliveryDate),
		CreatedAt:    date(doc, keyCreatedAt),
		Status:       ParseStatus(raw),
		RawStatus:    raw,
	}
	r.Recompute()
	return r
}

// Document renders r with the canonical keys. Prices are written as
// strings so cents survive a JSON round trip exactly; dates as RFC3339.
func (r ServiceRecord) Document() map[string]any {
	return map[string]any{
		keyID[0]:             r.ID,
		keyServiceNumber[0]:  r.ServiceNumber,
		keyClient[0]:         r.Client,
		keyContact[0]:        r.Contact,
		keyInstrumentType[0]: r.InstrumentType,
		keyBrand[0]:          r.Brand,
		keyModel[0]:          r.Model,
		keySerialNumber[0]:   r.SerialNumber,
		keyWorkToPerform[0]:  r.WorkToPerform,
		keyWorkPerformed[0]:  r.WorkPerformed,
		keyUpgrades[0]:       r.Upgrades,
		keyOther[0]:          r.Other,
		keyStrings[0]:        r.Setup.StringsApplied,
		keyTuning[0]:         r.Setup.Tuning,
		keyAction12LowE[0]:   r.Setup.Action12LowE,
		keyAction12HighE[0]:  r.Setup.Action12HighE,
		keyAction1Fret[0]:    r.Setup.Action1Fret,
		keyPickupHeight[0]:   r.Setup.PickupHeight,
		keyServices[0]:       itemDocs(r.Services),
		keyProducts[0]:       itemDocs(r.Products),
		keyIntakeDate[0]:     dateDoc(r.IntakeDate),
		keyDeliveryDate[0]:   dateDoc(r.DeliveryDate),
		keyCreatedAt[0]:      dateDoc(r.CreatedAt),
		keyStatus[0]:         r.RawStatus,
		"totalPrice":         r.TotalPrice.StringFixed(2),
	}
}

func itemDocs(items []LineItem) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{
			keyItemDesc[0]:  it.Description,
			keyItemPrice[0]: it.UnitPrice.StringFixed(2),
		})
	}
	return out
}

func dateDoc(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
