package notification

import (
	"errors"
	"net/url"
	"strings"
	"unicode"

	"luthier-backend/internal/record"
)

// DefaultTemplate is used when the shop has not written its own message.
const DefaultTemplate = "Olá {client}, o seu instrumento {instrument} está pronto para entrega (serviço {serviceNumber})."

// ErrNoContact is returned when a record has no usable phone number.
var ErrNoContact = errors.New("record has no phone contact")

// Render fills the placeholders of template with the fields of r. An empty
// template falls back to DefaultTemplate.
func Render(template string, r record.ServiceRecord) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}
	instrument := strings.Join(nonEmpty(r.InstrumentType, r.Brand, r.Model), " ")
	return strings.NewReplacer(
		"{client}", r.Client,
		"{instrument}", instrument,
		"{serviceNumber}", r.ServiceNumber,
	).Replace(template)
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// PhoneDigits reduces a stored contact to international digits. Local
// numbers (nine digits or fewer) get countryCode prepended; a leading +
// or 00 marks a number that already carries its country.
func PhoneDigits(contact, countryCode string) string {
	contact = strings.TrimSpace(contact)
	international := strings.HasPrefix(contact, "+")

	var b strings.Builder
	for _, r := range contact {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if !international && strings.HasPrefix(digits, "00") {
		digits = digits[2:]
		international = true
	}
	if !international && len(digits) <= 9 {
		digits = countryCode + digits
	}
	return digits
}

// WhatsAppLink builds the click-to-chat link that opens a conversation with
// the client and message prefilled.
func WhatsAppLink(contact, message, countryCode string) (string, error) {
	digits := PhoneDigits(contact, countryCode)
	if digits == "" {
		return "", ErrNoContact
	}
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + digits + "?text=" + text, nil
}
