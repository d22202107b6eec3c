package notification

import (
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"luthier-backend/config"
)

// MessageSender delivers a text message to a client's phone.
type MessageSender interface {
	SendWhatsApp(to, body string) (string, error)
}

// TwilioSender sends WhatsApp messages through the Twilio REST API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSender creates a sender from the WhatsApp credentials. It returns
// nil when they are incomplete.
func NewTwilioSender(cfg config.WhatsAppConfig) *TwilioSender {
	if !cfg.Enabled() {
		return nil
	}
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		from: cfg.From,
	}
}

// SendWhatsApp sends body to the international number digits in to and
// returns the message SID.
func (s *TwilioSender) SendWhatsApp(to, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:+" + to)
	params.SetFrom("whatsapp:" + s.from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio create message: %w", err)
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}
