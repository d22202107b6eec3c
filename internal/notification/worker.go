package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"luthier-backend/internal/model"
	"luthier-backend/internal/record"
	"luthier-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// PushMessage is shown to the shop's staff as a browser notification.
type PushMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// WhatsAppMessage is sent to a client's phone.
type WhatsAppMessage struct {
	To   string
	Body string
}

// Job is one unit of notification work for a tenant. Either part may be nil.
type Job struct {
	TenantID string
	Push     *PushMessage
	WhatsApp *WhatsAppMessage
}

// ReadyJob announces that r is ready for delivery: staff get a push and,
// when the shop enabled it and the record has a phone, the client gets the
// profile's message on WhatsApp.
func ReadyJob(tenantID string, r record.ServiceRecord, profile *model.IssuerProfile, countryCode string) Job {
	job := Job{
		TenantID: tenantID,
		Push: &PushMessage{
			Title: "Pronto para entrega",
			Body:  fmt.Sprintf("%s: %s %s", r.Client, r.InstrumentType, r.ServiceNumber),
			URL:   "/records/" + r.ID,
		},
	}
	if profile == nil || !profile.NotifyEnabled {
		return job
	}
	if to := PhoneDigits(r.Contact, countryCode); to != "" {
		job.WhatsApp = &WhatsAppMessage{To: to, Body: Render(profile.NotificationTemplate, r)}
	}
	return job
}

// DigestJob summarises the open jobs of a tenant, oldest first.
func DigestJob(tenantID string, pending []record.ServiceRecord) Job {
	body := fmt.Sprintf("%d serviços em aberto", len(pending))
	if len(pending) > 0 {
		oldest := pending[0]
		body += fmt.Sprintf("; o mais antigo é de %s", oldest.Client)
		if d := oldest.ReferenceDate(); d != nil {
			body += " desde " + d.Format("02/01/2006")
		}
	}
	return Job{
		TenantID: tenantID,
		Push:     &PushMessage{Title: "Resumo diário", Body: body, URL: "/dashboard"},
	}
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size     int
	jobs     chan Job
	subs     store.SubscriptionStore
	webpush  *webpush.Options
	sender   NotificationSender
	whatsapp MessageSender
	log      *zap.Logger
}

// NewWorkerPool creates a new worker pool. A nil webpushOptions disables
// browser pushes and a nil whatsapp disables client messages.
func NewWorkerPool(size int, subs store.SubscriptionStore, webpushOptions *webpush.Options, whatsapp MessageSender, log *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:     size,
		jobs:     make(chan Job, size*16),
		subs:     subs,
		webpush:  webpushOptions,
		sender:   &WebPushSender{},
		whatsapp: whatsapp,
		log:      log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.log.With(zap.Int("worker", id))
	log.Debug("notification worker started")
	for {
		select {
		case job := <-wp.jobs:
			wp.process(ctx, log, job)
		case <-ctx.Done():
			log.Debug("notification worker shutting down")
			return
		}
	}
}

// Dispatch queues a job. It never blocks the caller: when the queue is full
// the job is dropped and false is returned.
func (wp *WorkerPool) Dispatch(job Job) bool {
	select {
	case wp.jobs <- job:
		return true
	default:
		wp.log.Warn("notification queue full, dropping job", zap.String("tenant_id", job.TenantID))
		return false
	}
}

func (wp *WorkerPool) process(ctx context.Context, log *zap.Logger, job Job) {
	log = log.With(zap.String("tenant_id", job.TenantID))

	if job.WhatsApp != nil && wp.whatsapp != nil {
		sid, err := wp.whatsapp.SendWhatsApp(job.WhatsApp.To, job.WhatsApp.Body)
		if err != nil {
			log.Error("failed to send whatsapp message", zap.Error(err))
		} else {
			log.Info("whatsapp message sent", zap.String("sid", sid))
		}
	}

	if job.Push == nil || wp.webpush == nil {
		return
	}
	payload, err := json.Marshal(job.Push)
	if err != nil {
		log.Error("failed to encode push payload", zap.Error(err))
		return
	}

	subscriptions, err := wp.subs.ListSubscriptions(ctx, job.TenantID)
	if err != nil {
		log.Error("failed to list subscriptions", zap.Error(err))
		return
	}
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, log, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, log *zap.Logger, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Error("failed to send push notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.subs.DeleteSubscription(ctx, "", sub.Endpoint); err != nil {
			log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}

// PushOptions builds the webpush options from the VAPID keys. It returns nil
// when no key pair is configured.
func PushOptions(publicKey, privateKey, subject string, ttl time.Duration) *webpush.Options {
	if publicKey == "" || privateKey == "" {
		return nil
	}
	return &webpush.Options{
		Subscriber:      subject,
		VAPIDPublicKey:  publicKey,
		VAPIDPrivateKey: privateKey,
		TTL:             int(ttl.Seconds()),
	}
}
