package internal

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"luthier-backend/config"
	"luthier-backend/internal/api"
	"luthier-backend/internal/auth"
	"luthier-backend/internal/db"
	"luthier-backend/internal/digest"
	"luthier-backend/internal/model"
	"luthier-backend/internal/mw"
	"luthier-backend/internal/notification"
	"luthier-backend/internal/store"
)

type fakeWhatsApp struct {
	sent chan string
}

func (f *fakeWhatsApp) SendWhatsApp(to, body string) (string, error) {
	f.sent <- to + ": " + body
	return "SM1", nil
}

// pushEndpoint is a browser push service that answers with the queued
// status codes, then 201.
type pushEndpoint struct {
	mu       sync.Mutex
	statuses []int
	received chan struct{}
}

func (p *pushEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	status := http.StatusCreated
	if len(p.statuses) > 0 {
		status, p.statuses = p.statuses[0], p.statuses[1:]
	}
	p.mu.Unlock()
	w.WriteHeader(status)
	p.received <- struct{}{}
}

func browserKeys(t *testing.T) (p256dh, authSecret string) {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		base64.RawURLEncoding.EncodeToString(secret)
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	var zero T
	return zero
}

// TestShopLifecycle drives a shop from sign-up to the daily digest: a job is
// registered, becomes ready (client and staff are notified), another job
// waits in the queue and the digest reports it, at which point the staff
// browser's subscription turns out to be expired and is dropped.
func TestShopLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testDB, err := gorm.Open(sqlite.Open("file:shop_lifecycle?mode=memory&cache=shared"),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))
	appStore := store.NewGormStore(testDB)

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	webpushOptions := notification.PushOptions(publicKey, privateKey, "mailto:oficina@example.com", time.Minute)

	browser := &pushEndpoint{received: make(chan struct{}, 4)}
	pushServer := httptest.NewServer(browser)
	defer pushServer.Close()

	whatsapp := &fakeWhatsApp{sent: make(chan string, 4)}
	pool := notification.NewWorkerPool(2, appStore, webpushOptions, whatsapp, zap.NewNop())
	pool.Start(ctx)

	handler := api.NewHandler(api.Deps{
		Store:       appStore,
		Auth:        auth.NewService("integration-secret", time.Hour, 4),
		Pool:        pool,
		Webpush:     webpushOptions,
		Cache:       mw.NewResponseCache(cache.New(time.Minute, time.Minute), time.Minute, auth.TenantID),
		CountryCode: "351",
		Log:         zap.NewNop(),
	})
	router := api.NewRouter(config.ServerConfig{RateLimitPerSec: 100, RateLimitBurst: 100}, handler, zap.NewNop())

	var token string
	call := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}
	decode := func(w *httptest.ResponseRecorder) map[string]any {
		var out map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
		return out
	}

	// 1. Sign up and set up the shop.
	w := call(http.MethodPost, "/auth/register", map[string]any{"email": "oficina@example.com", "password": "cordas-novas"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token = decode(w)["token"].(string)

	w = call(http.MethodPut, "/api/profile", model.IssuerProfile{
		Name:                 "Oficina do Som",
		NotifyEnabled:        true,
		NotificationTemplate: "{client}, a sua {instrument} está pronta!",
	})
	require.Equal(t, http.StatusOK, w.Code)

	p256dh, authSecret := browserKeys(t)
	w = call(http.MethodPut, "/api/subscriptions", map[string]any{
		"endpoint": pushServer.URL + "/staff",
		"p256dh":   p256dh,
		"auth":     authSecret,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// 2. A job comes in and becomes ready for delivery.
	w = call(http.MethodPost, "/api/records", map[string]any{
		"cliente": "Ana", "contacto": "912 345 678", "tipoInstrumento": "Guitarra", "dataEntrada": "2024-05-02",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(w)["id"].(string)

	w = call(http.MethodPatch, "/api/records/"+id+"/status", map[string]any{"status": "pronto para entrega"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "351912345678: Ana, a sua Guitarra está pronta!", waitFor(t, whatsapp.sent))
	waitFor(t, browser.received)

	// 3. A second job is still queued; the digest reports it and the
	// expired subscription is removed.
	w = call(http.MethodPost, "/api/records", map[string]any{"client": "Rui", "instrumentType": "Baixo"})
	require.Equal(t, http.StatusCreated, w.Code)

	browser.mu.Lock()
	browser.statuses = []int{http.StatusGone}
	browser.mu.Unlock()

	digestSvc := digest.NewService(config.DigestConfig{}, appStore, appStore, pool, zap.NewNop())
	assert.Equal(t, 1, digestSvc.RunOnce(ctx))
	waitFor(t, browser.received)

	assert.Eventually(t, func() bool {
		subs, err := appStore.ListSubscriptions(ctx, decodeTenant(t, token))
		return err == nil && len(subs) == 0
	}, 2*time.Second, 20*time.Millisecond)

	// 4. The dashboard reflects both jobs.
	w = call(http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	metrics := decode(w)
	assert.EqualValues(t, 2, metrics["totalCount"])
	assert.Len(t, metrics["pending"], 1)
}

// decodeTenant reads the tenant claim of a token without verifying it.
func decodeTenant(t *testing.T, token string) string {
	t.Helper()
	parts := bytes.Split([]byte(token), []byte("."))
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(string(parts[1]))
	require.NoError(t, err)
	var claims struct {
		TenantID string `json:"tenantId"`
	}
	require.NoError(t, json.Unmarshal(payload, &claims))
	return claims.TenantID
}
