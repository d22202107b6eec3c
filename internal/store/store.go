package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"luthier-backend/internal/model"
	"luthier-backend/internal/record"
)

// ErrNotFound is returned when the addressed row does not exist for the
// tenant.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique identity is already taken.
var ErrConflict = errors.New("already exists")

// RecordStore persists service records, partitioned by tenant.
type RecordStore interface {
	ListRecords(ctx context.Context, tenantID string) ([]record.ServiceRecord, error)
	GetRecord(ctx context.Context, tenantID, id string) (record.ServiceRecord, error)
	CreateRecord(ctx context.Context, tenantID string, r record.ServiceRecord) (record.ServiceRecord, error)
	UpdateRecord(ctx context.Context, tenantID string, r record.ServiceRecord) (record.ServiceRecord, error)
	DeleteRecord(ctx context.Context, tenantID, id string) error
}

// ProfileStore persists the issuer profile of each tenant.
type ProfileStore interface {
	// GetProfile returns nil without error when the tenant has none yet.
	GetProfile(ctx context.Context, tenantID string) (*model.IssuerProfile, error)
	SaveProfile(ctx context.Context, p *model.IssuerProfile) error
}

// RegistryStore persists clients and their instruments.
type RegistryStore interface {
	SearchClients(ctx context.Context, tenantID, query string) ([]model.Client, error)
	FindOrCreateClient(ctx context.Context, tenantID, name, contact string) (model.Client, error)
	DeleteClient(ctx context.Context, tenantID, id string) error
	AddInstrument(ctx context.Context, tenantID, clientID string, inst model.Instrument) (model.Instrument, error)
	DeleteInstrument(ctx context.Context, tenantID, id string) error
	TransferInstrument(ctx context.Context, tenantID, id, toClientID string) (model.Instrument, error)
	// RegisterIntake makes sure the client and instrument of r exist.
	RegisterIntake(ctx context.Context, tenantID string, r record.ServiceRecord) (model.Instrument, error)
	// AppendSetupHistory adds the delivery setup of r to its instrument.
	AppendSetupHistory(ctx context.Context, tenantID string, r record.ServiceRecord) (model.Instrument, error)
}

// SubscriptionStore persists staff web push subscriptions.
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, tenantID, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, tenantID, endpoint string) error
	ListSubscriptions(ctx context.Context, tenantID string) ([]model.PushSubscription, error)
	TenantsWithSubscriptions(ctx context.Context) ([]string, error)
}

// UserStore persists owner accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
}

// Store defines the interface for all persistence operations.
type Store interface {
	RecordStore
	ProfileStore
	RegistryStore
	SubscriptionStore
	UserStore
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

var _ Store = (*gormStore)(nil)

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
