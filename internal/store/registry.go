package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"luthier-backend/internal/model"
	"luthier-backend/internal/record"
)

func (s *gormStore) tenantClients(tx *gorm.DB, tenantID string) *gorm.DB {
	return tx.Model(&model.Client{}).Select("id").Where("tenant_id = ?", tenantID)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchClients matches query as a case-insensitive substring of the
// client name or contact, or of any field of one of their instruments.
func (s *gormStore) SearchClients(ctx context.Context, tenantID, query string) ([]model.Client, error) {
	db := s.db.WithContext(ctx)
	q := db.Preload("Instruments").Where("tenant_id = ?", tenantID)
	if query = strings.ToLower(strings.TrimSpace(query)); query != "" {
		like := "%" + likeEscaper.Replace(query) + "%"
		instruments := db.Model(&model.Instrument{}).Select("client_id").
			Where(`LOWER(type) LIKE ? ESCAPE '\' OR LOWER(brand) LIKE ? ESCAPE '\' OR LOWER(model) LIKE ? ESCAPE '\' OR LOWER(serial_number) LIKE ? ESCAPE '\'`,
				like, like, like, like)
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(contact) LIKE ? ESCAPE '\' OR id IN (?)`, like, like, instruments)
	}
	var clients []model.Client
	if err := q.Order("name ASC").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to search clients: %w", err)
	}
	return clients, nil
}

func (s *gormStore) FindOrCreateClient(ctx context.Context, tenantID, name, contact string) (model.Client, error) {
	return findOrCreateClient(s.db.WithContext(ctx), tenantID, name, contact)
}

func findOrCreateClient(tx *gorm.DB, tenantID, name, contact string) (model.Client, error) {
	name, contact = strings.TrimSpace(name), strings.TrimSpace(contact)
	var client model.Client
	err := tx.Where("tenant_id = ? AND name = ? AND contact = ?", tenantID, name, contact).First(&client).Error
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Client{}, fmt.Errorf("failed to look up client %q: %w", name, err)
	}
	client = model.Client{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Name:     name,
		Contact:  contact,
	}
	if err := tx.Create(&client).Error; err != nil {
		return model.Client{}, fmt.Errorf("failed to create client %q: %w", name, err)
	}
	return client, nil
}

// DeleteClient removes a client together with its instruments.
func (s *gormStore) DeleteClient(ctx context.Context, tenantID, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.Client{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete client %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("client_id = ?", id).Delete(&model.Instrument{}).Error; err != nil {
			return fmt.Errorf("failed to delete instruments of client %s: %w", id, err)
		}
		return nil
	})
}

func (s *gormStore) clientOf(tx *gorm.DB, tenantID, clientID string) error {
	var client model.Client
	err := tx.Select("id").Where("id = ? AND tenant_id = ?", clientID, tenantID).First(&client).Error
	return notFound(err)
}

func (s *gormStore) AddInstrument(ctx context.Context, tenantID, clientID string, inst model.Instrument) (model.Instrument, error) {
	db := s.db.WithContext(ctx)
	if err := s.clientOf(db, tenantID, clientID); err != nil {
		return model.Instrument{}, err
	}
	inst.ID = uuid.NewString()
	inst.ClientID = clientID
	if err := db.Create(&inst).Error; err != nil {
		return model.Instrument{}, fmt.Errorf("failed to add instrument: %w", err)
	}
	return inst, nil
}

func (s *gormStore) DeleteInstrument(ctx context.Context, tenantID, id string) error {
	db := s.db.WithContext(ctx)
	res := db.Where("id = ? AND client_id IN (?)", id, s.tenantClients(db, tenantID)).Delete(&model.Instrument{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete instrument %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TransferInstrument hands an instrument, history included, to another
// client of the same tenant.
func (s *gormStore) TransferInstrument(ctx context.Context, tenantID, id, toClientID string) (model.Instrument, error) {
	var inst model.Instrument
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.clientOf(tx, tenantID, toClientID); err != nil {
			return err
		}
		if err := tx.Where("id = ? AND client_id IN (?)", id, s.tenantClients(tx, tenantID)).
			First(&inst).Error; err != nil {
			return notFound(err)
		}
		inst.ClientID = toClientID
		return tx.Model(&inst).Update("client_id", toClientID).Error
	})
	if err != nil {
		return model.Instrument{}, err
	}
	return inst, nil
}

func (s *gormStore) RegisterIntake(ctx context.Context, tenantID string, r record.ServiceRecord) (model.Instrument, error) {
	var inst model.Instrument
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inst, err = registerInstrument(tx, tenantID, r)
		return err
	})
	return inst, err
}

func (s *gormStore) AppendSetupHistory(ctx context.Context, tenantID string, r record.ServiceRecord) (model.Instrument, error) {
	var inst model.Instrument
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inst, err = registerInstrument(tx, tenantID, r)
		if err != nil || inst.ID == "" {
			return err
		}
		delivered := time.Now().UTC()
		if r.DeliveryDate != nil {
			delivered = *r.DeliveryDate
		}
		inst.History = append(inst.History, model.SetupEntry{
			RecordID:       r.ID,
			DeliveredAt:    delivered,
			WorkPerformed:  r.WorkPerformed,
			StringsApplied: r.Setup.StringsApplied,
			Tuning:         r.Setup.Tuning,
			Action12LowE:   r.Setup.Action12LowE,
			Action12HighE:  r.Setup.Action12HighE,
			Action1Fret:    r.Setup.Action1Fret,
			PickupHeight:   r.Setup.PickupHeight,
		})
		return tx.Model(&inst).Update("history", inst.History).Error
	})
	if err != nil {
		return model.Instrument{}, fmt.Errorf("failed to record setup history: %w", err)
	}
	return inst, nil
}

// registerInstrument finds the instrument a record refers to, creating the
// client and instrument when needed. Instruments are matched by serial
// number when the record has one, else by type, brand and model. A record
// without a client or any instrument field registers nothing.
func registerInstrument(tx *gorm.DB, tenantID string, r record.ServiceRecord) (model.Instrument, error) {
	if strings.TrimSpace(r.Client) == "" {
		return model.Instrument{}, nil
	}
	client, err := findOrCreateClient(tx, tenantID, r.Client, r.Contact)
	if err != nil {
		return model.Instrument{}, err
	}
	if r.SerialNumber == "" && r.InstrumentType == "" && r.Brand == "" && r.Model == "" {
		return model.Instrument{}, nil
	}

	q := tx.Where("client_id = ?", client.ID)
	if r.SerialNumber != "" {
		q = q.Where("serial_number = ?", r.SerialNumber)
	} else {
		q = q.Where("type = ? AND brand = ? AND model = ?", r.InstrumentType, r.Brand, r.Model)
	}

	var inst model.Instrument
	err = q.First(&inst).Error
	if err == nil {
		return inst, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Instrument{}, fmt.Errorf("failed to look up instrument: %w", err)
	}
	inst = model.Instrument{
		ID:           uuid.NewString(),
		ClientID:     client.ID,
		Type:         r.InstrumentType,
		Brand:        r.Brand,
		Model:        r.Model,
		SerialNumber: r.SerialNumber,
	}
	if err := tx.Create(&inst).Error; err != nil {
		return model.Instrument{}, fmt.Errorf("failed to register instrument: %w", err)
	}
	return inst, nil
}
