package model

import (
	"time"

	"gorm.io/datatypes"
)

// Client is a customer of the shop.
type Client struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	TenantID  string    `gorm:"uniqueIndex:idx_client_identity;size:64;not null" json:"-"`
	Name      string    `gorm:"uniqueIndex:idx_client_identity;size:256;not null" json:"name"`
	Contact   string    `gorm:"uniqueIndex:idx_client_identity;size:128;not null" json:"contact"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`

	// Associations
	Instruments []Instrument `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"instruments"`
}

// SetupEntry is the setup sheet recorded on one delivery of an instrument.
type SetupEntry struct {
	RecordID       string    `json:"recordId"`
	DeliveredAt    time.Time `json:"deliveredAt"`
	WorkPerformed  string    `json:"workPerformed"`
	StringsApplied string    `json:"stringsApplied"`
	Tuning         string    `json:"tuning"`
	Action12LowE   string    `json:"action12LowE"`
	Action12HighE  string    `json:"action12HighE"`
	Action1Fret    string    `json:"action1Fret"`
	PickupHeight   string    `json:"pickupHeight"`
}

// Instrument belongs to exactly one client at a time.
type Instrument struct {
	ID           string                          `gorm:"primaryKey;size:36" json:"id"`
	ClientID     string                          `gorm:"index;size:36;not null" json:"clientId"`
	Type         string                          `gorm:"size:128" json:"type"`
	Brand        string                          `gorm:"size:128" json:"brand"`
	Model        string                          `gorm:"size:128" json:"model"`
	SerialNumber string                          `gorm:"size:128;index" json:"serialNumber"`
	History      datatypes.JSONSlice[SetupEntry] `json:"history"`
	CreatedAt    time.Time                       `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time                       `gorm:"not null" json:"updatedAt"`
}
