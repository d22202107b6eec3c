package model

import "time"

// IssuerProfile is the shop identity printed on documents, one per tenant.
type IssuerProfile struct {
	TenantID   string `gorm:"primaryKey;size:64" json:"-"`
	Name       string `gorm:"size:256" json:"name"`
	Address    string `gorm:"size:512" json:"address"`
	PostalCode string `gorm:"size:32" json:"postalCode"`
	Locality   string `gorm:"size:128" json:"locality"`
	Phone      string `gorm:"size:64" json:"phone"`
	Email      string `gorm:"size:256" json:"email"`
	TaxID      string `gorm:"size:64" json:"taxId"`

	// LogoBase64 is a data URL or bare base64 PNG/JPEG.
	LogoBase64 string `gorm:"type:text" json:"logoBase64"`

	// NotificationTemplate is sent to the customer when a job becomes ready
	// for delivery. Placeholders: {client}, {instrument}, {serviceNumber}.
	NotificationTemplate string `gorm:"type:text" json:"notificationTemplate"`
	NotifyEnabled        bool   `gorm:"not null" json:"notifyEnabled"`

	UpdatedAt time.Time `json:"updatedAt"`
}
