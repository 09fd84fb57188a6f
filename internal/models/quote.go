package models

import "time"

// Devis
type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "DRAFT"
	QuoteSent     QuoteStatus = "SENT"
	QuoteAccepted QuoteStatus = "ACCEPTED"
	QuoteRejected QuoteStatus = "REJECTED"
)

var QuoteStatuses = []QuoteStatus{QuoteDraft, QuoteSent, QuoteAccepted, QuoteRejected}

// Valid reports whether s is one of the four known statuses. Transitions are
// unrestricted: any status can be set from any other.
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteDraft, QuoteSent, QuoteAccepted, QuoteRejected:
		return true
	}
	return false
}

type Quote struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	QuoteNumber string      `gorm:"unique;not null;index" json:"quoteNumber"`
	ClientName  string      `gorm:"not null" json:"clientName"`
	ClientEmail string      `gorm:"not null" json:"clientEmail"`
	ClientPhone string      `gorm:"not null" json:"clientPhone"`
	EventName   string      `gorm:"not null" json:"eventName"`
	EventDate   time.Time   `gorm:"not null" json:"eventDate"`
	ValidUntil  time.Time   `gorm:"not null" json:"validUntil"`
	Status      QuoteStatus `gorm:"not null;default:'DRAFT'" json:"status"`
	TotalAmount float64     `gorm:"not null" json:"totalAmount"`
	TaxAmount   float64     `gorm:"not null" json:"taxAmount"`
	Notes       string      `json:"notes"`
	CreatedByID uint        `gorm:"not null" json:"createdById"`
	CreatedBy   *User       `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	Items       []QuoteItem `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// QuoteItem fige le tarif journalier au moment de la création du devis :
// une modification ultérieure du matériel ne change pas les devis passés.
type QuoteItem struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	QuoteID     uint       `gorm:"not null;index" json:"quoteId"`
	EquipmentID uint       `gorm:"not null" json:"equipmentId"`
	Equipment   *Equipment `gorm:"foreignKey:EquipmentID" json:"equipment,omitempty"`
	Quantity    int        `gorm:"not null" json:"quantity"`
	Days        int        `gorm:"not null" json:"days"`
	UnitPrice   float64    `gorm:"not null" json:"unitPrice"`
	TotalPrice  float64    `gorm:"not null" json:"totalPrice"`
}
