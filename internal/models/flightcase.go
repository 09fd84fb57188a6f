package models

import "time"

// FlightCase regroupe du matériel pour le transport.
type FlightCase struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Name        string           `gorm:"not null;index" json:"name"`
	Description string           `json:"description"`
	Color       string           `gorm:"not null;default:'#64748b'" json:"color"`
	Items       []FlightCaseItem `gorm:"foreignKey:FlightCaseID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`

	ItemCount int64 `gorm:"-" json:"itemCount"`
}

type FlightCaseItem struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	FlightCaseID uint       `gorm:"not null;index" json:"flightCaseId"`
	EquipmentID  uint       `gorm:"not null" json:"equipmentId"`
	Equipment    *Equipment `gorm:"foreignKey:EquipmentID" json:"equipment,omitempty"`
	Quantity     int        `gorm:"not null" json:"quantity"`
}
