package models

import "time"

// Catégorie de matériel (micros, enceintes, câbles, ...)
type Category struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Name        string      `gorm:"unique;not null;index" json:"name"`
	Description string      `json:"description"`
	Color       string      `gorm:"not null;default:'#64748b'" json:"color"`
	Equipment   []Equipment `gorm:"foreignKey:CategoryID" json:"equipment,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`

	// Rempli à la lecture, jamais persisté.
	EquipmentCount int64 `gorm:"-" json:"equipmentCount"`
}
