package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// État du matériel, indépendant du stock.
type Condition string

const (
	ConditionExcellent Condition = "EXCELLENT"
	ConditionGood      Condition = "GOOD"
	ConditionFair      Condition = "FAIR"
	ConditionPoor      Condition = "POOR"
)

var Conditions = []Condition{ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor}

func (c Condition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// SerialNumbers est stocké en colonne texte JSON pour rester portable
// entre Postgres et la base sqlite des tests.
type SerialNumbers []string

func (s SerialNumbers) Value() (driver.Value, error) {
	if s == nil {
		s = SerialNumbers{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *SerialNumbers) Scan(src any) error {
	if src == nil {
		*s = SerialNumbers{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("serial numbers: unsupported column type %T", src)
	}
	if len(raw) == 0 {
		*s = SerialNumbers{}
		return nil
	}
	return json.Unmarshal(raw, s)
}

type Equipment struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	Name              string        `gorm:"not null;index" json:"name"`
	CategoryID        uint          `gorm:"not null;index" json:"categoryId"`
	Category          *Category     `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Brand             string        `gorm:"not null" json:"brand"`
	Model             string        `gorm:"not null" json:"model"`
	Description       string        `json:"description"`
	Quantity          int           `gorm:"not null" json:"quantity"`
	AvailableQuantity int           `gorm:"not null" json:"availableQuantity"`
	DailyRateHT       float64       `gorm:"not null" json:"dailyRateHT"`
	Condition         Condition     `gorm:"not null;default:'GOOD'" json:"condition"`
	SerialNumbers     SerialNumbers `gorm:"type:text" json:"serialNumbers"`
	PurchaseDate      *time.Time    `json:"purchaseDate"`
	PurchasePrice     *float64      `json:"purchasePrice"`
	ImageURL          string        `json:"imageUrl"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`

	DamageReports []DamageReport `gorm:"foreignKey:EquipmentID" json:"damageReports,omitempty"`
}

// Signalement de dommage : simple fiche incident, aucune mise à jour
// automatique de l'état ni du stock du matériel concerné.
type DamageReport struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	EquipmentID      uint       `gorm:"not null;index" json:"equipmentId"`
	Equipment        *Equipment `gorm:"foreignKey:EquipmentID" json:"equipment,omitempty"`
	ReportedByID     uint       `gorm:"not null" json:"reportedById"`
	ReportedBy       *User      `gorm:"foreignKey:ReportedByID" json:"reportedBy,omitempty"`
	Description      string     `gorm:"not null" json:"description"`
	IncidentDate     time.Time  `gorm:"not null" json:"incidentDate"`
	IncidentLocation string     `gorm:"not null" json:"incidentLocation"`
	ReportedAt       time.Time  `gorm:"not null" json:"reportedAt"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}
