package models

import "time"

// Événement (prestation)
type EventStatus string

const (
	EventPlanned    EventStatus = "PLANNED"
	EventConfirmed  EventStatus = "CONFIRMED"
	EventInProgress EventStatus = "IN_PROGRESS"
	EventCompleted  EventStatus = "COMPLETED"
	EventCancelled  EventStatus = "CANCELLED"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventPlanned, EventConfirmed, EventInProgress, EventCompleted, EventCancelled:
		return true
	}
	return false
}

type Event struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Name        string      `gorm:"not null;index" json:"name"`
	Description string      `json:"description"`
	StartDate   time.Time   `gorm:"not null" json:"startDate"`
	EndDate     time.Time   `gorm:"not null" json:"endDate"`
	Location    string      `gorm:"not null" json:"location"`
	ClientName  string      `json:"clientName"`
	ClientEmail string      `json:"clientEmail"`
	ClientPhone string      `json:"clientPhone"`
	Status      EventStatus `gorm:"not null;default:'PLANNED'" json:"status"`
	CreatedByID uint        `gorm:"not null" json:"createdById"`
	CreatedBy   *User       `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`

	EquipmentAssigned   []EventEquipmentAssignment  `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"equipmentAssigned"`
	TechniciansAssigned []EventTechnicianAssignment `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"techniciansAssigned"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Aucune détection de chevauchement entre événements : le même matériel ou
// technicien peut être affecté à deux événements simultanés.
type EventEquipmentAssignment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	EventID     uint       `gorm:"not null;index" json:"eventId"`
	EquipmentID uint       `gorm:"not null" json:"equipmentId"`
	Equipment   *Equipment `gorm:"foreignKey:EquipmentID" json:"equipment,omitempty"`
	Quantity    int        `gorm:"not null" json:"quantity"`
	AssignedBy  uint       `gorm:"not null" json:"assignedBy"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type EventTechnicianAssignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"not null;index" json:"eventId"`
	UserID    uint      `gorm:"not null" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `json:"role"` // texte libre : "Ingénieur son", "Assistant", ...
	CreatedAt time.Time `json:"createdAt"`
}
