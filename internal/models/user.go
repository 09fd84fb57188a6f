package models

import "time"

// User & rôles
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleMember    Role = "MEMBER"
	RoleVolunteer Role = "VOLUNTEER"
)

// Roles lists every known role, in decreasing privilege order.
var Roles = []Role{RoleAdmin, RoleMember, RoleVolunteer}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember || r == RoleVolunteer
}

type UserStatus string

const (
	UserActive   UserStatus = "ACTIVE"
	UserInactive UserStatus = "INACTIVE"
)

func (s UserStatus) Valid() bool { return s == UserActive || s == UserInactive }

type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	FirstName string     `gorm:"not null" json:"firstName"`
	LastName  string     `gorm:"not null" json:"lastName"`
	Email     string     `gorm:"unique;not null;index" json:"email"`
	Password  string     `gorm:"not null" json:"-"` // hashé (bcrypt)
	Phone     string     `json:"phone"`
	Role      Role       `gorm:"not null;default:'VOLUNTEER'" json:"role"`
	Status    UserStatus `gorm:"not null;default:'ACTIVE'" json:"status"`
	JoinDate  time.Time  `json:"joinDate"`
	LastLogin *time.Time `json:"lastLogin"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// PublicUser is the representation exposed by the API (never carries the hash).
type PublicUser struct {
	ID        uint       `json:"id"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Role      Role       `json:"role"`
	Status    UserStatus `json:"status"`
	JoinDate  time.Time  `json:"joinDate"`
	LastLogin *time.Time `json:"lastLogin"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		Status:    u.Status,
		JoinDate:  u.JoinDate,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}
