package models

import (
	"time"
)

// User roles
const (
	RolePlayer = "player"
	RoleViewer = "viewer"
	RoleAdmin  = "admin"
)

// User statuses
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User is the ledger's read-only view of the identity service's users table.
type User struct {
	ID        uint   `gorm:"primarykey"`
	Username  string `gorm:"uniqueIndex;not null"`
	Role      string `gorm:"default:'player'"`
	Status    string `gorm:"default:'active'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanOwnWallet reports whether the user may hold and operate a wallet.
func (u *User) CanOwnWallet() bool {
	if u.Status != UserStatusActive {
		return false
	}
	return u.Role == RolePlayer || u.Role == RoleViewer
}

// Team is the tournament service's team record; donations to a team credit
// its captain.
type Team struct {
	ID            uint   `gorm:"primarykey"`
	Name          string `gorm:"not null"`
	CaptainUserID uint   `gorm:"index"`
	CreatedAt     time.Time
}

// Tournament is the tournament service's record; donations to a tournament
// credit its organizer.
type Tournament struct {
	ID              uint   `gorm:"primarykey"`
	Name            string `gorm:"not null"`
	OrganizerUserID uint   `gorm:"index"`
	CreatedAt       time.Time
}
