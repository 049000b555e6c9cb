// Package models contains data structures for the bulletin board's domain models.
package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents a registered identity on the board.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:150;uniqueIndex;not null" json:"username"`
	// Nickname is NULL-able so that the unique index only applies to set values.
	Nickname       *string        `gorm:"size:50;uniqueIndex" json:"nickname"`
	Email          string         `gorm:"size:254" json:"email"`
	Password       string         `gorm:"not null" json:"-"`
	FirstName      string         `gorm:"size:150" json:"first_name"`
	LastName       string         `gorm:"size:150" json:"last_name"`
	Avatar         string         `json:"avatar"`
	IsBoardManager bool           `gorm:"default:false;not null" json:"is_board_manager"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeSave fills the nickname from the username when none was chosen.
func (u *User) BeforeSave(_ *gorm.DB) error {
	if u.Nickname == nil || strings.TrimSpace(*u.Nickname) == "" {
		nick := u.Username
		u.Nickname = &nick
	}
	return nil
}

// DisplayName returns the nickname, falling back to the username.
func (u *User) DisplayName() string {
	if u.Nickname != nil && *u.Nickname != "" {
		return *u.Nickname
	}
	return u.Username
}
