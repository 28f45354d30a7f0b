package models

import "time"

// User is an account that can place orders.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)"`
	FirstName string    `json:"first_name" gorm:"type:varchar(100)"`
	LastName  string    `json:"last_name" gorm:"type:varchar(100)"`
	Role      string    `json:"role" gorm:"type:varchar(32)"`
	IsActive  bool      `json:"is_active" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification is an in-app message shown to a user.
type Notification struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID        string    `json:"user_id" gorm:"index;type:varchar(36);not null"`
	Title         string    `json:"title" gorm:"type:varchar(255);not null"`
	Message       string    `json:"message" gorm:"type:text;not null"`
	Type          string    `json:"type" gorm:"type:varchar(32);not null"`
	ReferenceID   string    `json:"reference_id" gorm:"type:varchar(36)"`
	ReferenceType string    `json:"reference_type" gorm:"type:varchar(32)"`
	Action        string    `json:"action" gorm:"type:varchar(64)"`
	IsRead        bool      `json:"is_read" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
}
