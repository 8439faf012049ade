package models

import "time"

// Notification is a single message delivered to a user.
type Notification struct {
	ID         string    `json:"id"`
	UserID     int       `json:"user_id"`
	Message    string    `json:"message"`
	ProspectID int       `json:"prospect_id"`
	CreatedAt  time.Time `json:"created_at"`
	Read       bool      `json:"read"`
}

// NotificationRecord is the per-user row holding a notifications array.
type NotificationRecord struct {
	ID            int            `json:"id"`
	UserID        int            `json:"user_id"`
	Notifications []Notification `json:"notifications"`
	Version       int            `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NotificationSignal is the lightweight broadcast payload telling an open
// session to refresh its badge.
type NotificationSignal struct {
	UserID     int    `json:"user_id"`
	ProspectID int    `json:"prospect_id"`
	ID         string `json:"id"`
}
