package models

import "time"

// EntryType tags an activity log entry.
type EntryType string

const (
	EntryNote    EntryType = "note"
	EntryFile    EntryType = "file"
	EntryImage   EntryType = "image"
	EntryCall    EntryType = "call"
	EntryEmail   EntryType = "email"
	EntryMeeting EntryType = "meeting"
	EntryVisit   EntryType = "visit"
)

// IsContact reports whether the entry records contact with the prospect.
// Appending one of these moves the prospect's last_contact.
func (t EntryType) IsContact() bool {
	switch t {
	case EntryCall, EntryEmail, EntryMeeting, EntryVisit:
		return true
	}
	return false
}

// Notifies reports whether appending this type fans out notifications.
func (t EntryType) Notifies() bool {
	return t == EntryNote || t == EntryFile || t == EntryImage
}

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	return t.Notifies() || t.IsContact()
}

// ActivityLogEntry is one event in a prospect's timeline. Author fields are a
// snapshot taken at creation.
type ActivityLogEntry struct {
	ID        string             `json:"id,omitempty"`
	Type      EntryType          `json:"type"`
	Content   string             `json:"content"`
	Timestamp time.Time          `json:"timestamp"`
	UserID    int                `json:"user_id"`
	UserEmail string             `json:"user_email"`
	UserType  Role               `json:"user_type"`
	Likes     int                `json:"likes"`
	FileURL   string             `json:"fileUrl,omitempty"`
	FileName  string             `json:"fileName,omitempty"`
	Replies   []ActivityLogEntry `json:"replies,omitempty"`
}
