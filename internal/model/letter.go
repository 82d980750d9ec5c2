package model

import (
	"time"
)

// LetterStatus represents the lifecycle state of a letter.
type LetterStatus string

const (
	LetterStatusPending  LetterStatus = "Pending"
	LetterStatusVerified LetterStatus = "Verified"
	LetterStatusRejected LetterStatus = "Rejected"
)

// Terminal reports whether no further transition is allowed out of s.
func (s LetterStatus) Terminal() bool {
	return s == LetterStatusVerified || s == LetterStatusRejected
}

// Letter represents a submitted document tracked through the approval lifecycle.
type Letter struct {
	ID                   uint         `json:"id" gorm:"primaryKey"`
	LetterNumber         string       `json:"letter_number" gorm:"size:12;not null;uniqueIndex"`
	StorageKey           string       `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	OriginalFilename     string       `json:"original_filename" gorm:"size:255;not null"`
	UploadedBy           uint         `json:"uploaded_by" gorm:"not null;index"`
	UploadDate           time.Time    `json:"upload_date" gorm:"not null;index"`
	Status               LetterStatus `json:"status" gorm:"type:varchar(20);not null;default:'Pending';index"`
	RequiresVerification bool         `json:"requires_verification" gorm:"default:false"`
	VerifiedBy           *uint        `json:"verified_by,omitempty" gorm:"index"`
	VerifiedDate         *time.Time   `json:"verified_date,omitempty"`
	VerificationComments string       `json:"verification_comments,omitempty" gorm:"type:text"`
	QRCode               string       `json:"qr_code,omitempty" gorm:"type:text"` // base64 PNG, regenerable from LetterNumber
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// StatusCount is one row of the per-status aggregate.
type StatusCount struct {
	Status LetterStatus `json:"status"`
	Count  int64        `json:"count"`
}
