package models

import (
	"time"
)

// AccessCode grants read access to exactly one report. A code expires with
// its report and is multi-use: IsUsed records that it validated at least
// once, it never blocks a later validation.
type AccessCode struct {
	BaseModel
	Code       string     `gorm:"uniqueIndex;size:8;not null" json:"code"`
	ReportID   string     `gorm:"size:36;index;not null" json:"reportId"`
	ExpiresAt  time.Time  `json:"expiresAt"` // Copied from the owning report at issuance
	IsUsed     bool       `gorm:"default:false" json:"isUsed"`
	LastAccess *time.Time `json:"lastAccess,omitempty"`

	// Relations
	Report     Report      `gorm:"foreignKey:ReportID" json:"-"`
	AccessLogs []AccessLog `gorm:"foreignKey:AccessCodeID" json:"-"`
}
