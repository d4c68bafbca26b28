package models

import (
	"time"
)

// Report represents one uploaded exam report (a PDF held in the blob store).
type Report struct {
	BaseModel
	PatientName  string    `gorm:"size:255;not null" json:"patientName"`
	ExamDate     string    `gorm:"size:20;not null" json:"examDate"`
	ExamType     string    `gorm:"size:100;not null" json:"examType"`
	DoctorName   string    `gorm:"size:255;not null" json:"doctorName"`
	FilePath     string    `gorm:"size:512;not null" json:"filePath"` // Key into the blob store
	DriveFileID  string    `gorm:"size:255" json:"driveFileId,omitempty"`
	DriveFileURL string    `gorm:"size:512" json:"driveFileUrl,omitempty"`
	ExpiresAt    time.Time `gorm:"index" json:"expiresAt"` // Always CreatedAt + 3 calendar months
	CreatedBy    string    `gorm:"size:36;index" json:"createdBy"`

	// Relations
	Creator     User         `gorm:"foreignKey:CreatedBy" json:"-"`
	AccessCodes []AccessCode `gorm:"foreignKey:ReportID" json:"accessCodes,omitempty"`
}
