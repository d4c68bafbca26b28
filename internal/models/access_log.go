package models

// AccessLog is an append-only record of one successful code validation.
// Rows are never updated after insertion.
type AccessLog struct {
	BaseModel
	AccessCodeID string `gorm:"size:36;index;not null" json:"accessCodeId"`
	IPAddress    string `gorm:"size:64" json:"ipAddress"`
	UserAgent    string `gorm:"size:512" json:"userAgent"`

	// Define the relationship to AccessCode
	AccessCode AccessCode `gorm:"foreignKey:AccessCodeID" json:"-"`
}
