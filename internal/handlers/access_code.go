package handlers

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/models"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/utils"
)

// AccessCodeHandler handles issuing and validating report access codes.
type AccessCodeHandler struct {
	DB *gorm.DB
}

// NewAccessCodeHandler creates a new AccessCodeHandler.
func NewAccessCodeHandler(db *gorm.DB) *AccessCodeHandler {
	return &AccessCodeHandler{DB: db}
}

// GenerateRequest represents the request body for code generation.
type GenerateRequest struct {
	ReportID string `json:"reportId" binding:"required"`
}

// Generate issues a new access code for a report. The code expires when
// the report does.
func (h *AccessCodeHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var report models.Report
	if err := h.DB.Select("id", "expires_at").First(&report, "id = ?", req.ReportID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Report not found")
		} else {
			utils.InternalServerError(c, "database error verifying report: "+err.Error())
		}
		return
	}

	code, err := h.generateUniqueCode()
	if err != nil {
		utils.InternalServerError(c, "failed to generate access code: "+err.Error())
		return
	}

	accessCode := models.AccessCode{
		Code:      code,
		ReportID:  report.ID,
		ExpiresAt: report.ExpiresAt,
	}
	if err := h.DB.Create(&accessCode).Error; err != nil {
		utils.InternalServerError(c, "failed to store access code: "+err.Error())
		return
	}

	c.JSON(200, gin.H{
		"success":    true,
		"accessCode": accessCode.Code,
		"expiresAt":  accessCode.ExpiresAt,
	})
}

// generateUniqueCode draws candidate codes until one does not collide
// with a stored code. The retry loop carries the uniqueness guarantee;
// the unique index on the column is only a backstop.
func (h *AccessCodeHandler) generateUniqueCode() (string, error) {
	for {
		code, err := utils.GenerateAccessCode()
		if err != nil {
			return "", err
		}
		var count int64
		if err := h.DB.Model(&models.AccessCode{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
}

// ValidateRequest represents the request body for code validation.
type ValidateRequest struct {
	Code string `json:"code" binding:"required"`
}

// ReportSummary is the denormalized report view returned to a patient
// after a successful validation.
type ReportSummary struct {
	ID          string    `json:"id"`
	PatientName string    `json:"patientName"`
	ExamDate    string    `json:"examDate"`
	ExamType    string    `json:"examType"`
	DoctorName  string    `json:"doctorName"`
	FilePath    string    `json:"filePath"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Validate checks an access code and, when it is current, returns the
// owning report's display fields. Validation is repeatable: the patient
// may revisit the portal with the same code until it expires.
func (h *AccessCodeHandler) Validate(c *gin.Context) {
	var req ValidateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if !utils.IsValidAccessCode(req.Code) {
		utils.BadRequest(c, "Invalid access code")
		return
	}

	var accessCode models.AccessCode
	if err := h.DB.Joins("Report").First(&accessCode, "access_codes.code = ?", req.Code).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Access code not found")
		} else {
			utils.InternalServerError(c, "database error looking up access code: "+err.Error())
		}
		return
	}

	now := time.Now()
	if utils.IsExpired(accessCode.ExpiresAt, now) {
		// Expired codes stop validating but are only deleted by the
		// report-expiration sweep.
		utils.Forbidden(c, "Access code expired")
		return
	}

	// Bookkeeping below is best-effort: the log append and the used-flag
	// update are independent of each other and of the response.
	entry := models.AccessLog{
		AccessCodeID: accessCode.ID,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	}
	if err := h.DB.Create(&entry).Error; err != nil {
		log.Printf("access log append failed for code %s: %v", accessCode.ID, err)
	}
	if err := h.DB.Model(&models.AccessCode{}).Where("id = ?", accessCode.ID).
		Updates(map[string]interface{}{"is_used": true, "last_access": now}).Error; err != nil {
		log.Printf("access code usage update failed for code %s: %v", accessCode.ID, err)
	}

	c.JSON(200, gin.H{
		"success": true,
		"report": ReportSummary{
			ID:          accessCode.Report.ID,
			PatientName: accessCode.Report.PatientName,
			ExamDate:    accessCode.Report.ExamDate,
			ExamType:    accessCode.Report.ExamType,
			DoctorName:  accessCode.Report.DoctorName,
			FilePath:    accessCode.Report.FilePath,
			ExpiresAt:   accessCode.Report.ExpiresAt,
		},
	})
}
