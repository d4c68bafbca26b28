package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/models"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/utils"
)

// DriveLinkHandler attaches external drive references to reports.
type DriveLinkHandler struct {
	DB *gorm.DB
}

// NewDriveLinkHandler creates a new DriveLinkHandler.
func NewDriveLinkHandler(db *gorm.DB) *DriveLinkHandler {
	return &DriveLinkHandler{DB: db}
}

// DriveLinkRequest represents the request body for linking a report to an
// externally stored copy.
type DriveLinkRequest struct {
	ReportID     string `json:"reportId" binding:"required"`
	DriveFileID  string `json:"driveFileId"`
	DriveFileURL string `json:"driveFileUrl"`
}

// Link stores the drive file reference on an existing report. At least
// one of the two drive fields must be present.
func (h *DriveLinkHandler) Link(c *gin.Context) {
	var req DriveLinkRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if req.DriveFileID == "" && req.DriveFileURL == "" {
		utils.BadRequest(c, "Drive file information is required")
		return
	}

	var report models.Report
	if err := h.DB.Select("id").First(&report, "id = ?", req.ReportID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Report not found")
		} else {
			utils.InternalServerError(c, "database error verifying report: "+err.Error())
		}
		return
	}

	if err := h.DB.Model(&models.Report{}).Where("id = ?", req.ReportID).
		Updates(map[string]interface{}{
			"drive_file_id":  req.DriveFileID,
			"drive_file_url": req.DriveFileURL,
		}).Error; err != nil {
		utils.InternalServerError(c, "failed to update report drive link: "+err.Error())
		return
	}

	c.JSON(200, gin.H{"success": true, "message": "Report linked to drive successfully"})
}
