package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/middleware"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/models"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/storage"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/utils"
)

// ReportHandler handles report upload, listing, retrieval and cleanup.
type ReportHandler struct {
	DB    *gorm.DB
	Store storage.Store
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(db *gorm.DB, store storage.Store) *ReportHandler {
	return &ReportHandler{DB: db, Store: store}
}

// Upload handles the multipart upload of a new report PDF together with
// its exam metadata. Only accessible by administrators.
func (h *ReportHandler) Upload(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User ID not found in token")
		return
	}

	patientName := c.PostForm("patientName")
	examDate := c.PostForm("examDate")
	examType := c.PostForm("examType")
	doctorName := c.PostForm("doctorName")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "Error retrieving file from form: "+err.Error())
		return
	}
	defer file.Close()

	if patientName == "" || examDate == "" || examType == "" || doctorName == "" {
		utils.BadRequest(c, "All fields are required")
		return
	}

	if header.Header.Get("Content-Type") != "application/pdf" {
		utils.BadRequest(c, "Only PDF files are allowed")
		return
	}

	now := time.Now()
	fileKey := storage.FileKey(header.Filename, now)
	if _, err := h.Store.Put(c.Request.Context(), fileKey, file); err != nil {
		utils.InternalServerError(c, "failed to store report file: "+err.Error())
		return
	}

	report := models.Report{
		PatientName: patientName,
		ExamDate:    examDate,
		ExamType:    examType,
		DoctorName:  doctorName,
		FilePath:    fileKey,
		ExpiresAt:   utils.CalculateExpirationDate(now),
		CreatedBy:   userID,
	}
	if err := h.DB.Create(&report).Error; err != nil {
		if delErr := h.Store.Delete(c.Request.Context(), fileKey); delErr != nil {
			log.Printf("orphaned blob %s after failed insert: %v", fileKey, delErr)
		}
		utils.InternalServerError(c, "failed to create report: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"report": ReportSummary{
			ID:          report.ID,
			PatientName: report.PatientName,
			ExamDate:    report.ExamDate,
			ExamType:    report.ExamType,
			DoctorName:  report.DoctorName,
			FilePath:    report.FilePath,
			ExpiresAt:   report.ExpiresAt,
		},
	})
}

// reportListItem is one row of the admin listing, a report plus how many
// access codes have been issued for it.
type reportListItem struct {
	models.Report
	AccessCodesCount int64 `json:"accessCodesCount"`
}

// List returns a page of reports, newest first, with per-report access
// code counts. Only accessible by administrators.
func (h *ReportHandler) List(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	var reports []models.Report
	if err := h.DB.Order("created_at DESC").Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "failed to fetch reports: "+err.Error())
		return
	}

	items := make([]reportListItem, 0, len(reports))
	if len(reports) > 0 {
		ids := make([]string, len(reports))
		for i, r := range reports {
			ids[i] = r.ID
		}

		type codeCount struct {
			ReportID string
			Count    int64
		}
		var counts []codeCount
		if err := h.DB.Model(&models.AccessCode{}).
			Select("report_id, COUNT(*) as count").
			Where("report_id IN ?", ids).
			Group("report_id").
			Find(&counts).Error; err != nil {
			utils.InternalServerError(c, "failed to count access codes: "+err.Error())
			return
		}
		countByReport := make(map[string]int64, len(counts))
		for _, cc := range counts {
			countByReport[cc.ReportID] = cc.Count
		}

		for _, r := range reports {
			items = append(items, reportListItem{Report: r, AccessCodesCount: countByReport[r.ID]})
		}
	}

	var totalItems int64
	if err := h.DB.Model(&models.Report{}).Count(&totalItems).Error; err != nil {
		utils.InternalServerError(c, "failed to count reports: "+err.Error())
		return
	}
	totalPages := (totalItems + int64(limit) - 1) / int64(limit)

	c.JSON(200, gin.H{
		"success": true,
		"reports": items,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"totalItems": totalItems,
			"totalPages": totalPages,
		},
	})
}

// Delete removes a report, its access codes and their logs, and the
// stored PDF. Only accessible by administrators.
func (h *ReportHandler) Delete(c *gin.Context) {
	reportID := c.Query("id")
	if reportID == "" {
		utils.BadRequest(c, "Report ID is required")
		return
	}

	var report models.Report
	if err := h.DB.Select("id", "file_path").First(&report, "id = ?", reportID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Report not found")
		} else {
			utils.InternalServerError(c, "database error fetching report: "+err.Error())
		}
		return
	}

	if err := h.deleteReportRows(&report); err != nil {
		utils.InternalServerError(c, "failed to delete report: "+err.Error())
		return
	}

	// A failed blob delete is logged for manual cleanup, not surfaced.
	if err := h.Store.Delete(c.Request.Context(), report.FilePath); err != nil {
		log.Printf("blob delete failed for report %s (%s): %v", report.ID, report.FilePath, err)
	}

	c.JSON(200, gin.H{"success": true, "message": "Report deleted successfully"})
}

// deleteReportRows removes a report row together with its access codes
// and their logs, in one transaction.
func (h *ReportHandler) deleteReportRows(report *models.Report) error {
	return h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("access_code_id IN (?)",
			tx.Model(&models.AccessCode{}).Select("id").Where("report_id = ?", report.ID),
		).Delete(&models.AccessLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", report.ID).Delete(&models.AccessCode{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Report{}, "id = ?", report.ID).Error
	})
}

// View streams a report PDF to a patient. The code/file pairing is the
// authorization gate and is re-checked on every call.
func (h *ReportHandler) View(c *gin.Context) {
	filePath := c.Query("file")
	code := c.Query("code")
	if filePath == "" || code == "" {
		utils.BadRequest(c, "Invalid parameters")
		return
	}

	var accessCode models.AccessCode
	if err := h.DB.Joins("Report").
		First(&accessCode, "access_codes.code = ? AND Report.file_path = ?", code, filePath).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Forbidden(c, "Access not authorized")
		} else {
			utils.InternalServerError(c, "database error checking file access: "+err.Error())
		}
		return
	}

	blob, err := h.Store.Open(c.Request.Context(), filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Row exists but the blob is gone
			utils.NotFound(c, "File not found")
		} else {
			utils.InternalServerError(c, "failed to open report file: "+err.Error())
		}
		return
	}
	defer blob.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filePath))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, blob); err != nil {
		log.Printf("streaming report file %s failed: %v", filePath, err)
	}
}

// Cleanup deletes every report whose retention window has passed, with
// its codes, logs and blob. Gated by the shared-secret middleware and
// intended to run from a periodic trigger. Idempotent.
func (h *ReportHandler) Cleanup(c *gin.Context) {
	now := time.Now()

	var expired []models.Report
	if err := h.DB.Select("id", "file_path").Where("expires_at < ?", now).Find(&expired).Error; err != nil {
		utils.InternalServerError(c, "failed to fetch expired reports: "+err.Error())
		return
	}

	if len(expired) == 0 {
		c.JSON(200, gin.H{
			"success":      true,
			"message":      "No expired reports found",
			"removedCount": 0,
		})
		return
	}

	removedCount := 0
	for _, report := range expired {
		if err := h.deleteReportRows(&report); err != nil {
			log.Printf("cleanup: failed to delete rows for report %s: %v", report.ID, err)
			continue
		}
		removedCount++
		if err := h.Store.Delete(c.Request.Context(), report.FilePath); err != nil {
			log.Printf("cleanup: blob delete failed for report %s (%s): %v", report.ID, report.FilePath, err)
		}
	}

	c.JSON(200, gin.H{
		"success":      true,
		"message":      fmt.Sprintf("%d expired reports were removed", removedCount),
		"removedCount": removedCount,
	})
}
