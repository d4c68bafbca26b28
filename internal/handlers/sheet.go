package handlers

import (
	"encoding/csv"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/utils"
)

// SheetHandler parses uploaded spreadsheets into rows and column names
// for the column-mapping step of the calendar sync tool.
type SheetHandler struct{}

// NewSheetHandler creates a new SheetHandler.
func NewSheetHandler() *SheetHandler {
	return &SheetHandler{}
}

// Parse reads the uploaded spreadsheet's first sheet and returns its rows
// keyed by header plus the list of column names.
func (h *SheetHandler) Parse(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "No file uploaded")
		return
	}
	defer file.Close()

	var rows [][]string
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		rows, err = readWorkbook(file)
	case ".csv":
		rows, err = readCSV(file)
	default:
		utils.BadRequest(c, "Unsupported file type")
		return
	}
	if err != nil {
		utils.InternalServerError(c, "failed to parse spreadsheet: "+err.Error())
		return
	}

	columns, sheets := tabulate(rows)
	c.JSON(200, gin.H{
		"sheets":  sheets,
		"columns": columns,
	})
}

func readWorkbook(file multipart.File) ([][]string, error) {
	wb, err := excelize.OpenReader(file)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	firstSheet := wb.GetSheetName(0)
	return wb.GetRows(firstSheet)
}

func readCSV(file multipart.File) ([][]string, error) {
	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// tabulate turns raw rows into the header list plus one map per data row.
// The first row is the header; cells beyond a short row read as empty.
func tabulate(rows [][]string) ([]string, []map[string]string) {
	if len(rows) == 0 {
		return []string{}, []map[string]string{}
	}

	columns := rows[0]
	sheets := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(row) {
				record[col] = row[i]
			} else {
				record[col] = ""
			}
		}
		sheets = append(sheets, record)
	}
	return columns, sheets
}
