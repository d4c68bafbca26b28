package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/config"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/models"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/routes"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/storage"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/utils"
)

const testCleanupKey = "test-cleanup-key"

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	store  *storage.LocalStore
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One in-memory database per test; a second connection would see
	// an empty schema
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Report{},
		&models.AccessCode{},
		&models.AccessLog{},
	))

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		Origin:                    "http://localhost:3000",
		Environment:               "development",
		JWTSecret:                 "test-jwt-secret",
		JWTRefreshSecret:          "test-refresh-secret",
		CleanupAPIKey:             testCleanupKey,
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 168,
		Calendar: config.CalendarConfig{
			Name:     "Onelaudos",
			TimeZone: "America/Sao_Paulo",
		},
	}

	router := gin.New()
	routes.SetupRoutes(router, db, store, cfg)

	return &testServer{router: router, db: db, store: store, cfg: cfg}
}

// createAdmin provisions an admin user and returns a valid access token.
func (ts *testServer) createAdmin(t *testing.T) string {
	t.Helper()
	user := models.User{
		Email:    "admin@example.com",
		Name:     "Admin",
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	require.NoError(t, user.SetPassword("admin-password-1"))
	require.NoError(t, ts.db.Create(&user).Error)

	token, _, err := utils.GenerateTokens(&user, ts.cfg)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withToken(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// uploadReport drives the multipart upload endpoint and returns the
// created report's fields.
func (ts *testServer) uploadReport(t *testing.T, token, patientName string) map[string]interface{} {
	t.Helper()
	w := ts.uploadReportRaw(t, token, patientName, "laudo.pdf", "application/pdf", "%PDF-1.4 test content")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	report, ok := body["report"].(map[string]interface{})
	require.True(t, ok, "upload response missing report: %v", body)
	return report
}

func (ts *testServer) uploadReportRaw(t *testing.T, token, patientName, filename, contentType, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	require.NoError(t, mw.WriteField("patientName", patientName))
	require.NoError(t, mw.WriteField("examDate", "2025-01-15"))
	require.NoError(t, mw.WriteField("examType", "Ultrassonografia"))
	require.NoError(t, mw.WriteField("doctorName", "Dr. Silva"))

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)}
	header["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return ts.do(t, withToken(req, token))
}

// generateCode drives the access-code generation endpoint.
func (ts *testServer) generateCode(t *testing.T, token, reportID string) string {
	t.Helper()
	w := ts.do(t, withToken(jsonRequest(t, http.MethodPost, "/api/access-code/generate", gin.H{"reportId": reportID}), token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	code, ok := body["accessCode"].(string)
	require.True(t, ok, "generate response missing accessCode: %v", body)
	return code
}
