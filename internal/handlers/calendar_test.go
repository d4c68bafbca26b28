package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/config"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/handlers"
)

// fakeInserter stands in for the Google Calendar API.
type fakeInserter struct {
	mu        sync.Mutex
	failTitle string
	inserted  []*calendar.Event
	ensured   []string
}

func (f *fakeInserter) EnsureCalendar(_ context.Context, name, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, name)
	return "cal-1", nil
}

func (f *fakeInserter) InsertEvent(_ context.Context, _ string, event *calendar.Event) (string, error) {
	if event.Summary == f.failTitle {
		return "", fmt.Errorf("quota exceeded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, event)
	return fmt.Sprintf("ev-%d", len(f.inserted)), nil
}

func newCalendarRouter(fake *fakeInserter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Calendar: config.CalendarConfig{Name: "Onelaudos", TimeZone: "America/Sao_Paulo"}}
	h := handlers.NewCalendarHandler(cfg)
	h.NewInserter = func(_ context.Context, _ string) (handlers.EventInserter, error) {
		return fake, nil
	}
	router := gin.New()
	router.POST("/api/sync-calendar", h.Sync)
	return router
}

func TestSync_PartialFailureIsReportedPerEvent(t *testing.T) {
	fake := &fakeInserter{failTitle: "Turno B"}
	router := newCalendarRouter(fake)
	ts := &testServer{router: router}

	w := ts.do(t, jsonRequest(t, http.MethodPost, "/api/sync-calendar", gin.H{
		"accessToken": "google-token",
		"events": []gin.H{
			{"title": "Turno A", "start": "2025-03-01T08:00:00Z", "end": "2025-03-01T12:00:00Z"},
			{"title": "Turno B", "start": "2025-03-02T08:00:00Z"},
			{"title": "Turno C", "start": "2025-03-03T08:00:00Z"},
		},
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	results := body["results"].([]interface{})
	require.Len(t, results, 3, "every event gets a result, failures included")

	first := results[0].(map[string]interface{})
	second := results[1].(map[string]interface{})
	third := results[2].(map[string]interface{})

	assert.Equal(t, "success", first["status"])
	assert.NotEmpty(t, first["id"])

	assert.Equal(t, "error", second["status"])
	assert.Equal(t, "Turno B", second["event"], "the failing event is named")
	assert.Contains(t, second["error"], "quota exceeded")

	assert.Equal(t, "success", third["status"])

	assert.Equal(t, []string{"Onelaudos"}, fake.ensured)
	assert.Len(t, fake.inserted, 2)
}

func TestSync_DefaultsEndToOneHourAfterStart(t *testing.T) {
	fake := &fakeInserter{}
	router := newCalendarRouter(fake)
	ts := &testServer{router: router}

	w := ts.do(t, jsonRequest(t, http.MethodPost, "/api/sync-calendar", gin.H{
		"accessToken": "google-token",
		"events": []gin.H{
			{"title": "Turno A", "start": "2025-03-01T08:00:00Z"},
		},
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, fake.inserted, 1)
	ev := fake.inserted[0]
	assert.Equal(t, "2025-03-01T08:00:00Z", ev.Start.DateTime)
	assert.Equal(t, "2025-03-01T09:00:00Z", ev.End.DateTime)
	assert.Equal(t, "America/Sao_Paulo", ev.Start.TimeZone)
}

func TestSync_InvalidStartIsAPerEventError(t *testing.T) {
	fake := &fakeInserter{}
	router := newCalendarRouter(fake)
	ts := &testServer{router: router}

	w := ts.do(t, jsonRequest(t, http.MethodPost, "/api/sync-calendar", gin.H{
		"accessToken": "google-token",
		"events": []gin.H{
			{"title": "Broken", "start": "not-a-date"},
			{"title": "Fine", "start": "2025-03-01T08:00:00Z"},
		},
	}))
	require.Equal(t, http.StatusOK, w.Code)

	results := decodeBody(t, w)["results"].([]interface{})
	require.Len(t, results, 2)
	broken := results[0].(map[string]interface{})
	assert.Equal(t, "error", broken["status"])
	assert.Equal(t, "Broken", broken["event"])
	assert.Equal(t, "success", results[1].(map[string]interface{})["status"])
}

func TestSync_MissingTokenIsUnauthorized(t *testing.T) {
	router := newCalendarRouter(&fakeInserter{})
	ts := &testServer{router: router}

	w := ts.do(t, jsonRequest(t, http.MethodPost, "/api/sync-calendar", gin.H{
		"events": []gin.H{{"title": "Turno A", "start": "2025-03-01T08:00:00Z"}},
	}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSync_NoEventsIsBadRequest(t *testing.T) {
	router := newCalendarRouter(&fakeInserter{})
	ts := &testServer{router: router}

	w := ts.do(t, jsonRequest(t, http.MethodPost, "/api/sync-calendar", gin.H{
		"accessToken": "google-token",
		"events":      []gin.H{},
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
