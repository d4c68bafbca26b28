package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/config"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/utils"
)

// EventInserter is the narrow slice of the calendar API the sync needs.
type EventInserter interface {
	EnsureCalendar(ctx context.Context, name, description string) (string, error)
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (string, error)
}

// CalendarHandler pushes mapped spreadsheet events to Google Calendar.
type CalendarHandler struct {
	Cfg *config.Config
	// NewInserter builds the API client for one request's OAuth token.
	// Swapped out in tests.
	NewInserter func(ctx context.Context, accessToken string) (EventInserter, error)
}

// NewCalendarHandler creates a CalendarHandler backed by the Google
// Calendar API.
func NewCalendarHandler(cfg *config.Config) *CalendarHandler {
	return &CalendarHandler{
		Cfg:         cfg,
		NewInserter: newGoogleInserter,
	}
}

// SyncEvent is one event mapped from spreadsheet columns.
type SyncEvent struct {
	Title       string `json:"title" binding:"required"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Start       string `json:"start" binding:"required"`
	End         string `json:"end"`
}

// SyncRequest represents the request body for a calendar sync batch.
type SyncRequest struct {
	AccessToken string      `json:"accessToken"`
	Events      []SyncEvent `json:"events"`
}

// SyncResult reports the outcome of one event insert.
type SyncResult struct {
	ID     string `json:"id,omitempty"`
	Event  string `json:"event,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Sync inserts every event of the batch concurrently and reports each
// outcome individually. A failed event never fails the batch, and events
// already started are not cancelled.
func (h *CalendarHandler) Sync(c *gin.Context) {
	var req SyncRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.AccessToken == "" {
		utils.Unauthorized(c, "Not authenticated")
		return
	}
	if len(req.Events) == 0 {
		utils.BadRequest(c, "No events provided")
		return
	}

	ctx := c.Request.Context()
	inserter, err := h.NewInserter(ctx, req.AccessToken)
	if err != nil {
		utils.InternalServerError(c, "failed to create calendar client: "+err.Error())
		return
	}

	calendarID, err := inserter.EnsureCalendar(ctx, h.Cfg.Calendar.Name, "Calendário de turnos de ultrassonografia")
	if err != nil {
		utils.InternalServerError(c, "failed to resolve calendar: "+err.Error())
		return
	}

	results := make([]SyncResult, len(req.Events))
	var wg sync.WaitGroup
	for i, ev := range req.Events {
		wg.Add(1)
		go func(i int, ev SyncEvent) {
			defer wg.Done()
			results[i] = h.insertOne(ctx, inserter, calendarID, ev)
		}(i, ev)
	}
	wg.Wait()

	c.JSON(200, gin.H{
		"success": true,
		"results": results,
	})
}

func (h *CalendarHandler) insertOne(ctx context.Context, inserter EventInserter, calendarID string, ev SyncEvent) SyncResult {
	failure := func(err error) SyncResult {
		return SyncResult{Event: ev.Title, Status: "error", Error: err.Error()}
	}

	start, err := h.parseEventTime(ev.Start)
	if err != nil {
		return failure(fmt.Errorf("invalid start time: %w", err))
	}
	end := start.Add(time.Hour)
	if ev.End != "" {
		end, err = h.parseEventTime(ev.End)
		if err != nil {
			return failure(fmt.Errorf("invalid end time: %w", err))
		}
	}

	id, err := inserter.InsertEvent(ctx, calendarID, &calendar.Event{
		Summary:     ev.Title,
		Location:    ev.Location,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: h.Cfg.Calendar.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: h.Cfg.Calendar.TimeZone,
		},
	})
	if err != nil {
		return failure(err)
	}
	return SyncResult{ID: id, Status: "success"}
}

// parseEventTime accepts the timestamp shapes spreadsheet cells tend to
// hold; zoneless values are read in the configured calendar time zone.
func (h *CalendarHandler) parseEventTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	loc, err := time.LoadLocation(h.Cfg.Calendar.TimeZone)
	if err != nil {
		loc = time.Local
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// googleInserter is the production EventInserter on the Calendar API.
type googleInserter struct {
	svc *calendar.Service
}

func newGoogleInserter(ctx context.Context, accessToken string) (EventInserter, error) {
	svc, err := calendar.NewService(ctx, option.WithTokenSource(
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}),
	))
	if err != nil {
		return nil, err
	}
	return &googleInserter{svc: svc}, nil
}

// EnsureCalendar finds the named calendar in the user's list, creating it
// when absent.
func (g *googleInserter) EnsureCalendar(ctx context.Context, name, description string) (string, error) {
	list, err := g.svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return "", err
	}
	for _, item := range list.Items {
		if item.Summary == name {
			return item.Id, nil
		}
	}

	created, err := g.svc.Calendars.Insert(&calendar.Calendar{
		Summary:     name,
		Description: description,
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

// InsertEvent inserts one event and returns its provider-assigned ID.
func (g *googleInserter) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (string, error) {
	created, err := g.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}
