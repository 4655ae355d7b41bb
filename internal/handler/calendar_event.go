package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/slotfinder/internal/meeting"
	"github.com/dukerupert/slotfinder/internal/model"
	"github.com/dukerupert/slotfinder/internal/store"
	"github.com/dukerupert/slotfinder/internal/websocket"
)

// Broadcaster fans change notifications out to subscribers.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

type CalendarEventHandler struct {
	eventStore *store.EventStore
	hub        Broadcaster
	logger     *slog.Logger
}

func NewCalendarEventHandler(es *store.EventStore, hub Broadcaster, logger *slog.Logger) *CalendarEventHandler {
	return &CalendarEventHandler{eventStore: es, hub: hub, logger: logger}
}

func (h *CalendarEventHandler) broadcast(action string, id int64, day string) {
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage("calendar_event", action, id, day))
	}
}

type eventRequest struct {
	Name        string   `json:"name"`
	Day         string   `json:"day"`
	StartMinute int      `json:"start_minute"`
	EndMinute   int      `json:"end_minute"`
	Attendees   []string `json:"attendees"`
}

func (h *CalendarEventHandler) parseAndValidate(r *http.Request, w http.ResponseWriter) (*eventRequest, bool) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return nil, false
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return nil, false
	}

	if _, err := time.Parse(time.DateOnly, req.Day); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "day must be YYYY-MM-DD format"})
		return nil, false
	}

	ev := meeting.Event{
		Name:      req.Name,
		When:      meeting.FromStartEnd(req.StartMinute, req.EndMinute, false),
		Attendees: req.Attendees,
	}
	if err := meeting.Validate([]meeting.Event{ev}, meeting.MeetingRequest{}); err != nil {
		writeError(w, err)
		return nil, false
	}

	return &req, true
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseAndValidate(r, w)
	if !ok {
		return
	}

	event, err := h.eventStore.Create(req.Name, req.Day, req.StartMinute, req.EndMinute, req.Attendees)
	if err != nil {
		h.logger.Error("create calendar event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create event"})
		return
	}

	h.broadcast("created", event.ID, event.Day)
	writeJSON(w, http.StatusCreated, event)
}

func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if _, err := time.Parse(time.DateOnly, day); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "day query parameter must be YYYY-MM-DD format"})
		return
	}

	var (
		events []model.CalendarEvent
		err    error
	)
	if attendees := splitAttendees(r.URL.Query().Get("attendees")); len(attendees) > 0 {
		events, err = h.eventStore.ListByDayForAttendees(day, attendees)
	} else {
		events, err = h.eventStore.ListByDay(day)
	}
	if err != nil {
		h.logger.Error("list calendar events", "day", day, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *CalendarEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	event, err := h.eventStore.GetByID(id)
	if err != nil {
		h.logger.Error("get calendar event", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.eventStore.GetByID(id)
	if err != nil {
		h.logger.Error("get calendar event", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	req, ok := h.parseAndValidate(r, w)
	if !ok {
		return
	}

	event, err := h.eventStore.Update(id, req.Name, req.Day, req.StartMinute, req.EndMinute, req.Attendees)
	if err != nil {
		h.logger.Error("update calendar event", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update event"})
		return
	}

	// A move to another day invalidates both days.
	if existing.Day != event.Day {
		h.broadcast("updated", id, existing.Day)
	}
	h.broadcast("updated", id, event.Day)
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.eventStore.GetByID(id)
	if err != nil {
		h.logger.Error("get calendar event", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	if err := h.eventStore.Delete(id); err != nil {
		h.logger.Error("delete calendar event", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete event"})
		return
	}

	h.broadcast("deleted", id, existing.Day)
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps validation failures to 400 and anything else to 500.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, meeting.ErrInvalidArgument) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func splitAttendees(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
