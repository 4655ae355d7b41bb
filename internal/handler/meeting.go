package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/slotfinder/internal/meeting"
	"github.com/dukerupert/slotfinder/internal/model"
	"github.com/dukerupert/slotfinder/internal/store"
)

// MeetingHandler answers free-slot queries, either against the stored events
// of a day or against events supplied in the request body.
type MeetingHandler struct {
	eventStore *store.EventStore
	logger     *slog.Logger
}

func NewMeetingHandler(es *store.EventStore, logger *slog.Logger) *MeetingHandler {
	return &MeetingHandler{eventStore: es, logger: logger}
}

type inlineEvent struct {
	Name        string   `json:"name"`
	StartMinute int      `json:"start_minute"`
	EndMinute   int      `json:"end_minute"`
	Attendees   []string `json:"attendees"`
}

type queryRequest struct {
	Day       string         `json:"day"`
	Attendees []string       `json:"attendees"`
	Duration  int            `json:"duration"`
	Events    *[]inlineEvent `json:"events"`
}

type slotResponse struct {
	Start     int  `json:"start"`
	End       int  `json:"end"`
	Inclusive bool `json:"inclusive"`
	Duration  int  `json:"duration"`
}

type queryResponse struct {
	Day   string         `json:"day,omitempty"`
	Slots []slotResponse `json:"slots"`
}

func (h *MeetingHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	// Stored attendee ids are normalized, so request ids must match that form.
	req.Attendees = store.NormalizeAttendees(req.Attendees)

	var events []meeting.Event
	if req.Events != nil {
		for _, e := range *req.Events {
			events = append(events, meeting.Event{
				Name:      e.Name,
				When:      meeting.FromStartEnd(e.StartMinute, e.EndMinute, false),
				Attendees: store.NormalizeAttendees(e.Attendees),
			})
		}
	} else {
		if _, err := time.Parse(time.DateOnly, req.Day); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "day must be YYYY-MM-DD format when events are not given"})
			return
		}
		stored, err := h.eventStore.ListByDayForAttendees(req.Day, req.Attendees)
		if err != nil {
			h.logger.Error("load events for query", "day", req.Day, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load events"})
			return
		}
		events = toMeetingEvents(stored)
	}

	mr := meeting.MeetingRequest{Attendees: req.Attendees, Duration: req.Duration}
	slots, err := meeting.QueryStrict(events, mr)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Debug("meeting query",
		"day", req.Day,
		"attendees", len(req.Attendees),
		"events", len(events),
		"duration", req.Duration,
		"slots", len(slots),
	)

	resp := queryResponse{Day: req.Day, Slots: make([]slotResponse, 0, len(slots))}
	for _, s := range slots {
		resp.Slots = append(resp.Slots, slotResponse{
			Start:     s.Start,
			End:       s.End,
			Inclusive: s.Inclusive,
			Duration:  s.Duration(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func toMeetingEvents(stored []model.CalendarEvent) []meeting.Event {
	events := make([]meeting.Event, 0, len(stored))
	for _, e := range stored {
		events = append(events, meeting.Event{
			Name:      e.Name,
			When:      meeting.FromStartEnd(e.StartMinute, e.EndMinute, false),
			Attendees: e.Attendees,
		})
	}
	return events
}
