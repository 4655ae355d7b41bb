package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/slotfinder/internal/database"
	"github.com/dukerupert/slotfinder/internal/model"
	"github.com/dukerupert/slotfinder/internal/store"
	"github.com/dukerupert/slotfinder/internal/websocket"
)

type testEnv struct {
	mux   *http.ServeMux
	store *store.EventStore
	hub   *websocket.Hub
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	es := store.NewEventStore(db)
	hub := websocket.NewHub(slog.Default())
	eventH := NewCalendarEventHandler(es, hub, slog.Default())
	meetingH := NewMeetingHandler(es, slog.Default())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/events", eventH.Create)
	mux.HandleFunc("GET /api/events", eventH.List)
	mux.HandleFunc("GET /api/events/{id}", eventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", eventH.Delete)
	mux.HandleFunc("POST /api/meetings/query", meetingH.Query)

	return &testEnv{mux: mux, store: es, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeSlots(t *testing.T, rec *httptest.ResponseRecorder) []slotResponse {
	t.Helper()
	var resp queryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Slots
}

func TestCreateEvent(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, "POST", "/api/events", `{"name":"Standup","day":"2026-02-05","start_minute":540,"end_minute":555,"attendees":["alice","bob"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body)
	}

	var got model.CalendarEvent
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "Standup" || got.StartMinute != 540 || got.EndMinute != 555 {
		t.Errorf("event = %+v", got)
	}
	if len(got.Attendees) != 2 {
		t.Errorf("attendees = %v, want 2", got.Attendees)
	}
}

func TestCreateEventValidation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing name", `{"day":"2026-02-05","start_minute":0,"end_minute":30}`},
		{"bad day", `{"name":"x","day":"Feb 5","start_minute":0,"end_minute":30}`},
		{"inverted", `{"name":"x","day":"2026-02-05","start_minute":60,"end_minute":30}`},
		{"past end of day", `{"name":"x","day":"2026-02-05","start_minute":1400,"end_minute":1500}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", "/api/events", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestGetUpdateDeleteEvent(t *testing.T) {
	env := setupTestEnv(t)

	ev, err := env.store.Create("Review", "2026-02-05", 600, 660, []string{"alice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	path := "/api/events/" + jsonID(ev.ID)

	if rec := env.do(t, "GET", path, ""); rec.Code != http.StatusOK {
		t.Errorf("get status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec := env.do(t, "PUT", path, `{"name":"Review v2","day":"2026-02-05","start_minute":700,"end_minute":760,"attendees":["carol"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
	updated, _ := env.store.GetByID(ev.ID)
	if updated.Name != "Review v2" || updated.StartMinute != 700 {
		t.Errorf("updated = %+v", updated)
	}

	if rec := env.do(t, "DELETE", path, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if rec := env.do(t, "GET", path, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec := env.do(t, "DELETE", path, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec := env.do(t, "GET", "/api/events/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestListEvents(t *testing.T) {
	env := setupTestEnv(t)

	env.store.Create("A", "2026-02-05", 60, 120, []string{"alice"})
	env.store.Create("B", "2026-02-05", 300, 360, []string{"bob"})
	env.store.Create("C", "2026-02-06", 60, 120, []string{"alice"})

	rec := env.do(t, "GET", "/api/events?day=2026-02-05", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var events []model.CalendarEvent
	json.NewDecoder(rec.Body).Decode(&events)
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}

	rec = env.do(t, "GET", "/api/events?day=2026-02-05&attendees=bob", "")
	events = nil
	json.NewDecoder(rec.Body).Decode(&events)
	if len(events) != 1 || events[0].Name != "B" {
		t.Errorf("filtered events = %+v, want only B", events)
	}

	if rec := env.do(t, "GET", "/api/events", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing day status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestQueryStoredEvents(t *testing.T) {
	env := setupTestEnv(t)

	env.store.Create("Event 1", "2026-02-05", 600, 700, []string{"alice"})
	env.store.Create("Other person", "2026-02-05", 100, 200, []string{"bob"})
	env.store.Create("Other day", "2026-02-06", 800, 900, []string{"alice"})

	rec := env.do(t, "POST", "/api/meetings/query", `{"day":"2026-02-05","attendees":["alice"],"duration":30}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	got := decodeSlots(t, rec)
	want := []slotResponse{
		{Start: 0, End: 600, Duration: 600},
		{Start: 700, End: 1440, Inclusive: true, Duration: 740},
	}
	if len(got) != len(want) {
		t.Fatalf("slots = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestQueryInlineEvents(t *testing.T) {
	env := setupTestEnv(t)

	body := `{"attendees":["A"],"duration":10,"events":[
		{"name":"e1","start_minute":100,"end_minute":300,"attendees":["A"]},
		{"name":"e2","start_minute":200,"end_minute":400,"attendees":["A"]}
	]}`
	rec := env.do(t, "POST", "/api/meetings/query", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	got := decodeSlots(t, rec)
	if len(got) != 2 || got[0].End != 100 || got[1].Start != 400 || !got[1].Inclusive {
		t.Errorf("slots = %+v, want [0,100) and [400,1440]", got)
	}
}

func TestQueryTrimsAttendees(t *testing.T) {
	env := setupTestEnv(t)

	env.store.Create("Busy", "2026-02-05", 0, 1440, []string{"alice"})

	tests := []struct {
		name string
		body string
	}{
		{"stored events", `{"day":"2026-02-05","attendees":[" alice "],"duration":30}`},
		{"inline events", `{"attendees":["alice"],"duration":30,"events":[{"name":"Busy","start_minute":0,"end_minute":1440,"attendees":[" alice"]}]}`},
		{"padded on both sides", `{"attendees":["alice\t"],"duration":30,"events":[{"name":"Busy","start_minute":0,"end_minute":1440,"attendees":["  alice"]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", "/api/meetings/query", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
			}
			if got := decodeSlots(t, rec); len(got) != 0 {
				t.Errorf("slots = %+v, want none for an attendee busy all day", got)
			}
		})
	}
}

func TestQueryNoSlotsIsEmptyArray(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, "POST", "/api/meetings/query", `{"attendees":["A"],"duration":1500,"events":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"slots":[]`) {
		t.Errorf("body = %s, want empty slots array", rec.Body)
	}
}

func TestQueryValidation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `nope`},
		{"no day and no events", `{"attendees":["A"],"duration":30}`},
		{"negative duration", `{"attendees":["A"],"duration":-1,"events":[]}`},
		{"inverted inline event", `{"attendees":["A"],"duration":30,"events":[{"name":"x","start_minute":50,"end_minute":10,"attendees":["A"]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", "/api/meetings/query", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d: %s", rec.Code, http.StatusBadRequest, rec.Body)
			}
		})
	}
}

func TestMutationsBroadcast(t *testing.T) {
	env := setupTestEnv(t)
	rec := &recordingHub{}
	h := NewCalendarEventHandler(env.store, rec, slog.Default())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/events", h.Create)
	mux.HandleFunc("PUT /api/events/{id}", h.Update)
	mux.HandleFunc("DELETE /api/events/{id}", h.Delete)
	env.mux = mux

	resp := env.do(t, "POST", "/api/events", `{"name":"Standup","day":"2026-02-05","start_minute":540,"end_minute":555,"attendees":["alice"]}`)
	var created model.CalendarEvent
	json.NewDecoder(resp.Body).Decode(&created)
	path := "/api/events/" + jsonID(created.ID)

	env.do(t, "PUT", path, `{"name":"Standup","day":"2026-02-06","start_minute":540,"end_minute":555,"attendees":["alice"]}`)
	env.do(t, "DELETE", path, "")

	want := []websocket.Message{
		websocket.NewMessage("calendar_event", "created", created.ID, "2026-02-05"),
		websocket.NewMessage("calendar_event", "updated", created.ID, "2026-02-05"),
		websocket.NewMessage("calendar_event", "updated", created.ID, "2026-02-06"),
		websocket.NewMessage("calendar_event", "deleted", created.ID, "2026-02-06"),
	}
	if len(rec.msgs) != len(want) {
		t.Fatalf("got %d messages %+v, want %d", len(rec.msgs), rec.msgs, len(want))
	}
	for i := range want {
		if rec.msgs[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, rec.msgs[i], want[i])
		}
	}
}

type recordingHub struct {
	msgs []websocket.Message
}

func (r *recordingHub) Broadcast(msg websocket.Message) {
	r.msgs = append(r.msgs, msg)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
