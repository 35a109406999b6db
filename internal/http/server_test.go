package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"posto/internal/billing"
	"posto/internal/core"
)

type fakeStore struct {
	bookings []core.Booking
	statuses []core.PeriodStatus
	nextID   int
	fail     bool
}

func (f *fakeStore) ListBookings(ctx context.Context) ([]core.Booking, error) {
	if f.fail {
		return nil, core.ErrStoreUnavailable
	}
	return append([]core.Booking(nil), f.bookings...), nil
}

func (f *fakeStore) CreateBooking(ctx context.Context, date core.Date, occupant string) (core.Booking, error) {
	if f.fail {
		return core.Booking{}, core.ErrStoreUnavailable
	}
	for _, b := range f.bookings {
		if b.Date.Equal(date) {
			return core.Booking{}, core.ErrDateTaken
		}
	}
	f.nextID++
	b := core.Booking{ID: fmt.Sprintf("b%d", f.nextID), Date: date, Occupant: occupant}
	f.bookings = append(f.bookings, b)
	return b, nil
}

func (f *fakeStore) GetBooking(ctx context.Context, id string) (core.Booking, error) {
	for _, b := range f.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return core.Booking{}, core.ErrNotFound
}

func (f *fakeStore) DeleteBooking(ctx context.Context, id string) error {
	for i, b := range f.bookings {
		if b.ID == id {
			f.bookings = append(f.bookings[:i], f.bookings[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) ListStatuses(ctx context.Context) ([]core.PeriodStatus, error) {
	if f.fail {
		return nil, core.ErrStoreUnavailable
	}
	return append([]core.PeriodStatus(nil), f.statuses...), nil
}

func (f *fakeStore) UpsertStatus(ctx context.Context, start, end core.Date, paid bool) (core.PeriodStatus, error) {
	if f.fail {
		return core.PeriodStatus{}, core.ErrStoreUnavailable
	}
	for i, s := range f.statuses {
		if s.Start.Equal(start) && s.End.Equal(end) {
			f.statuses[i].Paid = paid
			return f.statuses[i], nil
		}
	}
	s := core.PeriodStatus{Start: start, End: end, Paid: paid}
	f.statuses = append(f.statuses, s)
	return s, nil
}

type fakeQueue struct {
	published []core.Period
	fail      bool
}

func (q *fakeQueue) PublishStatementRequest(ctx context.Context, p core.Period) error {
	if q.fail {
		return fmt.Errorf("broker unavailable")
	}
	q.published = append(q.published, p)
	return nil
}

func newTestServer(t *testing.T, store *fakeStore, queue *fakeQueue) *Server {
	t.Helper()

	var q StatementQueue
	if queue != nil {
		q = queue
	}
	srv := NewServer(Options{
		Addr:     ":0",
		Bookings: store,
		Statuses: store,
		Queue:    q,
		Tariff: billing.Tariff{
			DailyRate:   core.Money{Cents: 250},
			MonthlyRent: core.Money{Cents: 5000},
			Payer:       "anna",
		},
		Anchor: core.NewDate(2025, 11, 10),
		Payer:  "anna",
		Owner:  "bruno",
	})
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	return srv
}

func postForm(srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	return w
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	return w
}

func TestIndexRenders(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, nil)

	w := get(srv, "/?date=2025-11-15")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "November 2025") {
		t.Errorf("Index missing calendar title: %s", body)
	}
	if !strings.Contains(body, "2025-11-10") {
		t.Errorf("Index missing anchored billing period: %s", body)
	}
}

func TestIndexRejectsBadDate(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, nil)

	w := get(srv, "/?date=not-a-date")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCreateBooking(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store, nil)

	w := postForm(srv, "/bookings", url.Values{"date": {"2025-11-12"}, "occupant": {"anna"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	trigger := w.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"booking:created"`) || !strings.Contains(trigger, "2025-11-12") {
		t.Errorf("Missing booking:created trigger: %s", trigger)
	}
	if len(store.bookings) != 1 {
		t.Fatalf("Store has %d bookings, want 1", len(store.bookings))
	}
}

func TestCreateBookingConflict(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store, nil)

	postForm(srv, "/bookings", url.Values{"date": {"2025-11-12"}, "occupant": {"anna"}})
	w := postForm(srv, "/bookings", url.Values{"date": {"2025-11-12"}, "occupant": {"bruno"}})
	if w.Code != http.StatusConflict {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusConflict)
	}
	if len(store.bookings) != 1 {
		t.Errorf("Store has %d bookings, want 1", len(store.bookings))
	}
	if store.bookings[0].Occupant != "anna" {
		t.Errorf("First claim lost: occupant = %q", store.bookings[0].Occupant)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, nil)

	tests := []struct {
		name string
		form url.Values
	}{
		{"bad date", url.Values{"date": {"12/11/2025"}, "occupant": {"anna"}}},
		{"unknown occupant", url.Values{"date": {"2025-11-12"}, "occupant": {"carla"}}},
		{"missing occupant", url.Values{"date": {"2025-11-12"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postForm(srv, "/bookings", tt.form)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestDeleteBooking(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store, nil)
	b, _ := store.CreateBooking(context.Background(), core.NewDate(2025, 11, 12), "anna")

	t.Run("wrong occupant is a conflict", func(t *testing.T) {
		w := postForm(srv, "/bookings/delete", url.Values{"id": {b.ID}, "occupant": {"bruno"}})
		if w.Code != http.StatusConflict {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusConflict)
		}
		if len(store.bookings) != 1 {
			t.Errorf("Booking deleted by wrong occupant")
		}
	})

	t.Run("owner frees the day", func(t *testing.T) {
		w := postForm(srv, "/bookings/delete", url.Values{"id": {b.ID}, "occupant": {"anna"}})
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}
		if !strings.Contains(w.Header().Get("HX-Trigger"), `"booking:deleted"`) {
			t.Errorf("Missing booking:deleted trigger")
		}
		if len(store.bookings) != 0 {
			t.Errorf("Booking still present after delete")
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		w := postForm(srv, "/bookings/delete", url.Values{"id": {"nope"}, "occupant": {"anna"}})
		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestTogglePeriod(t *testing.T) {
	store := &fakeStore{}
	queue := &fakeQueue{}
	srv := newTestServer(t, store, queue)

	form := url.Values{"start": {"2025-11-10"}, "end": {"2025-12-10"}}

	w := postForm(srv, "/periods/toggle", form)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), `"paid":true`) {
		t.Errorf("First toggle should mark paid: %s", w.Header().Get("HX-Trigger"))
	}
	if len(queue.published) != 1 {
		t.Fatalf("Published %d statement requests, want 1", len(queue.published))
	}
	if got := queue.published[0].Start.String(); got != "2025-11-10" {
		t.Errorf("Published period start = %s, want 2025-11-10", got)
	}

	// Toggling back marks unpaid and publishes nothing new.
	w = postForm(srv, "/periods/toggle", form)
	if !strings.Contains(w.Header().Get("HX-Trigger"), `"paid":false`) {
		t.Errorf("Second toggle should mark unpaid: %s", w.Header().Get("HX-Trigger"))
	}
	if len(queue.published) != 1 {
		t.Errorf("Published %d statement requests after unpaid toggle, want 1", len(queue.published))
	}
}

func TestTogglePeriodPublishFailureKeepsToggle(t *testing.T) {
	store := &fakeStore{}
	queue := &fakeQueue{fail: true}
	srv := newTestServer(t, store, queue)

	w := postForm(srv, "/periods/toggle", url.Values{"start": {"2025-11-10"}, "end": {"2025-12-10"}})
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(store.statuses) != 1 || !store.statuses[0].Paid {
		t.Errorf("Toggle rolled back on publish failure: %+v", store.statuses)
	}
}

func TestTogglePeriodRejectsUnknownBoundaries(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store, nil)

	// Off-anchor boundaries must never reach the store: an arbitrary status
	// row would distort period generation with no way to remove it.
	w := postForm(srv, "/periods/toggle", url.Values{"start": {"2025-11-11"}, "end": {"2025-12-11"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(store.statuses) != 0 {
		t.Errorf("Unknown period persisted: %+v", store.statuses)
	}

	// A later anchored period is still toggleable.
	w = postForm(srv, "/periods/toggle", url.Values{"start": {"2026-02-10"}, "end": {"2026-03-10"}})
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if len(store.statuses) != 1 {
		t.Errorf("Anchored period not persisted: %+v", store.statuses)
	}
}

func TestTogglePeriodValidation(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, nil)

	tests := []struct {
		name string
		form url.Values
	}{
		{"bad start", url.Values{"start": {"nope"}, "end": {"2025-12-10"}}},
		{"bad end", url.Values{"start": {"2025-11-10"}, "end": {"nope"}}},
		{"inverted", url.Values{"start": {"2025-12-10"}, "end": {"2025-11-10"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postForm(srv, "/periods/toggle", tt.form)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestExportStatement(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store, nil)
	store.CreateBooking(context.Background(), core.NewDate(2025, 11, 12), "anna")
	store.CreateBooking(context.Background(), core.NewDate(2025, 11, 13), "anna")

	w := get(srv, "/export/statement?date=2025-11-15")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "statement_2025-11-10_2025-12-10.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	body := w.Body.String()
	for _, want := range []string{"period_start,2025-11-10", "used_days,2", "usage_amount,5.00", "remainder_amount,45.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("Statement missing %q:\n%s", want, body)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		if w := get(srv, path); w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, w.Code, http.StatusOK)
		}
	}
}

func TestStoreFailureIs500(t *testing.T) {
	srv := newTestServer(t, &fakeStore{fail: true}, nil)

	w := get(srv, "/?date=2025-11-15")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, nil)

	w := get(srv, "/?date=2025-11-15")
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if w.Header().Get(h) == "" {
			t.Errorf("Missing %s header", h)
		}
	}
}
