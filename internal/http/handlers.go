package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"posto/internal/billing"
	"posto/internal/calendar"
	"posto/internal/core"
	"posto/internal/statement"
)

// CalendarCell is one rendered day slot.
type CalendarCell struct {
	Date      core.Date
	Day       int
	InMonth   bool
	IsToday   bool
	Selected  bool
	Occupant  string
	BookingID string
}

// CalendarView drives the month grid partial.
type CalendarView struct {
	Year      int
	Month     int
	Title     string
	PrevYear  int
	PrevMonth int
	NextYear  int
	NextMonth int
	Selected  core.Date
	Payer     string
	Owner     string
	Weeks     [][]CalendarCell
}

// SettlementLine is one billing period row of the period panel.
type SettlementLine struct {
	Start     string
	End       string
	UsedDays  int
	Usage     string
	Remainder string
	Paid      bool
	Current   bool
}

// PeriodView drives the settlement panel partial.
type PeriodView struct {
	Selected    core.Date
	Payer       string
	Owner       string
	DailyRate   string
	MonthlyRent string
	Lines       []SettlementLine
	Current     *SettlementLine
}

// IndexView drives the full page.
type IndexView struct {
	Calendar CalendarView
	Period   PeriodView
	Payer    string
	Owner    string
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"monthName": func(m int) string { return time.Month(m).String() },
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Failed rendering template", "template", name, "error", err)
		InternalServerError("Failed to render page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// selectedDate reads the ?date= query parameter, defaulting to today.
func selectedDate(r *http.Request) (core.Date, error) {
	raw := sanitizeInput(r.URL.Query().Get("date"))
	if raw == "" {
		return core.Today(), nil
	}
	return core.ParseDate(raw)
}

func (s *Server) buildCalendarView(bookings []core.Booking, year, month int, selected core.Date) CalendarView {
	byDate := make(map[string]core.Booking, len(bookings))
	for _, b := range bookings {
		byDate[b.Date.String()] = b
	}

	today := core.Today()
	cells := calendar.MonthGrid(year, month)
	weeks := make([][]CalendarCell, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		week := make([]CalendarCell, 0, 7)
		for _, c := range cells[i : i+7] {
			cell := CalendarCell{
				Date:     c.Date,
				Day:      c.Date.Day(),
				InMonth:  c.InMonth,
				IsToday:  c.Date.Equal(today),
				Selected: c.Date.Equal(selected),
			}
			if b, ok := byDate[c.Date.String()]; ok {
				cell.Occupant = b.Occupant
				cell.BookingID = b.ID
			}
			week = append(week, cell)
		}
		weeks = append(weeks, week)
	}

	prev := core.NewDate(year, month-1, 1)
	next := core.NewDate(year, month+1, 1)

	return CalendarView{
		Year:      year,
		Month:     month,
		Title:     fmt.Sprintf("%s %d", time.Month(month), year),
		PrevYear:  prev.Year(),
		PrevMonth: prev.Month(),
		NextYear:  next.Year(),
		NextMonth: next.Month(),
		Selected:  selected,
		Payer:     s.occupants[0],
		Owner:     s.occupants[1],
		Weeks:     weeks,
	}
}

func (s *Server) buildPeriodView(bookings []core.Booking, statuses []core.PeriodStatus, selected core.Date) PeriodView {
	horizon := billing.Horizon(bookings, selected, core.Today())
	periods := billing.GeneratePeriods(s.anchor, horizon, statuses)
	settlements := s.tariff.SettleAll(periods, bookings, statuses)
	current, hasCurrent := billing.CurrentPeriod(periods, selected)

	view := PeriodView{
		Selected:    selected,
		Payer:       s.occupants[0],
		Owner:       s.occupants[1],
		DailyRate:   statement.FormatAmount(s.tariff.DailyRate),
		MonthlyRent: statement.FormatAmount(s.tariff.MonthlyRent),
	}
	for _, st := range settlements {
		line := SettlementLine{
			Start:     st.Period.Start.String(),
			End:       st.Period.End.String(),
			UsedDays:  st.UsedDays,
			Usage:     statement.FormatAmount(st.Usage),
			Remainder: statement.FormatAmount(st.Remainder),
			Paid:      st.Paid,
			Current:   hasCurrent && st.Period.Equal(current),
		}
		view.Lines = append(view.Lines, line)
		if line.Current {
			c := line
			view.Current = &c
		}
	}
	return view
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Page not found").Write(w)
		return
	}
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	selected, err := selectedDate(r)
	if err != nil {
		BadRequestError("Invalid date. Use YYYY-MM-DD.").Write(w)
		return
	}

	bookings, err := s.loadBookings(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed loading bookings", "error", err)
		InternalServerError("Failed to load bookings").Write(w)
		return
	}
	statuses, err := s.loadStatuses(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed loading period statuses", "error", err)
		InternalServerError("Failed to load period statuses").Write(w)
		return
	}

	view := IndexView{
		Calendar: s.buildCalendarView(bookings, selected.Year(), selected.Month(), selected),
		Period:   s.buildPeriodView(bookings, statuses, selected),
		Payer:    s.occupants[0],
		Owner:    s.occupants[1],
	}
	s.render(w, "index.html", view)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	selected, err := selectedDate(r)
	if err != nil {
		BadRequestError("Invalid date. Use YYYY-MM-DD.").Write(w)
		return
	}
	year := selected.Year()
	month := selected.Month()
	if raw := r.URL.Query().Get("year"); raw != "" {
		if year, err = strconv.Atoi(raw); err != nil {
			BadRequestError("Invalid year").Write(w)
			return
		}
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		if month, err = strconv.Atoi(raw); err != nil || month < 1 || month > 12 {
			BadRequestError("Invalid month").Write(w)
			return
		}
	}

	bookings, err := s.loadBookings(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed loading bookings", "error", err)
		InternalServerError("Failed to load bookings").Write(w)
		return
	}

	s.render(w, "calendar.html", s.buildCalendarView(bookings, year, month, selected))
}

func (s *Server) handlePeriod(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	selected, err := selectedDate(r)
	if err != nil {
		BadRequestError("Invalid date. Use YYYY-MM-DD.").Write(w)
		return
	}

	bookings, err := s.loadBookings(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed loading bookings", "error", err)
		InternalServerError("Failed to load bookings").Write(w)
		return
	}
	statuses, err := s.loadStatuses(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed loading period statuses", "error", err)
		InternalServerError("Failed to load period statuses").Write(w)
		return
	}

	s.render(w, "period_summary.html", s.buildPeriodView(bookings, statuses, selected))
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}

	date, err := core.ParseDate(sanitizeInput(r.FormValue("date")))
	if err != nil {
		BadRequestError("Invalid date. Use YYYY-MM-DD.").Write(w)
		return
	}
	occupant := sanitizeInput(r.FormValue("occupant"))
	if !s.validOccupant(occupant) {
		BadRequestError("Unknown occupant").Write(w)
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), date, occupant)
	if err != nil {
		if errors.Is(err, core.ErrDateTaken) {
			bookingConflicts.Inc()
			ConflictError("That day is already taken").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed creating booking", "date", date, "error", err)
		InternalServerError("Failed to create booking").Write(w)
		return
	}

	s.invalidateState()
	bookingsCreated.Inc()

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerBookingCreated(booking.Date.String()).
		TriggerSuccessNotification(fmt.Sprintf("%s booked %s", booking.Occupant, booking.Date)).
		Write(w)
}

func (s *Server) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}

	id := sanitizeInput(r.FormValue("id"))
	if id == "" {
		BadRequestError("Missing booking id").Write(w)
		return
	}
	occupant := sanitizeInput(r.FormValue("occupant"))
	if !s.validOccupant(occupant) {
		BadRequestError("Unknown occupant").Write(w)
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError("Booking not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed loading booking", "id", id, "error", err)
		InternalServerError("Failed to load booking").Write(w)
		return
	}
	if err := booking.OwnedBy(occupant); errors.Is(err, core.ErrForbidden) {
		// Freeing someone else's day conflicts with their recorded claim.
		ConflictError("Only the occupant who booked a day can free it").Write(w)
		return
	}

	if err := s.bookings.DeleteBooking(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError("Booking not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed deleting booking", "id", id, "error", err)
		InternalServerError("Failed to delete booking").Write(w)
		return
	}

	s.invalidateState()
	bookingsDeleted.Inc()

	NewHTMXResponse().
		Status(http.StatusOK).
		TriggerBookingDeleted(booking.Date.String()).
		TriggerSuccessNotification(fmt.Sprintf("Freed %s", booking.Date)).
		Write(w)
}

func (s *Server) handleTogglePeriod(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}

	start, err := core.ParseDate(sanitizeInput(r.FormValue("start")))
	if err != nil {
		BadRequestError("Invalid period start. Use YYYY-MM-DD.").Write(w)
		return
	}
	end, err := core.ParseDate(sanitizeInput(r.FormValue("end")))
	if err != nil {
		BadRequestError("Invalid period end. Use YYYY-MM-DD.").Write(w)
		return
	}
	if !start.Before(end) {
		BadRequestError("Period start must precede its end").Write(w)
		return
	}

	statuses, err := s.loadStatuses(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed loading period statuses", "error", err)
		InternalServerError("Failed to load period statuses").Write(w)
		return
	}

	// Only periods the generator derives from the anchor are toggleable; a
	// stray status row with arbitrary boundaries would otherwise distort
	// period generation with no way to remove it.
	period := core.Period{Start: start, End: end}
	if !knownPeriod(s.anchor, period, statuses) {
		BadRequestError("Unknown billing period").Write(w)
		return
	}

	paid := !billing.PaidFlag(period, statuses)

	status, err := s.statuses.UpsertStatus(r.Context(), start, end, paid)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed updating period status", "period", period, "error", err)
		InternalServerError("Failed to update period status").Write(w)
		return
	}

	s.invalidateState()
	statusToggles.Inc()

	// A period marked paid gets its statement queued for delivery. Delivery
	// is asynchronous; a publish failure never rolls the toggle back.
	if status.Paid && s.queue != nil {
		if err := s.queue.PublishStatementRequest(r.Context(), period); err != nil {
			slog.WarnContext(r.Context(), "Failed publishing statement request", "period", period, "error", err)
		} else {
			statementsPublished.Inc()
		}
	}

	message := fmt.Sprintf("Period %s marked unpaid", period)
	if status.Paid {
		message = fmt.Sprintf("Period %s marked paid", period)
	}
	NewHTMXResponse().
		Status(http.StatusOK).
		TriggerPeriodToggled(start.String(), end.String(), status.Paid).
		TriggerSuccessNotification(message).
		Write(w)
}

// knownPeriod reports whether p is one of the periods derived from the
// anchor, generating far enough forward to cover p's end.
func knownPeriod(anchor core.Date, p core.Period, statuses []core.PeriodStatus) bool {
	for _, candidate := range billing.GeneratePeriods(anchor, p.End, statuses) {
		if candidate.Equal(p) {
			return true
		}
	}
	return false
}

func (s *Server) handleExportStatement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	selected, err := selectedDate(r)
	if err != nil {
		BadRequestError("Invalid date. Use YYYY-MM-DD.").Write(w)
		return
	}

	bookings, err := s.loadBookings(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed loading bookings", "error", err)
		InternalServerError("Failed to load bookings").Write(w)
		return
	}
	statuses, err := s.loadStatuses(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed loading period statuses", "error", err)
		InternalServerError("Failed to load period statuses").Write(w)
		return
	}

	horizon := billing.Horizon(bookings, selected, core.Today())
	periods := billing.GeneratePeriods(s.anchor, horizon, statuses)
	period, ok := billing.CurrentPeriod(periods, selected)
	if !ok {
		NotFoundError("No billing period available").Write(w)
		return
	}

	settlement := s.tariff.Settle(period, bookings, billing.PaidFlag(period, statuses))
	body, err := statement.Render(settlement, bookings)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed rendering statement", "period", period, "error", err)
		InternalServerError("Failed to render statement").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", statement.Filename(period)))
	_, _ = w.Write(body)
}
