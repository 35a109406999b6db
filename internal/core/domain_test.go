package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("expected ok for zero, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestBookingValidate(t *testing.T) {
	good := Booking{
		Date:     NewDate(2025, 11, 10),
		Occupant: "anna",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Booking{
		{Date: Date{Time: time.Time{}}, Occupant: "anna"}, // zero date
		{Date: NewDate(2025, 11, 10), Occupant: ""},
		{Date: NewDate(2025, 11, 10), Occupant: "   "},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBookingOwnedBy(t *testing.T) {
	b := Booking{ID: "b1", Date: NewDate(2025, 11, 12), Occupant: "anna"}

	if err := b.OwnedBy("anna"); err != nil {
		t.Errorf("OwnedBy(anna) = %v, want nil", err)
	}
	err := b.OwnedBy("bruno")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("OwnedBy(bruno) = %v, want ErrForbidden", err)
	}
}

func TestPeriodContains(t *testing.T) {
	p := Period{Start: NewDate(2025, 11, 10), End: NewDate(2025, 12, 10)}

	cases := []struct {
		d    Date
		want bool
	}{
		{NewDate(2025, 11, 10), true},  // start included
		{NewDate(2025, 11, 30), true},  // middle
		{NewDate(2025, 12, 9), true},   // last day
		{NewDate(2025, 12, 10), false}, // end excluded
		{NewDate(2025, 11, 9), false},  // before start
	}
	for _, tc := range cases {
		if got := p.Contains(tc.d); got != tc.want {
			t.Errorf("Contains(%s) = %v, want %v", tc.d, got, tc.want)
		}
	}
}
