package core

import (
	"encoding/json"
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

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-09")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2024-03-09" {
		t.Fatalf("String() = %q", d.String())
	}
	if _, err := ParseDate("09/03/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{Category: "Food", Amount: Money{Cents: 100}, Date: NewDate(2025, 1, 1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zero := good
	zero.Amount = Money{}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount should be accepted, got %v", err)
	}

	bads := []Transaction{
		{Category: "", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1)},
		{Category: "Food", Amount: Money{Cents: -1}, Date: NewDate(2025, 1, 1)},
		{Category: "Food", Amount: Money{Cents: 1}},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetContains(t *testing.T) {
	b := Budget{StartDate: NewDate(2024, 1, 1), EndDate: NewDate(2024, 1, 31)}
	cases := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC), true},
		{time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC), false},
		{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		if got := b.Contains(Date{Time: tc.at}); got != tc.want {
			t.Errorf("Contains(%v) = %v, want %v", tc.at, got, tc.want)
		}
	}
}

func TestCategoryLimitsSetKeepsOrder(t *testing.T) {
	var cl CategoryLimits
	cl = cl.Set("Food", Money{Cents: 6000})
	cl = cl.Set("Transport", Money{Cents: 2000})
	updated := cl.Set("Food", Money{Cents: 7000})

	if len(updated) != 2 || updated[0].Category != "Food" || updated[0].Limit.Cents != 7000 {
		t.Fatalf("unexpected limits after update: %+v", updated)
	}
	if cl[0].Limit.Cents != 6000 {
		t.Fatalf("Set must not mutate the receiver, got %+v", cl)
	}
	if got, ok := updated.Get("Transport"); !ok || got.Cents != 2000 {
		t.Fatalf("Get(Transport) = %v, %v", got, ok)
	}
	if _, ok := updated.Get("food"); ok {
		t.Fatalf("category lookup must be case-sensitive")
	}
}

func TestCategoryLimitsJSON(t *testing.T) {
	in := `{"Rent": 800, "Food": 60.5, "Fun": 0}`
	var cl CategoryLimits
	if err := json.Unmarshal([]byte(in), &cl); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := []string{"Rent", "Food", "Fun"}
	for i, name := range want {
		if cl[i].Category != name {
			t.Fatalf("order lost: %+v", cl)
		}
	}
	if cl[1].Limit.Cents != 6050 {
		t.Fatalf("Food limit = %d", cl[1].Limit.Cents)
	}

	out, err := json.Marshal(cl)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"Rent":800.00,"Food":60.50,"Fun":0.00}` {
		t.Fatalf("Marshal = %s", out)
	}

	var empty CategoryLimits
	if err := json.Unmarshal([]byte("null"), &empty); err != nil || empty != nil {
		t.Fatalf("null should decode to nil, got %v (%v)", empty, err)
	}
	if err := json.Unmarshal([]byte(`["x"]`), &empty); err == nil {
		t.Fatalf("expected error for array input")
	}
}
