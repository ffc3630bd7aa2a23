package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar format used by forms, exports and datasets.
const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}

	// Transaction is a single dated, categorized monetary entry owned by a user.
	Transaction struct {
		ID        int64
		UserID    int64
		Category  string
		Amount    Money
		Date      Date
		CreatedAt time.Time
	}

	// CategoryLimit is the spending cap for one category label.
	CategoryLimit struct {
		Category string
		Limit    Money
	}

	// CategoryLimits keeps per-category caps in insertion order.
	CategoryLimits []CategoryLimit

	// Budget is an overall limit plus optional per-category limits over a window.
	Budget struct {
		ID         int64
		UserID     int64
		Limit      Money
		StartDate  Date
		EndDate    Date
		Categories CategoryLimits
		CreatedAt  time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyCategory      = errors.New("empty category")
	ErrCategoryTooLong    = errors.New("category too long (max 150 characters)")
	ErrEmptyUsername      = errors.New("empty username")
	ErrEmptyPassword      = errors.New("empty password")
	ErrUsernameTooLong    = errors.New("username too long (max 150 characters)")
	ErrPasswordTooLong    = errors.New("password too long (max 72 bytes)")
	ErrNotFound           = errors.New("not found")
	ErrNoBudget           = errors.New("no overall budget set")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

const (
	// MaxUsernameLength matches the users.username CHECK constraint, in characters.
	MaxUsernameLength = 150
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Day truncates the date to midnight UTC of its calendar day.
func (d Date) Day() Date {
	y, m, day := d.Date()
	return NewDate(y, int(m), day)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Category) > 150 {
		return ErrCategoryTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	return t.Date.Validate()
}

func (b Budget) Validate() error {
	if err := b.Limit.Validate(); err != nil {
		return err
	}
	if err := b.StartDate.Validate(); err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	if err := b.EndDate.Validate(); err != nil {
		return fmt.Errorf("end date: %w", err)
	}
	for _, cl := range b.Categories {
		if strings.TrimSpace(cl.Category) == "" {
			return ErrEmptyCategory
		}
		if err := cl.Limit.Validate(); err != nil {
			return fmt.Errorf("category %s: %w", cl.Category, err)
		}
	}
	return nil
}

// Contains reports whether day falls inside the budget window, both ends included.
func (b Budget) Contains(day Date) bool {
	d := day.Day()
	return !d.Before(b.StartDate.Day().Time) && !d.After(b.EndDate.Day().Time)
}

// Get returns the limit configured for category.
func (cl CategoryLimits) Get(category string) (Money, bool) {
	for _, c := range cl {
		if c.Category == category {
			return c.Limit, true
		}
	}
	return Money{}, false
}

// Set replaces the limit of an existing category in place or appends a new one.
func (cl CategoryLimits) Set(category string, limit Money) CategoryLimits {
	for i, c := range cl {
		if c.Category == category {
			out := append(CategoryLimits(nil), cl...)
			out[i].Limit = limit
			return out
		}
	}
	return append(append(CategoryLimits(nil), cl...), CategoryLimit{Category: category, Limit: limit})
}

// MarshalJSON encodes the limits as an object of category to amount, in order.
func (cl CategoryLimits) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range cl {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Category)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(c.Limit.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object of category to amount keeping key order.
func (cl *CategoryLimits) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*cl = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("category limits: expected object, got %v", tok)
	}
	var out CategoryLimits
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("category limits: unexpected key %v", keyTok)
		}
		var num json.Number
		if err := dec.Decode(&num); err != nil {
			return fmt.Errorf("category limits: value for %s: %w", key, err)
		}
		cents, err := ParseDecimalToCents(num.String())
		if err != nil {
			return fmt.Errorf("category limits: value for %s: %w", key, err)
		}
		out = out.Set(key, Money{Cents: cents})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*cl = out
	return nil
}
