package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Food      Category = "Food"
	Rent      Category = "Rent"
	Utilities Category = "Utilities"
	Transport Category = "Transport"
	Others    Category = "Others"
)

// Field names used to key validation failures.
const (
	FieldBudget      = "budget"
	FieldAmount      = "amount"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldDate        = "date"
)

const (
	maxDescriptionLen = 200
	dateLayout        = "2006-01-02"
)

type (
	Category string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          int64
		Amount      Money
		Description string
		Category    Category
		Date        Date
	}

	// ExpenseInput carries the raw values of the add-expense form.
	ExpenseInput struct {
		Amount      string
		Description string
		Category    string
		Date        string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrLongDescription  = fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrEmptyDate        = errors.New("empty date")
	ErrInvalidDate      = errors.New("invalid date")
)

var categories = []Category{Food, Rent, Utilities, Transport, Others}

// Categories returns the closed category set in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory maps form text onto the closed set.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyCategory
	}
	c := Category(s)
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD date as sent by a date picker.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrEmptyDate
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ISO formats the date as YYYY-MM-DD.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrEmptyDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := validateDescription(e.Description); err != nil {
		return err
	}
	if e.Category == "" {
		return ErrEmptyCategory
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	return e.Date.Validate()
}

func validateDescription(s string) error {
	if len(strings.TrimSpace(s)) == 0 {
		return ErrEmptyDescription
	}
	return nil
}

// validateNewDescription adds the form's length cap, counted in characters.
// Stored records are not held to it.
func validateNewDescription(s string) error {
	if err := validateDescription(s); err != nil {
		return err
	}
	if utf8.RuneCountInString(s) > maxDescriptionLen {
		return ErrLongDescription
	}
	return nil
}

// ParseExpense validates every field of in and builds an Expense with the given id.
// All failing fields are reported together in a *ValidationError.
func ParseExpense(id int64, in ExpenseInput) (Expense, error) {
	verr := &ValidationError{}

	cents, err := ParseAmount(in.Amount)
	if err != nil {
		verr.Add(FieldAmount, err)
	}
	desc := strings.TrimSpace(in.Description)
	if err := validateNewDescription(desc); err != nil {
		verr.Add(FieldDescription, err)
	}
	cat, err := ParseCategory(in.Category)
	if err != nil {
		verr.Add(FieldCategory, err)
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		verr.Add(FieldDate, err)
	}
	if !verr.Empty() {
		return Expense{}, verr
	}

	return Expense{
		ID:          id,
		Amount:      Money{Cents: cents},
		Description: desc,
		Category:    cat,
		Date:        date,
	}, nil
}

// ValidationError reports which input fields were rejected.
type ValidationError struct {
	Fields map[string]error
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field string, err error) *ValidationError {
	v := &ValidationError{}
	v.Add(field, err)
	return v
}

func (v *ValidationError) Add(field string, err error) {
	if v.Fields == nil {
		v.Fields = make(map[string]error)
	}
	v.Fields[field] = err
}

func (v *ValidationError) Has(field string) bool {
	_, ok := v.Fields[field]
	return ok
}

func (v *ValidationError) Empty() bool {
	return len(v.Fields) == 0
}

func (v *ValidationError) Error() string {
	names := make([]string, 0, len(v.Fields))
	for name := range v.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+v.Fields[name].Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
