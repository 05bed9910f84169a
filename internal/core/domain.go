package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Income  Type = "income"
	Expense Type = "expense"

	// DateLayout is the only accepted date format (ISO 8601 calendar date).
	DateLayout = "2006-01-02"
)

type (
	Type string

	// Transaction is a single recorded income or expense event. Records are
	// never edited in place; deletion replaces the whole sequence.
	Transaction struct {
		ID       string  `json:"id"`
		Type     Type    `json:"type"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
		Date     string  `json:"date"`
		Note     string  `json:"note"`
	}

	// NewTransaction carries the user supplied fields of a transaction
	// before it is validated and assigned an ID.
	NewTransaction struct {
		Type     Type    `json:"type"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
		Date     string  `json:"date"`
		Note     string  `json:"note"`
	}
)

var (
	ErrMissingDate     = errors.New("missing date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingCategory = errors.New("missing category")
	ErrInvalidType     = errors.New("invalid type")
)

// userMessages are the texts shown next to the entry form.
var userMessages = map[error]string{
	ErrMissingDate:     "Please select a date.",
	ErrInvalidAmount:   "Enter a valid amount (> 0).",
	ErrMissingCategory: "Choose a category.",
	ErrInvalidType:     "Choose income or expense.",
}

// ValidationError reports the single field that made a NewTransaction
// unacceptable. Message is safe to show to the user as is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) *ValidationError {
	msg, ok := userMessages[err]
	if !ok {
		msg = err.Error()
	}
	return &ValidationError{Field: field, Message: msg, Err: err}
}

// IsValid reports whether t is one of the two known transaction types.
func (t Type) IsValid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	return string(t)
}

// ParseType maps user input to a Type. An empty value selects Expense,
// matching the default of the entry form.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return Expense, nil
	}
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// Normalize trims free text fields and fills in the default type.
func (n NewTransaction) Normalize() NewTransaction {
	n.Type = Type(strings.ToLower(strings.TrimSpace(string(n.Type))))
	if n.Type == "" {
		n.Type = Expense
	}
	n.Category = strings.TrimSpace(n.Category)
	n.Date = strings.TrimSpace(n.Date)
	n.Note = strings.TrimSpace(n.Note)
	return n
}

// Validate checks the fields in the order the entry form reports them:
// date, amount, category, then type. Only the first problem is returned.
func (n NewTransaction) Validate() error {
	n = n.Normalize()
	if n.Date == "" {
		return invalid("date", ErrMissingDate)
	}
	if _, err := time.Parse(DateLayout, n.Date); err != nil {
		return invalid("date", ErrMissingDate)
	}
	// Amounts that round to zero would break the positive amount invariant.
	if math.IsNaN(n.Amount) || math.IsInf(n.Amount, 0) || n.Amount <= 0 || Round2(n.Amount) <= 0 {
		return invalid("amount", ErrInvalidAmount)
	}
	if n.Category == "" {
		return invalid("category", ErrMissingCategory)
	}
	if !n.Type.IsValid() {
		return invalid("type", ErrInvalidType)
	}
	return nil
}

// Build validates n and returns the stored form of the transaction with
// the given id and the amount rounded to two decimals.
func (n NewTransaction) Build(id string) (Transaction, error) {
	if err := n.Validate(); err != nil {
		return Transaction{}, err
	}
	n = n.Normalize()
	return Transaction{
		ID:       id,
		Type:     n.Type,
		Amount:   Round2(n.Amount),
		Category: n.Category,
		Date:     n.Date,
		Note:     n.Note,
	}, nil
}

// MonthKey returns the year-month prefix of the transaction date.
func (t Transaction) MonthKey() string {
	return MonthKey(t.Date)
}

// MonthKey returns the first 7 characters of a date. Shorter dates are
// returned whole so hand-edited records still group and filter by what
// they carry.
func MonthKey(date string) string {
	n := 0
	for i := range date {
		if n == 7 {
			return date[:i]
		}
		n++
	}
	return date
}
