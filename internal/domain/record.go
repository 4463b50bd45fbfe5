package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a transaction. Expenses and income are both stored
// with positive amounts; the kind carries the sign convention.
type Kind string

const (
	KindExpense    Kind = "expense"
	KindIncome     Kind = "income"
	KindInvestment Kind = "investment"
)

// ParseKind maps a raw kind string from the model output to a Kind.
// Unrecognized values are an error, never silently coerced.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindExpense:
		return KindExpense, nil
	case KindIncome:
		return KindIncome, nil
	case KindInvestment:
		return KindInvestment, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRecordType, s)
	}
}

// Transaction is one committed ledger entry.
// Amount is always positive; OccurredOn is a date (midnight UTC) resolved
// from the user's message, CreatedAt is the store-assigned creation time.
type Transaction struct {
	ID          string
	Kind        Kind
	Amount      decimal.Decimal
	Currency    string
	Category    string
	Description string
	OccurredOn  time.Time
	CreatedAt   time.Time
	RawText     string // original user message the record was extracted from
}

// AssetBalance is the current balance of one named account.
// Exactly one row exists per account name; an update replaces the value.
// Balance may be negative for liabilities.
type AssetBalance struct {
	AccountName string
	Balance     decimal.Decimal
	Currency    string
	Category    string // asset class, e.g. "Cash", "Stocks"
	UpdatedAt   time.Time
}

// DateOnly truncates t to a calendar date at midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
