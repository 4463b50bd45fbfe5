// Package schema is the strict boundary between the completion
// service's loosely-typed output and the typed ledger domain. Every
// candidate object is validated and coerced here, or rejected with a
// reason; untyped fields never cross this package.
package schema

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// DefaultCategory is used when the model omits a transaction category.
const DefaultCategory = "其他"

// DefaultAssetCategory is used when the model omits an asset class.
const DefaultAssetCategory = "Other"

// Context carries the per-request defaults used to fill optional fields.
type Context struct {
	ReferenceDate   time.Time // resolves "today" and unparsable dates
	DefaultCurrency string
	RawText         string // original message, default description
}

// CoerceTransaction validates one candidate transaction object.
// Amount and kind are mandatory and strictly checked; category,
// description, currency and date fall back to defaults rather than
// failing, so one weak field never loses an otherwise usable record.
func CoerceTransaction(obj map[string]interface{}, c Context) (*domain.Transaction, error) {
	amount, err := decimalField(obj, "amount")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, amount)
	}

	rawKind, _ := stringField(obj, "kind")
	kind, err := domain.ParseKind(rawKind)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		Kind:       kind,
		Amount:     amount,
		OccurredOn: resolveDate(obj, c.ReferenceDate),
		RawText:    c.RawText,
	}

	if cat, ok := stringField(obj, "category"); ok {
		tx.Category = cat
	} else {
		tx.Category = DefaultCategory
	}
	if desc, ok := stringField(obj, "description"); ok {
		tx.Description = desc
	} else {
		tx.Description = c.RawText
	}
	if cur, ok := stringField(obj, "currency"); ok {
		tx.Currency = cur
	} else {
		tx.Currency = c.DefaultCurrency
	}

	return tx, nil
}

// CoerceAsset validates one candidate asset-balance object. The balance
// may be negative (liabilities), but must be present and numeric.
func CoerceAsset(obj map[string]interface{}, c Context) (*domain.AssetBalance, error) {
	name, ok := stringField(obj, "account_name")
	if !ok {
		// Some model runs use "name" despite the prompt.
		if name, ok = stringField(obj, "name"); !ok {
			return nil, fmt.Errorf("asset candidate has no account name")
		}
	}

	balance, err := decimalField(obj, "balance")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}

	asset := &domain.AssetBalance{
		AccountName: name,
		Balance:     balance,
	}
	if cat, ok := stringField(obj, "category"); ok {
		asset.Category = cat
	} else {
		asset.Category = DefaultAssetCategory
	}
	if cur, ok := stringField(obj, "currency"); ok {
		asset.Currency = cur
	} else {
		asset.Currency = c.DefaultCurrency
	}

	return asset, nil
}

// resolveDate parses the candidate's "date" field (YYYY-MM-DD). Date
// resolution is best effort: missing or unparsable dates fall back to
// the request's reference date instead of rejecting the record.
func resolveDate(obj map[string]interface{}, ref time.Time) time.Time {
	s, ok := stringField(obj, "date")
	if !ok {
		return domain.DateOnly(ref)
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return domain.DateOnly(ref)
	}
	return d
}

// ParseAmount parses a user-supplied amount string under the same rules
// as CoerceTransaction: strictly positive, decimal.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, d)
	}
	return d, nil
}
