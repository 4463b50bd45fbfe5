// Package analyze computes period summaries, budget-rule
// classification and burn-rate forecasts from the ledger. Everything
// here is deterministic arithmetic over a consistent store snapshot; a
// language layer may paraphrase the output but never produces it.
package analyze

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/ledger"
)

// CategoryAmount is one row of the expense breakdown.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// ExcludedRecord flags a record left out of the sums because its
// currency differs from the reporting currency. Never silently
// converted, never silently dropped.
type ExcludedRecord struct {
	ID       string
	Currency string
	Amount   decimal.Decimal
}

// BucketShare is the classification of one budget bucket.
type BucketShare struct {
	Bucket Bucket
	Amount decimal.Decimal
	Share  float64 // of total expense, [0,1]
	Target float64
	Status BucketStatus
}

// Advice is one deterministic {bucket, observation, suggestion} triple.
type Advice struct {
	Bucket      Bucket
	Observation string
	Suggestion  string
}

// Report is one period summary.
type Report struct {
	PeriodStart   time.Time
	PeriodEnd     time.Time
	ReferenceDate time.Time
	Currency      string

	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Net          decimal.Decimal
	DailyAverage decimal.Decimal
	Forecast     decimal.Decimal

	Categories []CategoryAmount
	Excluded   []ExcludedRecord
	Buckets    []BucketShare
	Advice     []Advice
}

// AssetSummary is the current asset position.
type AssetSummary struct {
	Total      decimal.Decimal
	ByCategory []CategoryAmount
	Balances   []domain.AssetBalance
}

// Analyzer reads the ledger and produces reports.
type Analyzer struct {
	store    ledger.Store
	currency string // reporting currency
}

func New(store ledger.Store, reportingCurrency string) *Analyzer {
	return &Analyzer{store: store, currency: reportingCurrency}
}

// Summarize builds the report for the calendar month containing ref,
// with ref as the forecast reference date. One listing call gives the
// whole computation a consistent snapshot.
func (a *Analyzer) Summarize(ctx context.Context, ref time.Time) (Report, error) {
	start, end := MonthPeriod(ref)

	txs, err := a.store.ListTransactions(ctx, ledger.Filter{From: start, To: end})
	if err != nil {
		return Report{}, fmt.Errorf("summarize: list transactions: %w", err)
	}

	r := Report{
		PeriodStart:   start,
		PeriodEnd:     end,
		ReferenceDate: domain.DateOnly(ref),
		Currency:      a.currency,
	}

	byCategory := make(map[string]decimal.Decimal)
	bucketAmounts := map[Bucket]decimal.Decimal{
		BucketNeeds:   decimal.Zero,
		BucketWants:   decimal.Zero,
		BucketSavings: decimal.Zero,
	}

	for _, tx := range txs {
		if tx.Currency != a.currency {
			r.Excluded = append(r.Excluded, ExcludedRecord{ID: tx.ID, Currency: tx.Currency, Amount: tx.Amount})
			continue
		}
		switch tx.Kind {
		case domain.KindIncome:
			r.TotalIncome = r.TotalIncome.Add(tx.Amount)
		case domain.KindExpense:
			r.TotalExpense = r.TotalExpense.Add(tx.Amount)
			byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
			b := bucketForCategory(tx.Category)
			bucketAmounts[b] = bucketAmounts[b].Add(tx.Amount)
		}
	}
	r.Net = r.TotalIncome.Sub(r.TotalExpense)

	for name, amount := range byCategory {
		r.Categories = append(r.Categories, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(r.Categories, func(i, j int) bool {
		if !r.Categories[i].Amount.Equal(r.Categories[j].Amount) {
			return r.Categories[i].Amount.GreaterThan(r.Categories[j].Amount)
		}
		return r.Categories[i].Name < r.Categories[j].Name
	})

	elapsed := elapsedDays(start, ref)
	periodDays := end.Day()
	r.Forecast = Forecast(r.TotalExpense, elapsed, periodDays)
	if elapsed > 0 {
		r.DailyAverage = r.TotalExpense.Div(decimal.NewFromInt(int64(elapsed)))
	}

	for _, b := range []Bucket{BucketNeeds, BucketWants, BucketSavings} {
		amount := bucketAmounts[b]
		share := 0.0
		if r.TotalExpense.IsPositive() {
			share = amount.Div(r.TotalExpense).InexactFloat64()
		}
		target := bucketTargets[b]
		r.Buckets = append(r.Buckets, BucketShare{
			Bucket: b,
			Amount: amount,
			Share:  share,
			Target: target,
			Status: bucketStatus(share, target),
		})
	}

	r.Advice = adviseOn(r)
	return r, nil
}

// Forecast is the linear burn-rate extrapolation to period end. With no
// elapsed days there is nothing to extrapolate from, so the expense so
// far is returned unchanged.
func Forecast(expenseSoFar decimal.Decimal, elapsedDays, periodDays int) decimal.Decimal {
	if elapsedDays <= 0 {
		return expenseSoFar
	}
	return expenseSoFar.
		Div(decimal.NewFromInt(int64(elapsedDays))).
		Mul(decimal.NewFromInt(int64(periodDays)))
}

// CategorySpending sums this month's expenses whose category contains
// the given name, in the reporting currency.
func (a *Analyzer) CategorySpending(ctx context.Context, category string, ref time.Time) (decimal.Decimal, error) {
	start, end := MonthPeriod(ref)
	txs, err := a.store.ListTransactions(ctx, ledger.Filter{
		From:     start,
		To:       end,
		Kind:     domain.KindExpense,
		Category: category,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("category spending: list transactions: %w", err)
	}

	total := decimal.Zero
	for _, tx := range txs {
		if tx.Currency != a.currency {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total, nil
}

// Assets builds the current asset position: total balance plus the
// distribution over asset categories.
func (a *Analyzer) Assets(ctx context.Context) (AssetSummary, error) {
	balances, err := a.store.ListBalances(ctx)
	if err != nil {
		return AssetSummary{}, fmt.Errorf("assets: list balances: %w", err)
	}

	s := AssetSummary{Balances: balances}
	byCategory := make(map[string]decimal.Decimal)
	for _, b := range balances {
		s.Total = s.Total.Add(b.Balance)
		byCategory[b.Category] = byCategory[b.Category].Add(b.Balance)
	}
	for name, amount := range byCategory {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if !s.ByCategory[i].Amount.Equal(s.ByCategory[j].Amount) {
			return s.ByCategory[i].Amount.GreaterThan(s.ByCategory[j].Amount)
		}
		return s.ByCategory[i].Name < s.ByCategory[j].Name
	})
	return s, nil
}

// MonthPeriod returns the first and last day of ref's calendar month,
// both date-only.
func MonthPeriod(ref time.Time) (start, end time.Time) {
	start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end
}

// elapsedDays counts days from period start through ref inclusive;
// zero if ref precedes the period.
func elapsedDays(start, ref time.Time) int {
	d := domain.DateOnly(ref)
	if d.Before(start) {
		return 0
	}
	return int(d.Sub(start).Hours()/24) + 1
}
