package analyze

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/ledger"
)

func seedTx(t *testing.T, store ledger.Store, kind domain.Kind, amount, currency, category string, occurredOn time.Time) {
	t.Helper()
	_, err := store.CreateTransaction(context.Background(), domain.Transaction{
		Kind:        kind,
		Amount:      decimal.RequireFromString(amount),
		Currency:    currency,
		Category:    category,
		Description: category,
		OccurredOn:  occurredOn,
	})
	require.NoError(t, err)
}

func TestForecast(t *testing.T) {
	tests := []struct {
		name       string
		expense    string
		elapsed    int
		periodDays int
		want       string
	}{
		{"midway through 30-day period", "1500", 15, 30, "3000"},
		{"day zero returns expense unchanged", "1500", 0, 30, "1500"},
		{"full period is identity", "900", 30, 30, "900"},
		{"first day extrapolates fully", "100", 1, 31, "3100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Forecast(decimal.RequireFromString(tt.expense), tt.elapsed, tt.periodDays)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Forecast() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSummarize_Totals(t *testing.T) {
	store := ledger.NewMemoryStore()
	a := New(store, "CNY")
	ctx := context.Background()

	// Day 15 of a 30-day month (April).
	ref := time.Date(2025, 4, 15, 9, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC) }

	seedTx(t, store, domain.KindIncome, "8000", "CNY", "工资", day(1))
	seedTx(t, store, domain.KindExpense, "900", "CNY", "餐饮", day(3))
	seedTx(t, store, domain.KindExpense, "600", "CNY", "购物", day(10))
	// Wrong currency: excluded and flagged, not converted.
	seedTx(t, store, domain.KindExpense, "50", "USD", "餐饮", day(5))
	// Outside the period: ignored entirely.
	seedTx(t, store, domain.KindExpense, "777", "CNY", "餐饮", time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))

	r, err := a.Summarize(ctx, ref)
	require.NoError(t, err)

	assert.True(t, r.TotalIncome.Equal(decimal.RequireFromString("8000")), "income = %s", r.TotalIncome)
	assert.True(t, r.TotalExpense.Equal(decimal.RequireFromString("1500")), "expense = %s", r.TotalExpense)
	assert.True(t, r.Net.Equal(decimal.RequireFromString("6500")), "net = %s", r.Net)

	// expense 1500 on day 15 of a 30-day period forecasts to 3000.
	assert.True(t, r.Forecast.Equal(decimal.RequireFromString("3000")), "forecast = %s", r.Forecast)
	assert.True(t, r.DailyAverage.Equal(decimal.RequireFromString("100")), "daily average = %s", r.DailyAverage)

	require.Len(t, r.Excluded, 1)
	assert.Equal(t, "USD", r.Excluded[0].Currency)
}

func TestSummarize_CategoryBreakdownSortedDescending(t *testing.T) {
	store := ledger.NewMemoryStore()
	a := New(store, "CNY")
	ref := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC) }

	seedTx(t, store, domain.KindExpense, "100", "CNY", "交通", day(2))
	seedTx(t, store, domain.KindExpense, "400", "CNY", "餐饮", day(3))
	seedTx(t, store, domain.KindExpense, "200", "CNY", "餐饮", day(4))
	seedTx(t, store, domain.KindExpense, "250", "CNY", "购物", day(5))

	r, err := a.Summarize(context.Background(), ref)
	require.NoError(t, err)

	require.Len(t, r.Categories, 3)
	assert.Equal(t, "餐饮", r.Categories[0].Name)
	assert.True(t, r.Categories[0].Amount.Equal(decimal.RequireFromString("600")))
	assert.Equal(t, "购物", r.Categories[1].Name)
	assert.Equal(t, "交通", r.Categories[2].Name)
}

func TestSummarize_BucketSharesSumToTotal(t *testing.T) {
	store := ledger.NewMemoryStore()
	a := New(store, "CNY")
	ref := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC) }

	seedTx(t, store, domain.KindExpense, "500", "CNY", "餐饮", day(1))     // needs
	seedTx(t, store, domain.KindExpense, "300", "CNY", "娱乐", day(2))     // wants
	seedTx(t, store, domain.KindExpense, "200", "CNY", "投资", day(3))     // savings
	seedTx(t, store, domain.KindExpense, "80", "CNY", "neverseen", day(4)) // unmapped → wants

	r, err := a.Summarize(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, r.Buckets, 3)

	sum := decimal.Zero
	for _, b := range r.Buckets {
		sum = sum.Add(b.Amount)
	}
	assert.True(t, sum.Equal(r.TotalExpense), "bucket sum %s != total expense %s", sum, r.TotalExpense)

	byBucket := map[Bucket]BucketShare{}
	for _, b := range r.Buckets {
		byBucket[b.Bucket] = b
	}
	assert.True(t, byBucket[BucketWants].Amount.Equal(decimal.RequireFromString("380")),
		"unmapped category must land in the Wants fallback")
}

func TestSummarize_BucketStatusFlags(t *testing.T) {
	store := ledger.NewMemoryStore()
	a := New(store, "CNY")
	ref := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC) }

	// 80% needs, 20% wants, 0% savings.
	seedTx(t, store, domain.KindExpense, "800", "CNY", "住房", day(1))
	seedTx(t, store, domain.KindExpense, "200", "CNY", "娱乐", day(2))

	r, err := a.Summarize(context.Background(), ref)
	require.NoError(t, err)

	byBucket := map[Bucket]BucketShare{}
	for _, b := range r.Buckets {
		byBucket[b.Bucket] = b
	}
	assert.Equal(t, StatusOver, byBucket[BucketNeeds].Status)
	assert.Equal(t, StatusUnder, byBucket[BucketWants].Status)
	assert.Equal(t, StatusUnder, byBucket[BucketSavings].Status)

	// The deterministic advice rules fire for over-Needs and under-Savings.
	buckets := map[Bucket]bool{}
	for _, adv := range r.Advice {
		buckets[adv.Bucket] = true
	}
	assert.True(t, buckets[BucketNeeds])
	assert.True(t, buckets[BucketSavings])
}

func TestCategorySpending(t *testing.T) {
	store := ledger.NewMemoryStore()
	a := New(store, "CNY")
	ref := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC) }

	seedTx(t, store, domain.KindExpense, "120", "CNY", "餐饮", day(1))
	seedTx(t, store, domain.KindExpense, "80", "CNY", "餐饮", day(5))
	seedTx(t, store, domain.KindExpense, "40", "CNY", "交通", day(5))
	seedTx(t, store, domain.KindIncome, "500", "CNY", "餐饮", day(6)) // income never counts as spending

	total, err := a.CategorySpending(context.Background(), "餐饮", ref)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("200")), "total = %s", total)
}

func TestAssets(t *testing.T) {
	store := ledger.NewMemoryStore()
	a := New(store, "CNY")
	ctx := context.Background()

	require.NoError(t, store.UpsertBalance(ctx, domain.AssetBalance{
		AccountName: "Alipay", Balance: decimal.RequireFromString("1200"), Currency: "CNY", Category: "Cash",
	}))
	require.NoError(t, store.UpsertBalance(ctx, domain.AssetBalance{
		AccountName: "Broker", Balance: decimal.RequireFromString("5000"), Currency: "CNY", Category: "Stocks",
	}))
	require.NoError(t, store.UpsertBalance(ctx, domain.AssetBalance{
		AccountName: "Credit Card", Balance: decimal.RequireFromString("-800"), Currency: "CNY", Category: "Debt",
	}))

	s, err := a.Assets(ctx)
	require.NoError(t, err)
	assert.True(t, s.Total.Equal(decimal.RequireFromString("5400")), "total = %s", s.Total)
	assert.Len(t, s.ByCategory, 3)
	assert.Equal(t, "Stocks", s.ByCategory[0].Name)
}

func TestBucketForCategory(t *testing.T) {
	tests := []struct {
		category string
		want     Bucket
	}{
		{"餐饮", BucketNeeds},
		{"housing", BucketNeeds},
		{"  Rent  ", BucketNeeds},
		{"娱乐", BucketWants},
		{"投资", BucketSavings},
		{"SAVINGS", BucketSavings},
		{"totally-unknown", BucketWants},
		{"", BucketWants},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			if got := bucketForCategory(tt.category); got != tt.want {
				t.Errorf("bucketForCategory(%q) = %q, want %q", tt.category, got, tt.want)
			}
		})
	}
}
