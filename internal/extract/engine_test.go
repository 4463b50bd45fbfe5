package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// fakeCompleter returns canned output, or an error.
type fakeCompleter struct {
	output map[string]interface{}
	err    error
	prompt string // last prompt received
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, img *Image) (map[string]interface{}, error) {
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func (f *fakeCompleter) Reply(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "paraphrased", nil
}

func testRequest(text string) Request {
	return Request{
		Text:            text,
		ReferenceDate:   time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC),
		DefaultCurrency: "CNY",
		UserID:          "42",
	}
}

func TestExtract_MultipleTransactionsPartialSuccess(t *testing.T) {
	completer := &fakeCompleter{output: map[string]interface{}{
		"intent": "record",
		"transactions": []interface{}{
			map[string]interface{}{"kind": "expense", "amount": 20.0, "category": "餐饮", "description": "lunch"},
			map[string]interface{}{"kind": "expense", "amount": -5.0, "category": "交通"}, // invalid
			map[string]interface{}{"kind": "expense", "amount": 15.0, "category": "交通", "description": "taxi", "date": "2025-03-14"},
		},
	}}
	engine := NewEngine(completer)

	res, err := engine.Extract(context.Background(), testRequest("lunch 20 and taxi 15 yesterday"))
	require.NoError(t, err)
	assert.Equal(t, IntentRecord, res.Intent)
	require.Len(t, res.Candidates, 3)

	assert.True(t, res.Candidates[0].Valid)
	assert.True(t, res.Candidates[0].Transaction.Amount.Equal(decimal.NewFromInt(20)))

	assert.False(t, res.Candidates[1].Valid, "negative amount must be rejected")
	assert.NotEmpty(t, res.Candidates[1].Reason)

	assert.True(t, res.Candidates[2].Valid, "a sibling failure must not block valid candidates")
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), res.Candidates[2].Transaction.OccurredOn)
}

func TestExtract_MixedTransactionAndAssets(t *testing.T) {
	completer := &fakeCompleter{output: map[string]interface{}{
		"intent": "record",
		"transactions": []interface{}{
			map[string]interface{}{"kind": "income", "amount": 8000.0, "category": "工资"},
		},
		"assets": []interface{}{
			map[string]interface{}{"account_name": "Alipay", "balance": 1200.5},
			map[string]interface{}{"account_name": "Bank", "balance": -300.0, "category": "Debt"},
		},
	}}
	engine := NewEngine(completer)

	res, err := engine.Extract(context.Background(), testRequest("salary in, balances updated"))
	require.NoError(t, err)
	require.Len(t, res.Candidates, 3)

	var txs, assets int
	for _, c := range res.Candidates {
		require.True(t, c.Valid)
		if c.Transaction != nil {
			txs++
		}
		if c.Asset != nil {
			assets++
		}
	}
	assert.Equal(t, 1, txs)
	assert.Equal(t, 2, assets)
}

func TestExtract_DeleteIntent(t *testing.T) {
	tests := []struct {
		name   string
		delete map[string]interface{}
		check  func(t *testing.T, d *DeleteQuery)
	}{
		{
			name:   "last target",
			delete: map[string]interface{}{"target": "last"},
			check: func(t *testing.T, d *DeleteQuery) {
				assert.True(t, d.Last)
				assert.False(t, d.All)
			},
		},
		{
			name: "search with amount",
			delete: map[string]interface{}{
				"target": "search", "search_term": "taxi", "amount": 15.0,
			},
			check: func(t *testing.T, d *DeleteQuery) {
				assert.False(t, d.Last)
				assert.Equal(t, "taxi", d.SearchTerm)
				require.NotNil(t, d.Amount)
				assert.True(t, d.Amount.Equal(decimal.NewFromInt(15)))
			},
		},
		{
			name: "explicit bulk form",
			delete: map[string]interface{}{
				"target": "search", "search_term": "taxi", "all": true,
			},
			check: func(t *testing.T, d *DeleteQuery) {
				assert.True(t, d.All)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{output: map[string]interface{}{
				"intent": "delete",
				"delete": tt.delete,
			}}
			res, err := NewEngine(completer).Extract(context.Background(), testRequest("delete it"))
			require.NoError(t, err)
			assert.Equal(t, IntentDelete, res.Intent)
			require.NotNil(t, res.Delete)
			tt.check(t, res.Delete)
		})
	}
}

func TestExtract_QueryIntent(t *testing.T) {
	completer := &fakeCompleter{output: map[string]interface{}{
		"intent": "query",
		"query":  map[string]interface{}{"category": "餐饮"},
	}}
	res, err := NewEngine(completer).Extract(context.Background(), testRequest("how much on food?"))
	require.NoError(t, err)
	assert.Equal(t, IntentQuery, res.Intent)
	assert.Equal(t, "餐饮", res.QueryCategory)
}

func TestExtract_UnknownIntentFallsBackToChat(t *testing.T) {
	completer := &fakeCompleter{output: map[string]interface{}{
		"intent": "banter",
		"reply":  "hello",
	}}
	res, err := NewEngine(completer).Extract(context.Background(), testRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, IntentChat, res.Intent)
}

func TestExtract_ServiceFailurePropagates(t *testing.T) {
	completer := &fakeCompleter{err: domain.ErrServiceUnavailable}
	res, err := NewEngine(completer).Extract(context.Background(), testRequest("lunch 20"))
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Empty(t, res.Candidates, "no record is ever guessed on failure")
}

func TestExtract_PromptCarriesContext(t *testing.T) {
	completer := &fakeCompleter{output: map[string]interface{}{"intent": "chat"}}
	_, err := NewEngine(completer).Extract(context.Background(), testRequest("hello"))
	require.NoError(t, err)
	assert.Contains(t, completer.prompt, "2025-03-15")
	assert.Contains(t, completer.prompt, "CNY")
	assert.Contains(t, completer.prompt, "hello")
}

func TestNaturalAnswer_FallsBackToData(t *testing.T) {
	engine := NewEngine(&fakeCompleter{err: errors.New("down")})
	got := engine.NaturalAnswer(context.Background(), "how much?", "Total: 200")
	assert.Equal(t, "Total: 200", got)
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", "Here you go:\n{\"a\":1}", `{"a":1}`},
		{"trailing prose", "{\"a\":1}\nHope that helps!", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.input); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
