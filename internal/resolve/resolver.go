// Package resolve identifies which stored records a natural-language
// reference points to. Matching is a deterministic scoring function
// over tokenized text plus exact-value boosts; the completion service
// never decides what gets deleted.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/ledger"
)

// Tuning parameters. Scores are normalized to [0,1]; candidates within
// Margin of the top score form a clarification set instead of a match.
const (
	DefaultWindowDays = 30
	Margin            = 0.15
	MinScore          = 0.2

	amountBoost = 0.3
	dateBoost   = 0.2
)

// Query describes one record reference to resolve.
type Query struct {
	Descriptor string
	Amount     *decimal.Decimal // explicit amount mentioned in the message
	Date       *time.Time       // explicit date mentioned in the message
	Last       bool             // literal "last / most recent" reference
	Bulk       bool             // explicitly-recognized bulk form, never inferred
	WindowDays int              // 0 means DefaultWindowDays
}

// Outcome tags a Result.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"   // single high-confidence match
	OutcomeAmbiguous Outcome = "ambiguous" // near-tie clarification set
	OutcomeNone      Outcome = "none"      // nothing above MinScore
	OutcomeBulk      Outcome = "bulk"      // all matches of a bulk query
)

// Match is one scored candidate.
type Match struct {
	Transaction domain.Transaction
	Score       float64
}

// Result is the ranked outcome of a resolution.
type Result struct {
	Outcome Outcome
	Matches []Match
}

// Resolver scores ledger records against natural-language references.
type Resolver struct {
	store ledger.Store
	now   func() time.Time
}

func New(store ledger.Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// Resolve ranks stored transactions against q. The search is bounded to
// a recent window unless the query names an explicit date, so stale
// records are never resurrected by accident.
func (r *Resolver) Resolve(ctx context.Context, q Query) (Result, error) {
	if q.Last || IsLastReference(q.Descriptor) {
		return r.resolveLast(ctx)
	}

	candidates, err := r.store.ListTransactions(ctx, r.windowFilter(q))
	if err != nil {
		return Result{}, fmt.Errorf("resolve: list transactions: %w", err)
	}

	scored := scoreAll(q, candidates)
	if q.Bulk {
		return Result{Outcome: OutcomeBulk, Matches: scored}, nil
	}

	if len(scored) == 0 || scored[0].Score < MinScore {
		return Result{Outcome: OutcomeNone}, nil
	}

	top := scored[0].Score
	tied := []Match{scored[0]}
	for _, m := range scored[1:] {
		if top-m.Score < Margin {
			tied = append(tied, m)
		}
	}

	if len(tied) > 1 {
		return Result{Outcome: OutcomeAmbiguous, Matches: tied}, nil
	}
	return Result{Outcome: OutcomeMatched, Matches: tied}, nil
}

// resolveLast picks the single most recently created record, over the
// whole ledger: "delete the last one" must work regardless of how old
// the last entry is.
func (r *Resolver) resolveLast(ctx context.Context) (Result, error) {
	all, err := r.store.ListTransactions(ctx, ledger.Filter{})
	if err != nil {
		return Result{}, fmt.Errorf("resolve last: list transactions: %w", err)
	}
	if len(all) == 0 {
		return Result{Outcome: OutcomeNone}, nil
	}
	// Listings are ordered by CreatedAt descending.
	return Result{
		Outcome: OutcomeMatched,
		Matches: []Match{{Transaction: all[0], Score: 1}},
	}, nil
}

func (r *Resolver) windowFilter(q Query) ledger.Filter {
	if q.Date != nil {
		day := domain.DateOnly(*q.Date)
		return ledger.Filter{From: day, To: day}
	}
	days := q.WindowDays
	if days <= 0 {
		days = DefaultWindowDays
	}
	now := r.now()
	return ledger.Filter{
		From: domain.DateOnly(now.AddDate(0, 0, -days)),
		To:   domain.DateOnly(now),
	}
}

// scoreAll scores every candidate and returns those above zero, sorted
// by score descending with CreatedAt as the stable tiebreak.
func scoreAll(q Query, candidates []domain.Transaction) []Match {
	queryTokens := tokenSet(q.Descriptor)

	var out []Match
	for _, tx := range candidates {
		s := score(q, queryTokens, tx)
		if s > 0 {
			out = append(out, Match{Transaction: tx, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Transaction.CreatedAt.After(out[j].Transaction.CreatedAt)
	})
	return out
}

// score computes token overlap between the query descriptor and the
// record's category/description, boosted by exact amount and date
// mentions. Result is clamped to [0,1].
func score(q Query, queryTokens map[string]bool, tx domain.Transaction) float64 {
	var s float64

	if len(queryTokens) > 0 {
		recordTokens := tokenSet(tx.Category + " " + tx.Description)
		overlap := 0
		for t := range queryTokens {
			if recordTokens[t] {
				overlap++
			}
		}
		s = float64(overlap) / float64(len(queryTokens))
	}

	if q.Amount != nil && q.Amount.Equal(tx.Amount) {
		s += amountBoost
	}
	if q.Date != nil && domain.DateOnly(*q.Date).Equal(tx.OccurredOn) {
		s += dateBoost
	}

	if s > 1 {
		s = 1
	}
	return s
}
