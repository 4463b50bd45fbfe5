// Package session sequences the multi-step conversation with the
// single ledger owner: extraction then commit, ambiguous deletion then
// clarification, bulk deletion then confirmation. One message is
// handled at a time; a new unrelated message supersedes whatever was
// pending.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-assistant/internal/analyze"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/extract"
	"github.com/dvloznov/finance-assistant/internal/ledger"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/resolve"
)

// duplicateWindow is how far back an identical transaction counts as a
// duplicate rather than a new record.
const duplicateWindow = 24 * time.Hour

// balanceTolerance is the delta under which an asset update is reported
// unchanged instead of rewritten.
var balanceTolerance = decimal.RequireFromString("0.01")

// Inbound is one message from the chat transport.
type Inbound struct {
	UserID string
	Text   string
	Image  *extract.Image
}

// Outbound is the plain-text response for the transport to render.
type Outbound struct {
	Messages []string
}

// Extractor is the slice of the extraction engine the coordinator uses.
type Extractor interface {
	Extract(ctx context.Context, req extract.Request) (extract.Result, error)
	NaturalAnswer(ctx context.Context, question, data string) string
}

// Coordinator owns per-user conversational state and routes messages
// through extraction, resolution and analysis.
type Coordinator struct {
	allowedUserID   string
	defaultCurrency string
	ttl             time.Duration

	engine   Extractor
	store    ledger.Store
	resolver *resolve.Resolver
	analyzer *analyze.Analyzer

	mu      sync.Mutex
	pending map[string]*pending
	now     func() time.Time
}

// Options configures a Coordinator.
type Options struct {
	AllowedUserID   string
	DefaultCurrency string
	PendingTTL      time.Duration
}

func New(engine Extractor, store ledger.Store, resolver *resolve.Resolver, analyzer *analyze.Analyzer, opts Options) *Coordinator {
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = 5 * time.Minute
	}
	return &Coordinator{
		allowedUserID:   opts.AllowedUserID,
		defaultCurrency: opts.DefaultCurrency,
		ttl:             opts.PendingTTL,
		engine:          engine,
		store:           store,
		resolver:        resolver,
		analyzer:        analyzer,
		pending:         make(map[string]*pending),
		now:             time.Now,
	}
}

// HandleMessage processes one inbound message. Handling is serialized:
// a second message waits until the first has resolved or superseded any
// pending state, so interleaved edits cannot corrupt the ledger view.
func (c *Coordinator) HandleMessage(ctx context.Context, in Inbound) (Outbound, error) {
	log := logger.FromContext(ctx)

	if in.UserID != c.allowedUserID {
		log.Warn().Str("user_id", in.UserID).Msg("Unauthorized access attempt")
		return Outbound{}, domain.ErrUnauthorized
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	// A pending clarification or confirmation takes the message first;
	// anything that is not a valid resolution discards it and starts fresh.
	if p := c.pending[in.UserID]; !p.expired(now) {
		if out, handled := c.resumePending(ctx, in, p); handled {
			delete(c.pending, in.UserID)
			return out, nil
		}
		delete(c.pending, in.UserID)
	} else if p != nil {
		delete(c.pending, in.UserID)
	}

	res, err := c.engine.Extract(ctx, extract.Request{
		Text:            in.Text,
		Image:           in.Image,
		ReferenceDate:   now,
		DefaultCurrency: c.defaultCurrency,
		UserID:          in.UserID,
	})
	if err != nil {
		log.Error().Err(err).Msg("Extraction failed")
		if errors.Is(err, domain.ErrServiceUnavailable) {
			return Outbound{Messages: []string{"The assistant service is unavailable right now. Please try again in a moment."}}, nil
		}
		return Outbound{Messages: []string{"I couldn't understand that message. Could you rephrase it?"}}, nil
	}

	switch res.Intent {
	case extract.IntentRecord:
		return c.handleRecord(ctx, in, res)
	case extract.IntentQuery:
		return c.handleQuery(ctx, in, res)
	case extract.IntentDelete:
		return c.handleDelete(ctx, in, res)
	default:
		reply := res.Reply
		if reply == "" {
			reply = "I'm here to help you track your finances. Send me an expense, income or a receipt photo."
		}
		// Record-bearing chat messages still commit their candidates.
		if hasValidCandidates(res) {
			return c.handleRecord(ctx, in, res)
		}
		return Outbound{Messages: []string{reply}}, nil
	}
}

// resumePending tries to interpret the message as a resolution of the
// suspended interaction. It reports whether the message was consumed.
func (c *Coordinator) resumePending(ctx context.Context, in Inbound, p *pending) (Outbound, bool) {
	switch p.state {
	case stateAwaitingClarification:
		i, ok := parseSelection(in.Text, len(p.matches))
		if !ok {
			return Outbound{}, false
		}
		tx := p.matches[i-1].Transaction
		if err := c.deleteOne(ctx, tx); err != nil {
			return Outbound{Messages: []string{"I couldn't delete that record: " + err.Error()}}, true
		}
		return Outbound{Messages: []string{deletedLine(tx)}}, true

	case stateAwaitingConfirmation:
		if !isAffirmative(in.Text) {
			return Outbound{}, false
		}
		var deleted int
		for _, m := range p.matches {
			if err := c.deleteOne(ctx, m.Transaction); err == nil {
				deleted++
			}
		}
		return Outbound{Messages: []string{fmt.Sprintf("Deleted %d record(s).", deleted)}}, true
	}
	return Outbound{}, false
}

func (c *Coordinator) handleRecord(ctx context.Context, in Inbound, res extract.Result) (Outbound, error) {
	log := logger.FromContext(ctx)
	// A record being committed must not be cancelled by the user's next
	// message; the store writes run detached from the inbound context.
	commitCtx := context.WithoutCancel(ctx)

	var lines []string
	for _, cand := range res.Candidates {
		switch {
		case !cand.Valid:
			lines = append(lines, "Skipped one entry: "+cand.Reason)

		case cand.Transaction != nil:
			dup, err := c.isDuplicate(commitCtx, *cand.Transaction)
			if err != nil {
				return Outbound{}, fmt.Errorf("duplicate check: %w", err)
			}
			if dup {
				lines = append(lines, fmt.Sprintf("Skipped duplicate: %s %s %s (recorded recently)",
					cand.Transaction.Category, cand.Transaction.Amount.StringFixed(2), cand.Transaction.Currency))
				continue
			}
			created, err := c.store.CreateTransaction(commitCtx, *cand.Transaction)
			if err != nil {
				return Outbound{}, fmt.Errorf("commit transaction: %w", err)
			}
			log.Info().Str("id", created.ID).Str("kind", string(created.Kind)).Msg("Transaction recorded")
			lines = append(lines, fmt.Sprintf("Recorded %s: %s %s %s (%s)",
				created.Kind, created.Category, created.Amount.StringFixed(2), created.Currency, created.Description))

		case cand.Asset != nil:
			line, err := c.upsertAsset(commitCtx, *cand.Asset)
			if err != nil {
				return Outbound{}, fmt.Errorf("upsert asset: %w", err)
			}
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		lines = []string{"I couldn't find any financial data in that message."}
	}
	return Outbound{Messages: lines}, nil
}

func (c *Coordinator) handleQuery(ctx context.Context, in Inbound, res extract.Result) (Outbound, error) {
	now := c.now()

	var data string
	if res.QueryCategory != "" {
		total, err := c.analyzer.CategorySpending(ctx, res.QueryCategory, now)
		if err != nil {
			return Outbound{}, fmt.Errorf("query: %w", err)
		}
		data = fmt.Sprintf("Total spent on %s this month: %s %s", res.QueryCategory, total.StringFixed(2), c.defaultCurrency)
	} else {
		report, err := c.analyzer.Summarize(ctx, now)
		if err != nil {
			return Outbound{}, fmt.Errorf("query: %w", err)
		}
		data = analyze.FormatSummaryText(report)
	}

	return Outbound{Messages: []string{c.engine.NaturalAnswer(ctx, in.Text, data)}}, nil
}

func (c *Coordinator) handleDelete(ctx context.Context, in Inbound, res extract.Result) (Outbound, error) {
	d := res.Delete
	if d == nil {
		return Outbound{Messages: []string{"I'm not sure which record you want me to delete."}}, nil
	}

	result, err := c.resolver.Resolve(ctx, resolve.Query{
		Descriptor: d.SearchTerm,
		Amount:     d.Amount,
		Date:       d.Date,
		Last:       d.Last,
		Bulk:       d.All,
	})
	if err != nil {
		return Outbound{}, fmt.Errorf("delete: %w", err)
	}

	switch result.Outcome {
	case resolve.OutcomeMatched:
		tx := result.Matches[0].Transaction
		if err := c.deleteOne(ctx, tx); err != nil {
			return Outbound{}, fmt.Errorf("delete: %w", err)
		}
		return Outbound{Messages: []string{deletedLine(tx)}}, nil

	case resolve.OutcomeAmbiguous:
		c.pending[in.UserID] = &pending{
			state:     stateAwaitingClarification,
			matches:   result.Matches,
			expiresAt: c.now().Add(c.ttl),
		}
		lines := []string{fmt.Sprintf("I found %d matching records. Reply with a number to pick one:", len(result.Matches))}
		for i, m := range result.Matches {
			tx := m.Transaction
			lines = append(lines, fmt.Sprintf("%d. %s %s %s on %s (%s)",
				i+1, tx.Category, tx.Amount.StringFixed(2), tx.Currency, tx.OccurredOn.Format("2006-01-02"), tx.Description))
		}
		return Outbound{Messages: lines}, nil

	case resolve.OutcomeBulk:
		if len(result.Matches) == 0 {
			return Outbound{Messages: []string{noMatchLine(d.SearchTerm)}}, nil
		}
		c.pending[in.UserID] = &pending{
			state:     stateAwaitingConfirmation,
			matches:   result.Matches,
			expiresAt: c.now().Add(c.ttl),
		}
		return Outbound{Messages: []string{
			fmt.Sprintf("This will delete %d record(s) matching %q. Reply \"yes\" to confirm.", len(result.Matches), d.SearchTerm),
		}}, nil

	default: // OutcomeNone
		return Outbound{Messages: []string{noMatchLine(d.SearchTerm)}}, nil
	}
}

// Report renders the current month's summary for the ledger owner.
func (c *Coordinator) Report(ctx context.Context, userID string) (string, error) {
	if userID != c.allowedUserID {
		return "", domain.ErrUnauthorized
	}
	report, err := c.analyzer.Summarize(ctx, c.now())
	if err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	return analyze.FormatSummaryText(report), nil
}

// Assets renders the current asset position for the ledger owner.
func (c *Coordinator) Assets(ctx context.Context, userID string) (string, error) {
	if userID != c.allowedUserID {
		return "", domain.ErrUnauthorized
	}
	summary, err := c.analyzer.Assets(ctx)
	if err != nil {
		return "", fmt.Errorf("assets: %w", err)
	}
	return analyze.FormatAssetsText(summary), nil
}

// isDuplicate reports whether an identical transaction (amount, kind,
// category) was recorded within the duplicate window. Daily yield
// notifications tend to repeat at similar times.
func (c *Coordinator) isDuplicate(ctx context.Context, tx domain.Transaction) (bool, error) {
	recent, err := c.store.ListTransactions(ctx, ledger.Filter{Kind: tx.Kind, Category: tx.Category})
	if err != nil {
		return false, err
	}
	cutoff := c.now().Add(-duplicateWindow)
	for _, r := range recent {
		if r.CreatedAt.Before(cutoff) {
			break // listings are newest-first
		}
		if r.Amount.Equal(tx.Amount) {
			return true, nil
		}
	}
	return false, nil
}

// upsertAsset replaces the account's balance unless the change is
// within tolerance, in which case it reports the account unchanged.
func (c *Coordinator) upsertAsset(ctx context.Context, asset domain.AssetBalance) (string, error) {
	balances, err := c.store.ListBalances(ctx)
	if err != nil {
		return "", err
	}
	for _, b := range balances {
		if b.AccountName == asset.AccountName && b.Balance.Sub(asset.Balance).Abs().LessThan(balanceTolerance) {
			return fmt.Sprintf("%s unchanged at %s %s", b.AccountName, b.Balance.StringFixed(2), b.Currency), nil
		}
	}
	if err := c.store.UpsertBalance(ctx, asset); err != nil {
		return "", err
	}
	return fmt.Sprintf("Updated %s: %s %s", asset.AccountName, asset.Balance.StringFixed(2), asset.Currency), nil
}

func (c *Coordinator) deleteOne(ctx context.Context, tx domain.Transaction) error {
	return c.store.DeleteTransaction(context.WithoutCancel(ctx), tx.ID)
}

func hasValidCandidates(res extract.Result) bool {
	for _, cand := range res.Candidates {
		if cand.Valid {
			return true
		}
	}
	return false
}

func deletedLine(tx domain.Transaction) string {
	return fmt.Sprintf("Deleted: %s %s %s (%s)", tx.Category, tx.Amount.StringFixed(2), tx.Currency, tx.Description)
}

func noMatchLine(term string) string {
	if strings.TrimSpace(term) == "" {
		return "I couldn't find a matching record."
	}
	return fmt.Sprintf("I couldn't find any record matching %q.", term)
}
