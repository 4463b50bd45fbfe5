// Package extract turns free-form input (text or images) into
// structured candidate records. Natural-language and vision
// understanding is delegated to an external completion service; every
// candidate it returns passes through the schema boundary before
// anything else sees it.
package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/schema"
)

// Intent is the message classification produced by the completion
// service. The core acts on it deterministically.
type Intent string

const (
	IntentRecord Intent = "record"
	IntentQuery  Intent = "query"
	IntentDelete Intent = "delete"
	IntentChat   Intent = "chat"
)

// Request is one extraction call: the raw input plus the context needed
// to fill defaults. Ephemeral, never persisted.
type Request struct {
	Text            string
	Image           *Image
	ReferenceDate   time.Time
	DefaultCurrency string
	UserID          string
}

// Candidate is one validated-or-rejected record from the model output.
// Exactly one of Transaction/Asset is set when Valid.
type Candidate struct {
	Transaction *domain.Transaction
	Asset       *domain.AssetBalance
	Valid       bool
	Reason      string // rejection reason when !Valid
}

// DeleteQuery carries the recognized form of a deletion request. The
// bulk form (All) is only ever set by an explicit request, never
// inferred from a singular descriptor.
type DeleteQuery struct {
	Last       bool
	SearchTerm string
	Amount     *decimal.Decimal
	Date       *time.Time
	All        bool
}

// Result is the outcome of one extraction. Ephemeral.
type Result struct {
	Intent        Intent
	Candidates    []Candidate
	QueryCategory string       // for IntentQuery; empty means general summary
	Delete        *DeleteQuery // for IntentDelete
	Reply         string       // for IntentChat
}

// Engine drives the completion service and validates its output.
type Engine struct {
	completer Completer
}

func NewEngine(completer Completer) *Engine {
	return &Engine{completer: completer}
}

// Extract classifies the input and produces validated candidates.
// Candidates are validated independently: one invalid sibling never
// blocks the rest. A failed service call yields an error, never a
// guessed record.
func (e *Engine) Extract(ctx context.Context, req Request) (Result, error) {
	log := logger.FromContext(ctx)

	prompt := buildPrompt(req.ReferenceDate, req.DefaultCurrency, req.Text)
	raw, err := e.completer.Complete(ctx, prompt, req.Image)
	if err != nil {
		return Result{}, fmt.Errorf("extract: %w", err)
	}

	sc := schema.Context{
		ReferenceDate:   req.ReferenceDate,
		DefaultCurrency: req.DefaultCurrency,
		RawText:         req.Text,
	}

	res := Result{Intent: parseIntent(raw)}

	for i, obj := range objectsField(raw, "transactions") {
		tx, err := schema.CoerceTransaction(obj, sc)
		if err != nil {
			log.Warn().Err(err).Int("candidate", i).Msg("Rejected transaction candidate")
			res.Candidates = append(res.Candidates, Candidate{Reason: err.Error()})
			continue
		}
		res.Candidates = append(res.Candidates, Candidate{Transaction: tx, Valid: true})
	}

	for i, obj := range objectsField(raw, "assets") {
		asset, err := schema.CoerceAsset(obj, sc)
		if err != nil {
			log.Warn().Err(err).Int("candidate", i).Msg("Rejected asset candidate")
			res.Candidates = append(res.Candidates, Candidate{Reason: err.Error()})
			continue
		}
		res.Candidates = append(res.Candidates, Candidate{Asset: asset, Valid: true})
	}

	switch res.Intent {
	case IntentQuery:
		if q, ok := raw["query"].(map[string]interface{}); ok {
			if cat, ok := q["category"].(string); ok {
				res.QueryCategory = cat
			}
		}
	case IntentDelete:
		res.Delete = parseDelete(raw)
	case IntentChat:
		if reply, ok := raw["reply"].(string); ok {
			res.Reply = reply
		}
	}

	return res, nil
}

// NaturalAnswer asks the completion service to phrase an answer to the
// user's question from already-computed data. On failure the raw data
// is returned, so analysis never depends on the service being up.
func (e *Engine) NaturalAnswer(ctx context.Context, question, data string) string {
	prompt := "User question: " + question + "\n\n" +
		"Computed data:\n" + data + "\n\n" +
		"Task: answer the question naturally and briefly using ONLY the data above.\n" +
		"If the data is empty or zero, say so politely. Plain text, no Markdown.\n"

	answer, err := e.completer.Reply(ctx, prompt)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Paraphrase unavailable, returning raw data")
		return data
	}
	return answer
}

func parseIntent(raw map[string]interface{}) Intent {
	s, _ := raw["intent"].(string)
	switch Intent(s) {
	case IntentRecord, IntentQuery, IntentDelete, IntentChat:
		return Intent(s)
	default:
		return IntentChat
	}
}

func parseDelete(raw map[string]interface{}) *DeleteQuery {
	obj, ok := raw["delete"].(map[string]interface{})
	if !ok {
		return nil
	}

	d := &DeleteQuery{}
	if target, _ := obj["target"].(string); target == "last" {
		d.Last = true
	}
	if term, ok := obj["search_term"].(string); ok {
		d.SearchTerm = term
	}
	if all, ok := obj["all"].(bool); ok {
		d.All = all
	}
	if amount, ok := obj["amount"].(float64); ok {
		a := decimal.NewFromFloat(amount)
		d.Amount = &a
	}
	if s, ok := obj["date"].(string); ok {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			d.Date = &t
		}
	}
	return d
}

// objectsField extracts an array of JSON objects from the raw output,
// tolerating a missing or malformed field.
func objectsField(raw map[string]interface{}, key string) []map[string]interface{} {
	arr, ok := raw[key].([]interface{})
	if !ok {
		return nil
	}
	var out []map[string]interface{}
	for _, item := range arr {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}
