package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/princekumarofficial/submission-service/internal/metrics"
	"github.com/princekumarofficial/submission-service/internal/storage"
)

const (
	TierPreferred = "preferred"
	TierDirect    = "direct"
	TierProcedure = "procedure"
)

// Invoker calls a high-level backend endpoint on behalf of a user.
type Invoker interface {
	Invoke(ctx context.Context, token, endpointPath string, body any) (json.RawMessage, error)
}

// Creation is a successful tier outcome. RecordID may be empty when the
// preferred tier succeeded without echoing an id.
type Creation struct {
	RecordID string
	Tier     string
}

// Executor creates a content record by trying the preferred endpoint, then a
// direct insert, then the minimal procedure. Tiers run strictly in order.
type Executor struct {
	invoker    Invoker
	records    storage.RecordStore
	procedures storage.ProcedureCaller
	observer   *metrics.Observer
	logger     *slog.Logger
}

func NewExecutor(invoker Invoker, records storage.RecordStore, procedures storage.ProcedureCaller, observer *metrics.Observer, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		invoker:    invoker,
		records:    records,
		procedures: procedures,
		observer:   observer,
		logger:     logger,
	}
}

type tier struct {
	name string
	run  func(ctx context.Context, token string, p Payload) (string, error)
}

// Create returns the first tier success or an *AggregateError holding every
// tier's failure.
func (e *Executor) Create(ctx context.Context, token string, p Payload) (Creation, error) {
	if strings.TrimSpace(p.Title) == "" {
		p.Title = ResolveTitle("", p.Body, "", p.Spec.Placeholder)
	}

	tiers := []tier{
		{TierPreferred, e.preferred},
		{TierDirect, e.direct},
		{TierProcedure, e.procedure},
	}

	agg := &AggregateError{Kind: p.Spec.Kind}
	for _, t := range tiers {
		id, err := t.run(ctx, token, p)
		e.observer.RecordTier(t.name, err)
		if err == nil {
			e.logger.Info("record created",
				slog.String("kind", string(p.Spec.Kind)),
				slog.String("tier", t.name),
				slog.String("record_id", id))
			return Creation{RecordID: id, Tier: t.name}, nil
		}

		e.logger.Warn("creation tier failed",
			slog.String("kind", string(p.Spec.Kind)),
			slog.String("tier", t.name),
			slog.String("error", err.Error()))
		agg.Failures = append(agg.Failures, TierFailure{Tier: t.name, Err: err})
	}

	return Creation{}, agg
}

func (e *Executor) preferred(ctx context.Context, token string, p Payload) (string, error) {
	if e.invoker == nil {
		return "", ErrTierUnavailable
	}
	raw, err := e.invoker.Invoke(ctx, token, p.Spec.Endpoint, p.PreferredBody())
	if err != nil {
		return "", err
	}

	id, ok := recordIDFromResponse(raw, p.Spec.ResponseKey)
	if !ok {
		e.logger.Warn("preferred tier response has no record id",
			slog.String("kind", string(p.Spec.Kind)))
	}
	return id, nil
}

func (e *Executor) direct(ctx context.Context, _ string, p Payload) (string, error) {
	if e.records == nil {
		return "", ErrTierUnavailable
	}
	return e.records.Insert(ctx, p.Spec.Table, p.DirectRow())
}

func (e *Executor) procedure(ctx context.Context, _ string, p Payload) (string, error) {
	if e.procedures == nil {
		return "", ErrTierUnavailable
	}
	return e.procedures.Call(ctx, p.Spec.Procedure, p.ProcedureArgs())
}

// recordIDFromResponse looks for the id at the top level, under the kind's
// own key, or under "data".
func recordIDFromResponse(raw json.RawMessage, kindKey string) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return "", false
	}

	if id, ok := idValue(body["id"]); ok {
		return id, true
	}
	for _, key := range []string{kindKey, "data"} {
		if nested, ok := body[key].(map[string]any); ok {
			if id, ok := idValue(nested["id"]); ok {
				return id, true
			}
		}
	}
	return "", false
}

func idValue(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case json.Number:
		return id.String(), true
	}
	return "", false
}
