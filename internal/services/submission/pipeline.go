// Package submission turns a user's draft into a content record: it uploads
// the selected media, creates the record through tiered fallbacks and links
// the media back to it.
package submission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/princekumarofficial/submission-service/internal/cache"
	"github.com/princekumarofficial/submission-service/internal/events"
	"github.com/princekumarofficial/submission-service/internal/metrics"
	mediasvc "github.com/princekumarofficial/submission-service/internal/services/media"
	"github.com/princekumarofficial/submission-service/internal/types"
	mediatypes "github.com/princekumarofficial/submission-service/internal/types/media"
)

// SessionProvider returns the caller's session, if any.
type SessionProvider interface {
	CurrentSession(ctx context.Context) (types.Session, bool)
}

// BatchUploader uploads a set of files and settles every one of them.
type BatchUploader interface {
	UploadAll(ctx context.Context, files []mediatypes.MediaFile, target mediatypes.UploadTarget) mediatypes.BatchResult
}

// Guard deduplicates submissions that carry a client idempotency key.
type Guard interface {
	Reserve(ctx context.Context, userID, key string) (cache.Reservation, error)
	Complete(ctx context.Context, userID, key, recordID string) error
	Release(ctx context.Context, userID, key string) error
}

// Result is what the caller sees after a submission that produced a record.
type Result struct {
	RecordID      string
	Kind          types.ContentKind
	Tier          string
	Locators      []string
	References    []string
	RejectedFiles []mediasvc.Rejection
	FailedUploads []string
	Link          LinkReport
	Replayed      bool
}

// Degraded reports whether some media did not make it onto the record.
func (r Result) Degraded() bool {
	return len(r.RejectedFiles) > 0 || len(r.FailedUploads) > 0 || len(r.Link.Warnings) > 0
}

type Pipeline struct {
	sessions SessionProvider
	policy   mediasvc.Policy
	uploads  BatchUploader
	executor *Executor
	linker   *Linker
	guard    Guard
	notifier events.Publisher
	observer *metrics.Observer
	logger   *slog.Logger

	bucket  string
	timeout time.Duration
}

// Options carries the optional collaborators. Zero values disable the
// corresponding feature.
type Options struct {
	Bucket   string
	Timeout  time.Duration
	Guard    Guard
	Notifier events.Publisher
	Observer *metrics.Observer
	Logger   *slog.Logger
}

func NewPipeline(sessions SessionProvider, policy mediasvc.Policy, uploads BatchUploader, executor *Executor, linker *Linker, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		sessions: sessions,
		policy:   policy,
		uploads:  uploads,
		executor: executor,
		linker:   linker,
		guard:    opts.Guard,
		notifier: opts.Notifier,
		observer: opts.Observer,
		logger:   logger,
		bucket:   opts.Bucket,
		timeout:  opts.Timeout,
	}
}

// Submit runs one submission end to end. It returns a *PreconditionError
// before any upload when the draft cannot proceed, an *AggregateError when
// no tier could create the record, and ErrSubmissionInProgress for a
// duplicate of a submission still running.
func (p *Pipeline) Submit(ctx context.Context, draft types.Draft) (res Result, err error) {
	start := time.Now()
	defer func() {
		p.observer.ObserveSubmission(time.Since(start), err)
	}()

	sess, ok := p.sessions.CurrentSession(ctx)
	if !ok || sess.UserID == "" {
		return Result{}, &PreconditionError{Field: "session", Err: ErrNoSession}
	}

	spec, ok := LookupKind(draft.Kind)
	if !ok {
		return Result{}, &PreconditionError{Field: "kind", Err: ErrUnknownKind}
	}

	accepted, rejected, err := p.policy.Screen(draft.Files)
	if err != nil {
		return Result{}, &PreconditionError{Field: "media", Err: err}
	}
	for _, r := range rejected {
		p.logger.Warn("file rejected before upload",
			slog.String("file", r.FileName),
			slog.String("error", r.Err.Error()))
	}

	// Writes that already started must land even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	key := draft.IdempotencyKey
	if key != "" && p.guard != nil {
		reservation, err := p.guard.Reserve(ctx, sess.UserID, key)
		switch {
		case errors.Is(err, cache.ErrInProgress):
			return Result{}, ErrSubmissionInProgress
		case err != nil:
			p.logger.Warn("idempotency guard unavailable",
				slog.String("error", err.Error()))
			key = ""
		case reservation.Completed:
			p.logger.Info("replaying completed submission",
				slog.String("record_id", reservation.RecordID))
			return Result{RecordID: reservation.RecordID, Kind: spec.Kind, Replayed: true}, nil
		}
	} else {
		key = ""
	}

	classification := draft.Classification
	if classification == "" {
		classification = spec.Classification
	}

	batch := p.uploads.UploadAll(ctx, accepted, mediatypes.UploadTarget{
		Bucket:         p.bucket,
		OwnerID:        sess.UserID,
		Classification: classification,
	})
	for _, o := range batch.Outcomes {
		p.observer.RecordUpload(o.Err)
	}

	res = Result{
		Kind:          spec.Kind,
		Locators:      batch.Locators,
		References:    batch.References,
		RejectedFiles: rejected,
		FailedUploads: batch.FailedFiles,
	}

	payload := BuildPayload(spec, sess.UserID, draft, batch)
	created, err := p.executor.Create(ctx, sess.Token, payload)
	if err != nil {
		p.release(ctx, sess.UserID, key)
		p.notifyRejected(sess.UserID, spec, err)
		return res, err
	}
	res.RecordID = created.RecordID
	res.Tier = created.Tier

	if created.RecordID != "" && len(batch.References) > 0 {
		res.Link = p.linker.Link(ctx, spec, created.RecordID, batch.References, batch.Locators, batch.Media)
	}

	if key != "" {
		if err := p.guard.Complete(ctx, sess.UserID, key, created.RecordID); err != nil {
			p.logger.Warn("failed to record completed submission",
				slog.String("error", err.Error()))
		}
	}
	p.notifyCreated(sess.UserID, res)

	return res, nil
}

func (p *Pipeline) release(ctx context.Context, userID, key string) {
	if key == "" {
		return
	}
	if err := p.guard.Release(ctx, userID, key); err != nil {
		p.logger.Warn("failed to release submission key",
			slog.String("error", err.Error()))
	}
}

func (p *Pipeline) notifyCreated(userID string, res Result) {
	if p.notifier == nil {
		return
	}
	rejected := make([]string, len(res.RejectedFiles))
	for i, r := range res.RejectedFiles {
		rejected[i] = r.FileName
	}
	err := p.notifier.PublishSubmissionCreated(userID, &types.SubmissionCreatedEvent{
		RecordID:      res.RecordID,
		Kind:          res.Kind,
		Tier:          res.Tier,
		Uploaded:      len(res.Locators),
		FailedUploads: res.FailedUploads,
		RejectedFiles: rejected,
		Degraded:      res.Degraded(),
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		p.logger.Warn("failed to publish submission event", slog.String("error", err.Error()))
	}
}

func (p *Pipeline) notifyRejected(userID string, spec KindSpec, cause error) {
	if p.notifier == nil {
		return
	}
	msg := cause.Error()
	var agg *AggregateError
	if errors.As(cause, &agg) {
		msg = agg.Message()
	}
	err := p.notifier.PublishSubmissionRejected(userID, &types.SubmissionRejectedEvent{
		Kind:       spec.Kind,
		Message:    msg,
		RejectedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		p.logger.Warn("failed to publish submission event", slog.String("error", err.Error()))
	}
}
