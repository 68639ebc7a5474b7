package submission

import (
	"context"
	"errors"
	"log/slog"

	"github.com/princekumarofficial/submission-service/internal/metrics"
	"github.com/princekumarofficial/submission-service/internal/storage"
	mediatypes "github.com/princekumarofficial/submission-service/internal/types/media"
)

const mediaLinksTable = "media_links"

const (
	stepAssociation  = "association"
	stepDenormalized = "denormalized"
)

// LinkReport summarizes what the linker managed to write.
type LinkReport struct {
	Linked              int
	AlreadyLinked       int
	DenormalizedUpdated bool
	Warnings            []LinkWarning
}

// Linker attaches uploaded media to a created record in two independent
// places: the media_links table and the record's own images/media columns.
type Linker struct {
	records  storage.RecordStore
	observer *metrics.Observer
	logger   *slog.Logger
}

func NewLinker(records storage.RecordStore, observer *metrics.Observer, logger *slog.Logger) *Linker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{
		records:  records,
		observer: observer,
		logger:   logger,
	}
}

// Link never fails. Both steps always run; problems come back as warnings.
// A nil items slice leaves the record's media column untouched.
func (l *Linker) Link(ctx context.Context, spec KindSpec, recordID string, refs, locators []string, items []mediatypes.MediaItem) LinkReport {
	var report LinkReport
	if recordID == "" || len(refs) == 0 {
		return report
	}

	l.linkAssociations(ctx, spec, recordID, refs, &report)
	l.updateDenormalized(ctx, spec, recordID, locators, items, &report)

	return report
}

func (l *Linker) linkAssociations(ctx context.Context, spec KindSpec, recordID string, refs []string, report *LinkReport) {
	rows := make([]storage.Row, len(refs))
	for i, ref := range refs {
		rows[i] = linkRow(mediatypes.MediaLink{
			Kind:        string(spec.Kind),
			RecordID:    recordID,
			StoragePath: ref,
			Position:    i,
		})
	}

	err := l.records.InsertMany(ctx, mediaLinksTable, rows)
	switch {
	case err == nil:
		report.Linked += len(rows)
		l.observer.RecordLink(stepAssociation, "linked")
		return
	case !errors.Is(err, storage.ErrUniqueViolation):
		l.warn(report, stepAssociation, err, recordID)
		return
	case len(rows) == 1:
		report.AlreadyLinked++
		l.observer.RecordLink(stepAssociation, "already_linked")
		l.logger.Info("media already linked", slog.String("record_id", recordID))
		return
	}

	// The batch hit an existing link. Retry row by row so the new ones land.
	for _, row := range rows {
		_, err := l.records.Insert(ctx, mediaLinksTable, row)
		switch {
		case err == nil:
			report.Linked++
			l.observer.RecordLink(stepAssociation, "linked")
		case errors.Is(err, storage.ErrUniqueViolation):
			report.AlreadyLinked++
			l.observer.RecordLink(stepAssociation, "already_linked")
		default:
			l.warn(report, stepAssociation, err, recordID)
		}
	}
	if report.AlreadyLinked > 0 {
		l.logger.Info("media already linked",
			slog.String("record_id", recordID),
			slog.Int("count", report.AlreadyLinked))
	}
}

func (l *Linker) updateDenormalized(ctx context.Context, spec KindSpec, recordID string, locators []string, items []mediatypes.MediaItem, report *LinkReport) {
	if len(locators) == 0 {
		return
	}
	patch := storage.Row{"images": locators}
	if items != nil {
		patch["media"] = items
	}

	if err := l.records.Update(ctx, spec.Table, recordID, patch); err != nil {
		l.warn(report, stepDenormalized, err, recordID)
		return
	}
	report.DenormalizedUpdated = true
	l.observer.RecordLink(stepDenormalized, "updated")
}

func linkRow(link mediatypes.MediaLink) storage.Row {
	return storage.Row{
		"content_kind": link.Kind,
		"record_id":    link.RecordID,
		"storage_path": link.StoragePath,
		"position":     link.Position,
	}
}

func (l *Linker) warn(report *LinkReport, step string, err error, recordID string) {
	report.Warnings = append(report.Warnings, LinkWarning{Step: step, Err: err})
	l.observer.RecordLink(step, "failed")
	l.logger.Warn("media link step failed",
		slog.String("step", step),
		slog.String("record_id", recordID),
		slog.String("error", err.Error()))
}
