package media

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	mediatypes "github.com/princekumarofficial/submission-service/internal/types/media"
)

// BatchUploader issues every upload of a batch concurrently and waits for
// all of them. One file failing never cancels its siblings.
type BatchUploader struct {
	uploader  *Uploader
	extractor ReferenceExtractor
	limit     int
	logger    *slog.Logger
}

// NewBatchUploader builds an orchestrator. limit <= 0 means no cap on
// in-flight uploads.
func NewBatchUploader(uploader *Uploader, extractor ReferenceExtractor, limit int, logger *slog.Logger) *BatchUploader {
	if extractor == nil {
		extractor = PathExtractor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchUploader{
		uploader:  uploader,
		extractor: extractor,
		limit:     limit,
		logger:    logger,
	}
}

// UploadAll returns exactly one outcome per input file, in input order.
func (b *BatchUploader) UploadAll(ctx context.Context, files []mediatypes.MediaFile, target mediatypes.UploadTarget) mediatypes.BatchResult {
	if len(files) == 0 {
		return mediatypes.BatchResult{}
	}

	outcomes := make([]mediatypes.UploadOutcome, len(files))

	// Goroutines only report through their own slot and always return nil,
	// so the group never cancels.
	var g errgroup.Group
	if b.limit > 0 {
		g.SetLimit(b.limit)
	}
	for i, file := range files {
		g.Go(func() error {
			outcomes[i] = b.uploadOne(ctx, file, target)
			return nil
		})
	}
	_ = g.Wait()

	result := mediatypes.BatchResult{Outcomes: outcomes}
	for i, o := range outcomes {
		if !o.Succeeded() {
			result.FailedCount++
			result.FailedFiles = append(result.FailedFiles, o.FileName)
			continue
		}
		result.Locators = append(result.Locators, o.Locator)
		result.Media = append(result.Media, mediatypes.MediaItem{
			URL:  o.Locator,
			Type: mediaType(files[i]),
		})
		if o.Reference != "" {
			result.References = append(result.References, o.Reference)
		}
	}

	return result
}

func (b *BatchUploader) uploadOne(ctx context.Context, file mediatypes.MediaFile, target mediatypes.UploadTarget) mediatypes.UploadOutcome {
	outcome := mediatypes.UploadOutcome{
		FileName:    file.FileName,
		ContentType: file.ContentType,
	}

	locator, err := b.uploader.Upload(ctx, file, target)
	if err != nil {
		b.logger.Warn("media upload failed",
			slog.String("file", file.FileName),
			slog.String("error", err.Error()))
		outcome.Err = err
		return outcome
	}
	outcome.Locator = locator

	ref, ok := b.extractor.ExtractPath(locator, target.Bucket)
	if !ok {
		b.logger.Warn("no storage reference in locator",
			slog.String("file", file.FileName),
			slog.String("locator", locator))
		return outcome
	}
	outcome.Reference = ref
	return outcome
}

func mediaType(f mediatypes.MediaFile) string {
	if f.IsVideo() {
		return "video"
	}
	return "image"
}
