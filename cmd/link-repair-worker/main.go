package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/princekumarofficial/submission-service/internal/config"
	"github.com/princekumarofficial/submission-service/internal/metrics"
	"github.com/princekumarofficial/submission-service/internal/services/media"
	"github.com/princekumarofficial/submission-service/internal/services/submission"
	"github.com/princekumarofficial/submission-service/internal/storage"
	"github.com/princekumarofficial/submission-service/internal/storage/postgres"
)

// LinkRepairWorker re-links records whose media list was written but whose
// association rows are missing. Each sweep reads one page per table and
// advances a keyset cursor, so records that cannot be repaired never hold
// back newer ones. A short page resets the cursor to the oldest record.
type LinkRepairWorker struct {
	source    storage.RepairSource
	cursors   map[string]storage.RepairCursor
	linker    *submission.Linker
	bucket    string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewLinkRepairWorker(source storage.RepairSource, linker *submission.Linker, bucket string, interval time.Duration, batchSize int, logger *slog.Logger) *LinkRepairWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &LinkRepairWorker{
		source:    source,
		cursors:   make(map[string]storage.RepairCursor),
		linker:    linker,
		bucket:    bucket,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *LinkRepairWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Link repair worker started",
		"interval", w.interval.String())

	// Run once immediately on startup
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Link repair worker shutting down")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce sweeps every content kind once and returns the number of
// association rows written.
func (w *LinkRepairWorker) RunOnce(ctx context.Context) int {
	startTime := time.Now()
	linked := 0

	for _, spec := range submission.Kinds() {
		records, err := w.source.ListUnlinkedRecords(ctx, spec.Table, string(spec.Kind), w.cursors[spec.Table], w.batchSize)
		if err != nil {
			w.logger.Error("Failed to list unlinked records",
				"kind", string(spec.Kind),
				"error", err.Error())
			continue
		}

		for _, rec := range records {
			linked += w.repair(ctx, spec, rec)
		}

		if len(records) < w.batchSize {
			delete(w.cursors, spec.Table)
		} else {
			last := records[len(records)-1]
			w.cursors[spec.Table] = storage.RepairCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		}
	}

	w.logger.Info("Completed link repair sweep",
		"linked", linked,
		"duration_ms", time.Since(startTime).Milliseconds())

	return linked
}

func (w *LinkRepairWorker) repair(ctx context.Context, spec submission.KindSpec, rec storage.UnlinkedRecord) int {
	refs := make([]string, 0, len(rec.Images))
	for _, locator := range rec.Images {
		ref, ok := media.ExtractPath(locator, w.bucket)
		if !ok {
			w.logger.Warn("Could not derive storage reference",
				"record_id", rec.ID,
				"locator", locator)
			continue
		}
		refs = append(refs, ref)
	}
	if len(refs) == 0 {
		return 0
	}

	report := w.linker.Link(ctx, spec, rec.ID, refs, rec.Images, nil)
	for _, warning := range report.Warnings {
		w.logger.Warn("Link repair warning",
			"record_id", rec.ID,
			"error", warning.Error())
	}
	return report.Linked
}

func main() {
	// Load config
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	store, err := postgres.NewPostgres(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer store.Close()

	observer, err := metrics.NewObserver("link_repair", nil)
	if err != nil {
		log.Fatal("Failed to register metrics:", err)
	}

	linker := submission.NewLinker(store, observer, logger)
	worker := NewLinkRepairWorker(store, linker, cfg.ObjectStore.Bucket, cfg.LinkRepair.Interval, cfg.LinkRepair.BatchSize, logger)

	worker.Start(ctx)

	logger.Info("Link repair worker stopped")
}
