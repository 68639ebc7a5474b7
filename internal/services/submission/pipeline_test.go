package submission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/submission-service/internal/backend"
	"github.com/princekumarofficial/submission-service/internal/cache"
	mediasvc "github.com/princekumarofficial/submission-service/internal/services/media"
	"github.com/princekumarofficial/submission-service/internal/storage"
	"github.com/princekumarofficial/submission-service/internal/types"
	mediatypes "github.com/princekumarofficial/submission-service/internal/types/media"
)

const testBucket = "community-media"

type harness struct {
	store     *fakeObjectStore
	invoker   *fakeInvoker
	records   *fakeRecords
	procs     *fakeProcedures
	publisher *recordingPublisher
	pipeline  *Pipeline
}

func newHarness(t *testing.T, sessions SessionProvider, guard Guard) *harness {
	t.Helper()
	h := &harness{
		store:     &fakeObjectStore{failFor: map[string]error{}},
		invoker:   &fakeInvoker{response: `{"post":{"id":"post-1"}}`},
		records:   newFakeRecords(),
		procs:     &fakeProcedures{id: "proc-1"},
		publisher: &recordingPublisher{},
	}

	policy := mediasvc.Policy{
		MaxFileSize:      10,
		MaxFiles:         5,
		AllowedMimeTypes: []string{"image/jpeg", "image/png", "video/mp4"},
	}
	batch := mediasvc.NewBatchUploader(mediasvc.NewUploader(h.store, nil), mediasvc.PathExtractor{}, 0, nil)
	executor := NewExecutor(h.invoker, h.records, h.procs, nil, nil)
	linker := NewLinker(h.records, nil, nil)

	opts := Options{
		Bucket:   testBucket,
		Timeout:  5 * time.Second,
		Notifier: h.publisher,
	}
	if guard != nil {
		opts.Guard = guard
	}
	h.pipeline = NewPipeline(sessions, policy, batch, executor, linker, opts)
	return h
}

func signedIn() SessionProvider {
	return staticSessions{session: types.Session{UserID: "7", Token: "tok"}, ok: true}
}

func jpeg(name string, size int) mediatypes.MediaFile {
	return mediatypes.NewMediaFile(name, "image/jpeg", make([]byte, size))
}

// Scenario A
func TestSubmitAllFilesPreferredTier(t *testing.T) {
	h := newHarness(t, signedIn(), nil)

	res, err := h.pipeline.Submit(context.Background(), types.Draft{
		Kind:  types.KindPost,
		Title: "Track day",
		Files: []mediatypes.MediaFile{jpeg("a.jpg", 3), jpeg("b.jpg", 3), jpeg("c.jpg", 3)},
	})
	require.NoError(t, err)

	assert.Equal(t, "post-1", res.RecordID)
	assert.Equal(t, TierPreferred, res.Tier)
	assert.Len(t, res.Locators, 3)
	assert.Len(t, res.References, 3)
	assert.Equal(t, 3, res.Link.Linked)
	assert.True(t, res.Link.DenormalizedUpdated)
	assert.Equal(t, 3, h.records.linkCount())

	require.Len(t, h.invoker.calls, 1)
	assert.Len(t, h.invoker.calls[0].body["images"], 3)

	require.Len(t, h.publisher.created, 1)
	assert.Equal(t, 3, h.publisher.created[0].Uploaded)
	assert.False(t, h.publisher.created[0].Degraded)
}

// Scenario B
func TestSubmitOversizedFileRejectedOthersProceed(t *testing.T) {
	h := newHarness(t, signedIn(), nil)

	res, err := h.pipeline.Submit(context.Background(), types.Draft{
		Kind:  types.KindPost,
		Body:  "Three photos",
		Files: []mediatypes.MediaFile{jpeg("a.jpg", 3), jpeg("huge.jpg", 50), jpeg("c.jpg", 3)},
	})
	require.NoError(t, err)

	require.Len(t, res.RejectedFiles, 1)
	assert.Equal(t, "huge.jpg", res.RejectedFiles[0].FileName)
	assert.ErrorIs(t, res.RejectedFiles[0], mediasvc.ErrFileTooLarge)
	assert.Equal(t, 2, h.store.puts)
	assert.Len(t, res.Locators, 2)
	assert.Equal(t, 2, res.Link.Linked)
	assert.Equal(t, "post-1", res.RecordID)
	assert.True(t, res.Degraded())
}

// Scenario C
func TestSubmitPreferredFailsDirectSucceeds(t *testing.T) {
	h := newHarness(t, signedIn(), nil)
	h.invoker.err = &backend.HTTPError{StatusCode: 503, Message: "moderation service unavailable"}

	res, err := h.pipeline.Submit(context.Background(), types.Draft{
		Kind:  types.KindPost,
		Title: "Hi",
		Files: []mediatypes.MediaFile{jpeg("a.jpg", 3)},
	})
	require.NoError(t, err)

	assert.Equal(t, "rec-1", res.RecordID)
	assert.Equal(t, TierDirect, res.Tier)
	assert.Empty(t, h.procs.calls)
	assert.Equal(t, 1, res.Link.Linked)
}

// Scenario D
func TestSubmitAllTiersFail(t *testing.T) {
	h := newHarness(t, signedIn(), nil)
	h.invoker.err = &backend.HTTPError{StatusCode: 422, Message: "Listing price is required"}
	h.records.insertErr["posts"] = errDB
	h.procs.err = errors.New("permission denied for function fn_create_post")

	res, err := h.pipeline.Submit(context.Background(), types.Draft{
		Kind:  types.KindPost,
		Files: []mediatypes.MediaFile{jpeg("a.jpg", 3)},
	})

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Contains(t, err.Error(), "Listing price is required")
	assert.Empty(t, res.RecordID)
	assert.Zero(t, h.records.linkCount(), "no links without a record")
	assert.Empty(t, h.records.updates)

	require.Len(t, h.publisher.rejected, 1)
	assert.Equal(t, "Listing price is required", h.publisher.rejected[0].Message)
}

// Scenario E
func TestSubmitWithoutSession(t *testing.T) {
	h := newHarness(t, staticSessions{}, nil)

	_, err := h.pipeline.Submit(context.Background(), types.Draft{
		Kind:  types.KindPost,
		Files: []mediatypes.MediaFile{jpeg("a.jpg", 3)},
	})

	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Zero(t, h.store.puts)
	assert.Empty(t, h.invoker.calls)
}

func TestSubmitTooManyFiles(t *testing.T) {
	h := newHarness(t, signedIn(), nil)

	files := make([]mediatypes.MediaFile, 6)
	for i := range files {
		files[i] = jpeg("a.jpg", 1)
	}
	_, err := h.pipeline.Submit(context.Background(), types.Draft{Kind: types.KindPost, Files: files})

	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.ErrorIs(t, err, mediasvc.ErrTooManyFiles)
	assert.Zero(t, h.store.puts)
}

func TestSubmitUnknownKind(t *testing.T) {
	h := newHarness(t, signedIn(), nil)

	_, err := h.pipeline.Submit(context.Background(), types.Draft{Kind: "story"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSubmitUploadFailureDoesNotBlockCreation(t *testing.T) {
	h := newHarness(t, signedIn(), nil)
	h.store.failFor["b.jpg"] = errors.New("connection reset")

	res, err := h.pipeline.Submit(context.Background(), types.Draft{
		Kind:  types.KindPost,
		Files: []mediatypes.MediaFile{jpeg("a.jpg", 3), jpeg("b.jpg", 3)},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b.jpg"}, res.FailedUploads)
	assert.Len(t, res.Locators, 1)
	assert.LessOrEqual(t, len(res.References), len(res.Locators))
	assert.Equal(t, 1, res.Link.Linked)
}

func TestSubmitPreferredWithoutIDSkipsLinking(t *testing.T) {
	h := newHarness(t, signedIn(), nil)
	h.invoker.response = `{"success":true}`

	res, err := h.pipeline.Submit(context.Background(), types.Draft{
		Kind:  types.KindPost,
		Files: []mediatypes.MediaFile{jpeg("a.jpg", 3)},
	})
	require.NoError(t, err)

	assert.Empty(t, res.RecordID)
	assert.Equal(t, TierPreferred, res.Tier)
	assert.Empty(t, h.records.inserted)
	assert.Empty(t, h.records.updates)
}

func TestSubmitSurvivesCallerCancellation(t *testing.T) {
	h := newHarness(t, signedIn(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.pipeline.Submit(ctx, types.Draft{
		Kind:  types.KindListing,
		Title: "Wheels",
		Files: []mediatypes.MediaFile{jpeg("a.jpg", 3)},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Locators)
	assert.Equal(t, "/listings", h.invoker.calls[0].endpoint)
}

func newRedisGuard(t *testing.T) (*cache.IdempotencyGuard, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewIdempotencyGuard(client, time.Hour), mr
}

func TestSubmitReplaysCompletedSubmission(t *testing.T) {
	guard, _ := newRedisGuard(t)
	h := newHarness(t, signedIn(), guard)

	draft := types.Draft{
		Kind:           types.KindPost,
		Title:          "Once",
		IdempotencyKey: "k-1",
		Files:          []mediatypes.MediaFile{jpeg("a.jpg", 3)},
	}

	first, err := h.pipeline.Submit(context.Background(), draft)
	require.NoError(t, err)
	second, err := h.pipeline.Submit(context.Background(), draft)
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.RecordID, second.RecordID)
	assert.Len(t, h.invoker.calls, 1)
	assert.Equal(t, 1, h.store.puts)
}

func TestSubmitInProgressDuplicate(t *testing.T) {
	guard, _ := newRedisGuard(t)
	h := newHarness(t, signedIn(), guard)

	_, err := guard.Reserve(context.Background(), "7", "k-2")
	require.NoError(t, err)

	_, err = h.pipeline.Submit(context.Background(), types.Draft{Kind: types.KindPost, IdempotencyKey: "k-2"})
	assert.ErrorIs(t, err, ErrSubmissionInProgress)
	assert.Empty(t, h.invoker.calls)
}

func TestSubmitRejectionReleasesKey(t *testing.T) {
	guard, _ := newRedisGuard(t)
	h := newHarness(t, signedIn(), guard)
	h.invoker.err = errors.New("down")
	h.records.insertErr["posts"] = errDB
	h.procs.err = errors.New("down")

	draft := types.Draft{Kind: types.KindPost, IdempotencyKey: "k-3"}
	_, err := h.pipeline.Submit(context.Background(), draft)
	require.Error(t, err)

	h.invoker.err = nil
	res, err := h.pipeline.Submit(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, "post-1", res.RecordID)
}

func TestSubmitFailsOpenWhenGuardIsDown(t *testing.T) {
	guard, mr := newRedisGuard(t)
	h := newHarness(t, signedIn(), guard)
	mr.Close()

	res, err := h.pipeline.Submit(context.Background(), types.Draft{Kind: types.KindPost, IdempotencyKey: "k-4"})
	require.NoError(t, err)
	assert.Equal(t, "post-1", res.RecordID)
}

var _ storage.ObjectStore = (*fakeObjectStore)(nil)
