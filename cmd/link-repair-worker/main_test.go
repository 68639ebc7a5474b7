package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/submission-service/internal/services/submission"
	"github.com/princekumarofficial/submission-service/internal/storage"
)

type fakeSource struct {
	byTable map[string][]storage.UnlinkedRecord
	err     error
}

func (f *fakeSource) ListUnlinkedRecords(_ context.Context, table, _ string, _ storage.RepairCursor, _ int) ([]storage.UnlinkedRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byTable[table], nil
}

type memRecords struct {
	mu      sync.Mutex
	links   []storage.Row
	updates map[string]storage.Row
}

func (m *memRecords) Insert(_ context.Context, _ string, row storage.Row) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, row)
	return "1", nil
}

func (m *memRecords) InsertMany(_ context.Context, _ string, rows []storage.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, rows...)
	return nil
}

func (m *memRecords) Update(_ context.Context, table, id string, patch storage.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updates == nil {
		m.updates = make(map[string]storage.Row)
	}
	m.updates[table+"/"+id] = patch
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnceRelinksRecords(t *testing.T) {
	records := &memRecords{}
	source := &fakeSource{byTable: map[string][]storage.UnlinkedRecord{
		"posts": {{
			ID: "p1",
			Images: []string{
				"https://proj.supabase.co/storage/v1/object/public/community-media/42/post/1_a.jpg",
				"https://elsewhere.example.com/unrelated.png",
			},
		}},
		"bid_requests": {{
			ID:     "b1",
			Images: []string{"http://localhost:9000/community-media/42/bid/2_b.jpg"},
		}},
	}}

	linker := submission.NewLinker(records, nil, quietLogger())
	worker := NewLinkRepairWorker(source, linker, "community-media", 0, 10, quietLogger())

	linked := worker.RunOnce(context.Background())

	assert.Equal(t, 2, linked)
	require.Len(t, records.links, 2)
	assert.Equal(t, "42/post/1_a.jpg", records.links[0]["storage_path"])
	assert.Equal(t, "post", records.links[0]["content_kind"])
	assert.Equal(t, "42/bid/2_b.jpg", records.links[1]["storage_path"])
	assert.Equal(t, "bid_request", records.links[1]["content_kind"])

	patch := records.updates["posts/p1"]
	require.NotNil(t, patch)
	assert.NotContains(t, patch, "media")
}

func TestRunOnceSkipsRecordsWithoutReferences(t *testing.T) {
	records := &memRecords{}
	source := &fakeSource{byTable: map[string][]storage.UnlinkedRecord{
		"posts": {{ID: "p1", Images: []string{"https://cdn.example.com/x.png"}}},
	}}

	worker := NewLinkRepairWorker(source, submission.NewLinker(records, nil, quietLogger()), "community-media", 0, 0, quietLogger())

	assert.Zero(t, worker.RunOnce(context.Background()))
	assert.Empty(t, records.links)
	assert.Empty(t, records.updates)
}

func TestRunOnceSurvivesListErrors(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	worker := NewLinkRepairWorker(source, submission.NewLinker(&memRecords{}, nil, quietLogger()), "community-media", 0, 0, quietLogger())

	assert.Zero(t, worker.RunOnce(context.Background()))
}

// keysetSource behaves like the SQL query: unlinked posts only, oldest
// first, strictly after the cursor, at most limit rows.
type keysetSource struct {
	records *memRecords
	posts   []storage.UnlinkedRecord
	cursors []storage.RepairCursor
}

func (k *keysetSource) linked(id string) bool {
	k.records.mu.Lock()
	defer k.records.mu.Unlock()
	for _, row := range k.records.links {
		if row["record_id"] == id {
			return true
		}
	}
	return false
}

func (k *keysetSource) ListUnlinkedRecords(_ context.Context, table, _ string, after storage.RepairCursor, limit int) ([]storage.UnlinkedRecord, error) {
	if table != "posts" {
		return nil, nil
	}
	k.cursors = append(k.cursors, after)

	var out []storage.UnlinkedRecord
	for _, rec := range k.posts {
		if k.linked(rec.ID) {
			continue
		}
		if !after.IsZero() && !rec.CreatedAt.After(after.CreatedAt) {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestRunOnceAdvancesPastUnrepairableRecords(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	records := &memRecords{}
	source := &keysetSource{
		records: records,
		posts: []storage.UnlinkedRecord{
			{ID: "old", Images: []string{"https://other.example.com/elsewhere/x.jpg"}, CreatedAt: base},
			{ID: "new", Images: []string{"http://localhost:9000/community-media/42/post/1_a.jpg"}, CreatedAt: base.Add(time.Hour)},
		},
	}

	worker := NewLinkRepairWorker(source, submission.NewLinker(records, nil, quietLogger()), "community-media", 0, 1, quietLogger())

	assert.Zero(t, worker.RunOnce(context.Background()))
	assert.Equal(t, 1, worker.RunOnce(context.Background()))
	require.Len(t, records.links, 1)
	assert.Equal(t, "new", records.links[0]["record_id"])

	// The page after "new" comes back short, so the next sweep starts over.
	worker.RunOnce(context.Background())
	worker.RunOnce(context.Background())
	require.Len(t, source.cursors, 4)
	assert.True(t, source.cursors[0].IsZero())
	assert.Equal(t, "old", source.cursors[1].ID)
	assert.Equal(t, "new", source.cursors[2].ID)
	assert.True(t, source.cursors[3].IsZero())
}
