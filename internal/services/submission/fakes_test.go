package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/princekumarofficial/submission-service/internal/storage"
	"github.com/princekumarofficial/submission-service/internal/types"
)

type invokeCall struct {
	token    string
	endpoint string
	body     map[string]any
}

type fakeInvoker struct {
	mu       sync.Mutex
	response string
	err      error
	calls    []invokeCall
}

func (f *fakeInvoker) Invoke(_ context.Context, token, endpointPath string, body any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invokeCall{token: token, endpoint: endpointPath, body: body.(map[string]any)})
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.response), nil
}

type updateCall struct {
	table string
	id    string
	patch storage.Row
}

type fakeRecords struct {
	mu            sync.Mutex
	insertErr     map[string]error
	insertManyErr error
	updateErr     error
	inserted      map[string][]storage.Row
	links         map[string]bool
	updates       []updateCall
	nextID        int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		insertErr: make(map[string]error),
		inserted:  make(map[string][]storage.Row),
		links:     make(map[string]bool),
	}
}

func linkKey(row storage.Row) string {
	return fmt.Sprintf("%v|%v|%v", row["content_kind"], row["record_id"], row["storage_path"])
}

func (f *fakeRecords) Insert(_ context.Context, table string, row storage.Row) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.insertErr[table]; err != nil {
		return "", err
	}
	if table == mediaLinksTable {
		if f.links[linkKey(row)] {
			return "", fmt.Errorf("%w: duplicate link", storage.ErrUniqueViolation)
		}
		f.links[linkKey(row)] = true
	}
	f.nextID++
	f.inserted[table] = append(f.inserted[table], row)
	return fmt.Sprintf("rec-%d", f.nextID), nil
}

func (f *fakeRecords) InsertMany(_ context.Context, table string, rows []storage.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertManyErr != nil {
		return f.insertManyErr
	}
	if table == mediaLinksTable {
		for _, r := range rows {
			if f.links[linkKey(r)] {
				return fmt.Errorf("%w: duplicate link", storage.ErrUniqueViolation)
			}
		}
		for _, r := range rows {
			f.links[linkKey(r)] = true
		}
	}
	f.inserted[table] = append(f.inserted[table], rows...)
	return nil
}

func (f *fakeRecords) Update(_ context.Context, table, id string, patch storage.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, updateCall{table: table, id: id, patch: patch})
	return nil
}

func (f *fakeRecords) linkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.links)
}

type procedureCall struct {
	name string
	args storage.Row
}

type fakeProcedures struct {
	id    string
	err   error
	calls []procedureCall
}

func (f *fakeProcedures) Call(_ context.Context, procedure string, args storage.Row) (string, error) {
	f.calls = append(f.calls, procedureCall{name: procedure, args: args})
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type fakeObjectStore struct {
	mu      sync.Mutex
	puts    int
	failFor map[string]error
}

func (s *fakeObjectStore) Put(_ context.Context, bucket, objectPath string, r io.Reader, _ int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	for name, err := range s.failFor {
		if strings.HasSuffix(objectPath, "_"+name) {
			return err
		}
	}
	_, err := io.Copy(io.Discard, r)
	return err
}

func (s *fakeObjectStore) PublicURL(bucket, objectPath string) string {
	return storage.PublicObjectURL("https://proj.example.co/storage/v1/object/public", bucket, objectPath)
}

type staticSessions struct {
	session types.Session
	ok      bool
}

func (s staticSessions) CurrentSession(context.Context) (types.Session, bool) {
	return s.session, s.ok
}

type recordingPublisher struct {
	mu       sync.Mutex
	created  []*types.SubmissionCreatedEvent
	rejected []*types.SubmissionRejectedEvent
}

func (p *recordingPublisher) PublishSubmissionCreated(_ string, data *types.SubmissionCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, data)
	return nil
}

func (p *recordingPublisher) PublishSubmissionRejected(_ string, data *types.SubmissionRejectedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejected = append(p.rejected, data)
	return nil
}

var errDB = errors.New(`pq: null value in column "user_id" violates not-null constraint`)
