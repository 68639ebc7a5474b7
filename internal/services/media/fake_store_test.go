package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/princekumarofficial/submission-service/internal/storage"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failFor map[string]error
	puts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: make(map[string][]byte),
		failFor: make(map[string]error),
	}
}

func (s *fakeStore) Put(_ context.Context, bucket, objectPath string, r io.Reader, _ int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++

	for name, err := range s.failFor {
		if strings.HasSuffix(objectPath, "_"+name) {
			return err
		}
	}
	key := bucket + "/" + objectPath
	if _, ok := s.objects[key]; ok {
		return storage.ErrObjectExists
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) PublicURL(bucket, objectPath string) string {
	return storage.PublicObjectURL("https://cdn.example.com/storage/v1/object/public", bucket, objectPath)
}

var errNetwork = errors.New("connection reset by peer")
