package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/princekumarofficial/submission-service/internal/storage"
	mediatypes "github.com/princekumarofficial/submission-service/internal/types/media"
)

const defaultClassification = "uploads"

var ErrMissingOwner = errors.New("upload target has no owner")

// UploadError wraps a failed upload with the file it belongs to.
type UploadError struct {
	FileName string
	Path     string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %s", e.FileName, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Uploader writes single files to the object store under an owner-scoped
// path and resolves their public locator.
type Uploader struct {
	store  storage.ObjectStore
	now    func() time.Time
	last   atomic.Int64
	logger *slog.Logger
}

func NewUploader(store storage.ObjectStore, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

// Upload stores file under {owner}/{classification}/{stamp}_{name} and
// returns its public URL. It never retries.
func (u *Uploader) Upload(ctx context.Context, file mediatypes.MediaFile, target mediatypes.UploadTarget) (string, error) {
	objectPath, err := u.objectPath(target, file.FileName)
	if err != nil {
		return "", &UploadError{FileName: file.FileName, Err: err}
	}

	rc, err := file.Reader()
	if err != nil {
		return "", &UploadError{FileName: file.FileName, Path: objectPath, Err: err}
	}
	defer rc.Close()

	if err := u.store.Put(ctx, target.Bucket, objectPath, rc, file.Size, file.ContentType); err != nil {
		return "", &UploadError{FileName: file.FileName, Path: objectPath, Err: err}
	}

	u.logger.Debug("media uploaded",
		slog.String("bucket", target.Bucket),
		slog.String("path", objectPath))

	return u.store.PublicURL(target.Bucket, objectPath), nil
}

func (u *Uploader) objectPath(target mediatypes.UploadTarget, fileName string) (string, error) {
	owner := strings.TrimSpace(target.OwnerID)
	if owner == "" {
		return "", ErrMissingOwner
	}
	if strings.ContainsAny(owner, "/\\") || owner == "." || owner == ".." {
		return "", fmt.Errorf("%w: invalid owner id %q", storage.ErrUnauthorized, owner)
	}

	classification := sanitizeSegment(target.Classification)
	if classification == "" {
		classification = defaultClassification
	}

	objectPath := fmt.Sprintf("%s/%s/%d_%s", owner, classification, u.nextStamp(), sanitizeFileName(fileName))

	if !strings.HasPrefix(objectPath, owner+"/") {
		return "", fmt.Errorf("%w: path %q outside owner scope", storage.ErrUnauthorized, objectPath)
	}
	return objectPath, nil
}

// nextStamp returns a millisecond timestamp that is strictly increasing for
// this uploader, so files with equal names in one batch never collide.
func (u *Uploader) nextStamp() int64 {
	for {
		now := u.now().UnixMilli()
		last := u.last.Load()
		if now <= last {
			now = last + 1
		}
		if u.last.CompareAndSwap(last, now) {
			return now
		}
	}
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return sanitizeSegment(name)
}

func sanitizeSegment(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
