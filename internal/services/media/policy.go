package media

import (
	"errors"
	"fmt"
	"slices"

	"github.com/princekumarofficial/submission-service/internal/config"
	mediatypes "github.com/princekumarofficial/submission-service/internal/types/media"
)

var (
	ErrFileTooLarge          = errors.New("file exceeds the size limit")
	ErrContentTypeNotAllowed = errors.New("content type is not allowed")
	ErrEmptyFile             = errors.New("file is empty")
	ErrTooManyFiles          = errors.New("too many files selected")
)

// Policy is the client-side gate every file passes before any network call.
type Policy struct {
	MaxFileSize      int64
	MaxFiles         int
	AllowedMimeTypes []string
}

func NewPolicy(cfg config.Media) Policy {
	return Policy{
		MaxFileSize:      cfg.MaxFileSize,
		MaxFiles:         cfg.MaxFiles,
		AllowedMimeTypes: cfg.AllowedMimeTypes,
	}
}

// Rejection reports one file refused by the policy.
type Rejection struct {
	FileName string
	Err      error
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.FileName, r.Err)
}

func (r Rejection) Unwrap() error {
	return r.Err
}

// ValidateContentType checks if the content type is allowed
func (p Policy) ValidateContentType(contentType string) bool {
	return slices.Contains(p.AllowedMimeTypes, contentType)
}

// Check validates a single file against size and type limits.
func (p Policy) Check(file mediatypes.MediaFile) error {
	if !p.ValidateContentType(file.ContentType) {
		return fmt.Errorf("%w: %s", ErrContentTypeNotAllowed, file.ContentType)
	}
	if file.Size <= 0 {
		return ErrEmptyFile
	}
	if p.MaxFileSize > 0 && file.Size > p.MaxFileSize {
		return fmt.Errorf("%w: %d bytes, maximum is %d", ErrFileTooLarge, file.Size, p.MaxFileSize)
	}
	return nil
}

// Screen splits files into those allowed to upload and those rejected. A
// batch larger than MaxFiles is refused as a whole.
func (p Policy) Screen(files []mediatypes.MediaFile) ([]mediatypes.MediaFile, []Rejection, error) {
	if p.MaxFiles > 0 && len(files) > p.MaxFiles {
		return nil, nil, fmt.Errorf("%w: %d selected, maximum is %d", ErrTooManyFiles, len(files), p.MaxFiles)
	}

	accepted := make([]mediatypes.MediaFile, 0, len(files))
	var rejected []Rejection
	for _, f := range files {
		if err := p.Check(f); err != nil {
			rejected = append(rejected, Rejection{FileName: f.FileName, Err: err})
			continue
		}
		accepted = append(accepted, f)
	}

	return accepted, rejected, nil
}
