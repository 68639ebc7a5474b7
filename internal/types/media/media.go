package media

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

// MediaFile is a handle to user-selected binary content. Open may be called
// once per upload attempt.
type MediaFile struct {
	FileName    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// NewMediaFile wraps an in-memory payload.
func NewMediaFile(fileName, contentType string, data []byte) MediaFile {
	return MediaFile{
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Reader opens the file content.
func (f MediaFile) Reader() (io.ReadCloser, error) {
	if f.Open == nil {
		return nil, errors.New("media file has no content")
	}
	return f.Open()
}

// IsVideo reports whether the declared MIME type is a video type.
func (f MediaFile) IsVideo() bool {
	return strings.HasPrefix(f.ContentType, "video/")
}

// UploadTarget describes where a file lands.
type UploadTarget struct {
	Bucket         string
	OwnerID        string
	Classification string
}

// UploadOutcome is the result of one upload attempt: Err is nil on success
// and Locator is set.
type UploadOutcome struct {
	FileName    string
	ContentType string
	Locator     string
	Reference   string
	Err         error
}

func (o UploadOutcome) Succeeded() bool {
	return o.Err == nil
}

// MediaItem is one entry of the denormalized media list stored on a record.
type MediaItem struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// BatchResult collects every outcome of a batch upload. Locators and Media
// are parallel and ordered by input position; References holds only the
// successful extractions and may be shorter.
type BatchResult struct {
	Outcomes    []UploadOutcome
	Locators    []string
	References  []string
	Media       []MediaItem
	FailedCount int
	FailedFiles []string
}

// MediaLink associates a storage reference with a created record. One
// media_links row per value; (Kind, RecordID, StoragePath) is unique.
type MediaLink struct {
	Kind        string `json:"content_kind"`
	RecordID    string `json:"record_id"`
	StoragePath string `json:"storage_path"`
	Position    int    `json:"position"`
}
