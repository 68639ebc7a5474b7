package media

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mediatypes "github.com/princekumarofficial/submission-service/internal/types/media"
)

type noMarkerExtractor struct{}

func (noMarkerExtractor) ExtractPath(string, string) (string, bool) { return "", false }

func TestUploadAllSettlesEveryFile(t *testing.T) {
	store := newFakeStore()
	store.failFor["broken.jpg"] = errNetwork
	batch := NewBatchUploader(NewUploader(store, nil), nil, 0, nil)

	files := []mediatypes.MediaFile{
		mediatypes.NewMediaFile("a.jpg", "image/jpeg", []byte("a")),
		mediatypes.NewMediaFile("broken.jpg", "image/jpeg", []byte("b")),
		mediatypes.NewMediaFile("clip.mp4", "video/mp4", []byte("c")),
	}
	target := mediatypes.UploadTarget{Bucket: "community-media", OwnerID: "9", Classification: "post"}

	res := batch.UploadAll(context.Background(), files, target)

	require.Len(t, res.Outcomes, len(files))
	for i, o := range res.Outcomes {
		assert.Equal(t, files[i].FileName, o.FileName)
	}
	assert.Equal(t, 1, res.FailedCount)
	assert.Equal(t, []string{"broken.jpg"}, res.FailedFiles)
	require.Len(t, res.Locators, 2)
	require.Len(t, res.References, 2)
	assert.Contains(t, res.References[0], "9/post/")
	assert.Equal(t, "image", res.Media[0].Type)
	assert.Equal(t, "video", res.Media[1].Type)
}

func TestUploadAllNullExtractionIsNotAFailure(t *testing.T) {
	batch := NewBatchUploader(NewUploader(newFakeStore(), nil), noMarkerExtractor{}, 0, nil)

	res := batch.UploadAll(context.Background(),
		[]mediatypes.MediaFile{mediatypes.NewMediaFile("a.jpg", "image/jpeg", []byte("a"))},
		mediatypes.UploadTarget{Bucket: "b", OwnerID: "1"})

	assert.Zero(t, res.FailedCount)
	assert.Len(t, res.Locators, 1)
	assert.Empty(t, res.References)
}

func TestUploadAllEmpty(t *testing.T) {
	batch := NewBatchUploader(NewUploader(newFakeStore(), nil), nil, 0, nil)
	res := batch.UploadAll(context.Background(), nil, mediatypes.UploadTarget{Bucket: "b", OwnerID: "1"})
	assert.Empty(t, res.Outcomes)
	assert.Zero(t, res.FailedCount)
}

func TestUploadAllWithLimit(t *testing.T) {
	store := newFakeStore()
	batch := NewBatchUploader(NewUploader(store, nil), nil, 2, nil)

	files := make([]mediatypes.MediaFile, 6)
	for i := range files {
		files[i] = mediatypes.NewMediaFile(fmt.Sprintf("f%d.jpg", i), "image/jpeg", []byte("x"))
	}
	res := batch.UploadAll(context.Background(), files, mediatypes.UploadTarget{Bucket: "b", OwnerID: "1"})

	assert.Len(t, res.Outcomes, 6)
	assert.Len(t, res.References, 6)
	assert.Equal(t, 6, store.puts)
}
