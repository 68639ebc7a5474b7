package submissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/princekumarofficial/submission-service/internal/services/submission"
	"github.com/princekumarofficial/submission-service/internal/types"
	mediatypes "github.com/princekumarofficial/submission-service/internal/types/media"
	"github.com/princekumarofficial/submission-service/internal/utils/response"
)

const (
	draftField   = "draft"
	mediaField   = "media"
	maxDraftSize = 1 << 20
)

// Limits bounds what a single request may carry. Zero values disable the
// corresponding check.
//
// MaxFileSize only decides how much of a media part is kept: an oversized
// file is read to the end and handed on with its real size and no content,
// so the media policy rejects that one file and the rest of the batch goes
// ahead. The same applies to media parts past MaxFiles. MaxRequestSize caps
// the raw body and answers 413.
type Limits struct {
	MaxFileSize    int64
	MaxFiles       int
	MaxRequestSize int64
}

// Submitter runs one submission.
type Submitter interface {
	Submit(ctx context.Context, draft types.Draft) (submission.Result, error)
}

var validate = validator.New()

// Create handles a content submission
// @Summary Submit a post, listing or repair bid request
// @Description Uploads the attached media, creates the record through the tiered backend chain and links the media to it. Send multipart/form-data with a JSON "draft" field and zero or more "media" files, or a plain JSON draft without media.
// @Tags submissions
// @Accept mpfd
// @Accept json
// @Produce json
// @Param draft formData string true "Draft JSON"
// @Param media formData file false "Media files"
// @Success 201 {object} types.SubmissionResponse "Record created"
// @Success 200 {object} types.SubmissionResponse "Replay of a completed submission"
// @Failure 400 {object} response.Response "Precondition failed"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 409 {object} response.Response "Same submission still running"
// @Failure 429 {object} response.Response "Rate limit exceeded"
// @Failure 502 {object} response.Response "Every creation tier failed"
// @Security BearerAuth
// @Router /submissions [post]
func Create(svc Submitter, limits Limits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if limits.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, limits.MaxRequestSize)
		}

		draft, cleanup, err := decodeDraft(r, limits)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.WriteJSON(w, http.StatusRequestEntityTooLarge, response.GeneralError(errors.New("request body too large")))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := validate.Struct(draft); err != nil {
			var ve validator.ValidationErrors
			if errors.As(err, &ve) {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		res, err := svc.Submit(r.Context(), draft)
		if err != nil {
			writeSubmitError(w, err)
			return
		}

		status := http.StatusCreated
		if res.Replayed {
			status = http.StatusOK
		}
		response.WriteJSON(w, status, toResponse(res))
	}
}

func decodeDraft(r *http.Request, limits Limits) (types.Draft, func(), error) {
	var draft types.Draft

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		err := json.NewDecoder(r.Body).Decode(&draft)
		if errors.Is(err, io.EOF) {
			return draft, nil, errors.New("request body cannot be empty")
		}
		if err != nil {
			return draft, nil, err
		}
		return draft, nil, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return draft, nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	var spooled []string
	cleanup := func() {
		for _, path := range spooled {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Warn("failed to remove spooled media", slog.String("error", err.Error()))
			}
		}
	}

	var raw []byte
	var files []mediatypes.MediaFile
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return draft, cleanup, fmt.Errorf("invalid multipart form: %w", err)
		}

		switch part.FormName() {
		case draftField:
			raw, err = io.ReadAll(io.LimitReader(part, maxDraftSize+1))
			if err == nil && len(raw) > maxDraftSize {
				err = errors.New("draft field too large")
			}
		case mediaField:
			keep := limits.MaxFiles <= 0 || len(files) < limits.MaxFiles
			var file mediatypes.MediaFile
			var path string
			file, path, err = spoolPart(part, limits.MaxFileSize, keep)
			if path != "" {
				spooled = append(spooled, path)
			}
			if err == nil {
				files = append(files, file)
			}
		}
		part.Close()
		if err != nil {
			return draft, cleanup, err
		}
	}

	if len(raw) == 0 {
		return draft, cleanup, errors.New("draft field is required")
	}
	if err := json.Unmarshal(raw, &draft); err != nil {
		return draft, cleanup, fmt.Errorf("invalid draft: %w", err)
	}
	draft.Files = files
	return draft, cleanup, nil
}

// spoolPart copies one media part to a temp file, keeping at most maxSize+1
// bytes. It returns the temp path whenever one was created, even on error.
func spoolPart(part *multipart.Part, maxSize int64, keep bool) (mediatypes.MediaFile, string, error) {
	file := mediatypes.MediaFile{
		FileName:    part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
	}

	if !keep {
		n, err := io.Copy(io.Discard, part)
		if err != nil {
			return file, "", fmt.Errorf("read %s: %w", file.FileName, err)
		}
		file.Size = n
		return file, "", nil
	}

	tmp, err := os.CreateTemp("", "submission-media-*")
	if err != nil {
		return file, "", fmt.Errorf("spool %s: %w", file.FileName, err)
	}
	path := tmp.Name()

	var src io.Reader = part
	if maxSize > 0 {
		src = io.LimitReader(part, maxSize+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return file, path, fmt.Errorf("read %s: %w", file.FileName, err)
	}

	if file.ContentType == "" || strings.HasPrefix(file.ContentType, "application/octet-stream") {
		detected, err := mimetype.DetectFile(path)
		if err != nil {
			return file, path, fmt.Errorf("detect type of %s: %w", file.FileName, err)
		}
		file.ContentType = detected.String()
	}
	if i := strings.IndexByte(file.ContentType, ';'); i >= 0 {
		file.ContentType = strings.TrimSpace(file.ContentType[:i])
	}

	if maxSize > 0 && n > maxSize {
		rest, err := io.Copy(io.Discard, part)
		if err != nil {
			return file, path, fmt.Errorf("read %s: %w", file.FileName, err)
		}
		file.Size = n + rest
		return file, path, nil
	}

	file.Size = n
	file.Open = func() (io.ReadCloser, error) { return os.Open(path) }
	return file, path, nil
}

func writeSubmitError(w http.ResponseWriter, err error) {
	var pre *submission.PreconditionError
	var agg *submission.AggregateError

	switch {
	case errors.Is(err, submission.ErrNoSession):
		response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(err))
	case errors.As(err, &pre):
		response.WriteJSON(w, http.StatusBadRequest, response.FieldError(pre.Field, pre.Err))
	case errors.Is(err, submission.ErrSubmissionInProgress):
		response.WriteJSON(w, http.StatusConflict, response.GeneralError(err))
	case errors.As(err, &agg):
		slog.Error("submission rejected", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusBadGateway, response.GeneralError(errors.New(agg.Message())))
	default:
		slog.Error("submission failed", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("submission failed")))
	}
}

func toResponse(res submission.Result) types.SubmissionResponse {
	out := types.SubmissionResponse{
		RecordID:      res.RecordID,
		Kind:          res.Kind,
		Tier:          res.Tier,
		Locators:      res.Locators,
		FailedUploads: res.FailedUploads,
		LinkWarnings:  len(res.Link.Warnings),
		Replayed:      res.Replayed,
	}
	if out.Locators == nil {
		out.Locators = []string{}
	}
	for _, rej := range res.RejectedFiles {
		out.RejectedFiles = append(out.RejectedFiles, types.RejectedFile{
			FileName: rej.FileName,
			Reason:   rej.Err.Error(),
		})
	}
	return out
}
