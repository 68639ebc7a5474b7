package types

import (
	"github.com/princekumarofficial/submission-service/internal/types/media"
)

type ContentKind string

const (
	KindPost       ContentKind = "post"
	KindListing    ContentKind = "listing"
	KindBidRequest ContentKind = "bid_request"
)

// Session identifies the user a submission is made on behalf of.
type Session struct {
	UserID string
	Token  string
}

type Poll struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"min=2,max=6,dive,required"`
	DurationHours int      `json:"duration_hours" validate:"omitempty,min=1,max=720"`
	AllowMultiple bool     `json:"allow_multiple"`
}

// Draft is everything the user composed for one submission: the content
// fields plus the media they selected.
type Draft struct {
	Kind           ContentKind    `json:"kind" validate:"required,oneof=post listing bid_request"`
	Title          string         `json:"title" validate:"max=200"`
	Body           string         `json:"body" validate:"max=20000"`
	Tags           []string       `json:"tags" validate:"max=5,dive,max=40"`
	Location       string         `json:"location" validate:"max=200"`
	Category       string         `json:"category" validate:"max=100"`
	CarBrand       string         `json:"car_brand"`
	CarModel       string         `json:"car_model"`
	CustomBrand    string         `json:"custom_brand"`
	CustomModel    string         `json:"custom_model"`
	Urgency        string         `json:"urgency"`
	Anonymous      bool           `json:"anonymous"`
	Poll           *Poll          `json:"poll,omitempty" validate:"omitempty"`
	Price          *float64       `json:"price,omitempty" validate:"omitempty,min=0"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Classification string         `json:"classification" validate:"omitempty,alphanum,max=32"`
	IdempotencyKey string         `json:"idempotency_key" validate:"omitempty,max=128"`

	Files []media.MediaFile `json:"-"`
}

// RejectedFile names a file refused before upload and why.
type RejectedFile struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

// SubmissionResponse is returned by POST /submissions.
type SubmissionResponse struct {
	RecordID      string         `json:"record_id,omitempty"`
	Kind          ContentKind    `json:"kind"`
	Tier          string         `json:"tier,omitempty"`
	Locators      []string       `json:"locators"`
	RejectedFiles []RejectedFile `json:"rejected_files,omitempty"`
	FailedUploads []string       `json:"failed_uploads,omitempty"`
	LinkWarnings  int            `json:"link_warnings,omitempty"`
	Replayed      bool           `json:"replayed,omitempty"`
}
