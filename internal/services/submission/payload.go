package submission

import (
	"strings"

	"github.com/princekumarofficial/submission-service/internal/storage"
	"github.com/princekumarofficial/submission-service/internal/types"
	mediatypes "github.com/princekumarofficial/submission-service/internal/types/media"
)

const (
	maxTags             = 5
	defaultPollDuration = 24
	otherOption         = "Other"
)

// Payload is the normalized record every tier receives. Title, Body, Images
// and Tags are identical across tiers.
type Payload struct {
	Spec      KindSpec
	UserID    string
	Title     string
	Body      string
	Images    []string
	Media     []mediatypes.MediaItem
	Tags      []string
	Location  string
	Category  string
	CarBrand  string
	CarModel  string
	Urgency   string
	Anonymous bool
	Poll      *types.Poll
	Price     *float64
	Metadata  map[string]any
}

// BuildPayload normalizes a draft and the media that made it to storage.
func BuildPayload(spec KindSpec, userID string, draft types.Draft, batch mediatypes.BatchResult) Payload {
	var pollQuestion string
	var poll *types.Poll
	if draft.Poll != nil {
		p := *draft.Poll
		p.Question = strings.TrimSpace(p.Question)
		if p.DurationHours <= 0 {
			p.DurationHours = defaultPollDuration
		}
		opts := make([]string, 0, len(p.Options))
		for _, o := range p.Options {
			if o = strings.TrimSpace(o); o != "" {
				opts = append(opts, o)
			}
		}
		p.Options = opts
		pollQuestion = p.Question
		poll = &p
	}

	images := batch.Locators
	if images == nil {
		images = []string{}
	}
	media := batch.Media
	if media == nil {
		media = []mediatypes.MediaItem{}
	}
	metadata := draft.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return Payload{
		Spec:      spec,
		UserID:    userID,
		Title:     ResolveTitle(draft.Title, draft.Body, pollQuestion, spec.Placeholder),
		Body:      ResolveBody(draft.Body, pollQuestion),
		Images:    images,
		Media:     media,
		Tags:      NormalizeTags(draft.Tags),
		Location:  strings.TrimSpace(draft.Location),
		Category:  strings.TrimSpace(draft.Category),
		CarBrand:  pickCustom(draft.CarBrand, draft.CustomBrand),
		CarModel:  pickCustom(draft.CarModel, draft.CustomModel),
		Urgency:   MapUrgency(draft.Urgency),
		Anonymous: draft.Anonymous,
		Poll:      poll,
		Price:     draft.Price,
		Metadata:  metadata,
	}
}

// MapUrgency folds free-form urgency input into urgent, high, medium, low or
// normal.
func MapUrgency(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "urgent":
		return "urgent"
	case "important", "high":
		return "high"
	case "medium":
		return "medium"
	case "normal", "low":
		return "low"
	default:
		return "normal"
	}
}

// NormalizeTags lowercases, strips a leading '#', drops blanks and
// duplicates, and keeps at most five.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

func pickCustom(value, custom string) string {
	value = strings.TrimSpace(value)
	if value == otherOption {
		if c := strings.TrimSpace(custom); c != "" {
			return c
		}
	}
	return value
}

// PreferredBody is the JSON body for the high-level create endpoint.
func (p Payload) PreferredBody() map[string]any {
	body := map[string]any{
		"title":        p.Title,
		"content":      p.Body,
		"body":         p.Body,
		"images":       p.Images,
		"media":        p.Media,
		"tags":         p.Tags,
		"location":     p.Location,
		"category":     p.Category,
		"car_brand":    p.CarBrand,
		"car_model":    p.CarModel,
		"urgency":      p.Urgency,
		"is_anonymous": p.Anonymous,
		"metadata":     p.Metadata,
	}
	if p.Poll != nil {
		body["poll"] = p.Poll
	}
	if p.Price != nil {
		body[p.priceField()] = *p.Price
	}
	return body
}

// DirectRow is the fully denormalized row for the direct-write tier.
func (p Payload) DirectRow() storage.Row {
	row := storage.Row{
		"user_id":   p.UserID,
		"title":     p.Title,
		"content":   p.Body,
		"body":      p.Body,
		"images":    p.Images,
		"media":     p.Media,
		"tags":      p.Tags,
		"location":  nullable(p.Location),
		"category":  nullable(p.Category),
		"car_brand": nullable(p.CarBrand),
		"car_model": nullable(p.CarModel),
		"urgency":   p.Urgency,
		"status":    p.Spec.InitialStatus,
		"metadata":  p.Metadata,
	}

	switch p.Spec.Kind {
	case types.KindPost:
		row["is_anonymous"] = p.Anonymous
		if p.Poll != nil {
			row["poll"] = p.Poll
		}
	case types.KindListing:
		row["price"] = p.Price
	case types.KindBidRequest:
		row["description"] = p.Body
		row["budget"] = p.Price
	}
	return row
}

// ProcedureArgs are the named arguments for the kind's minimal procedure.
func (p Payload) ProcedureArgs() storage.Row {
	switch p.Spec.Kind {
	case types.KindListing:
		return storage.Row{
			"p_user_id":  p.UserID,
			"p_title":    p.Title,
			"p_body":     p.Body,
			"p_media":    p.Images,
			"p_tags":     p.Tags,
			"p_category": nullable(p.Category),
			"p_price":    p.Price,
			"p_location": nullable(p.Location),
		}
	case types.KindBidRequest:
		return storage.Row{
			"p_user_id":     p.UserID,
			"p_title":       p.Title,
			"p_description": p.Body,
			"p_category":    nullable(p.Category),
			"p_budget":      p.Price,
			"p_images":      p.Images,
		}
	default:
		return storage.Row{
			"p_user_id":   p.UserID,
			"p_title":     p.Title,
			"p_body":      p.Body,
			"p_content":   p.Body,
			"p_media":     p.Images,
			"p_tags":      p.Tags,
			"p_location":  nullable(p.Location),
			"p_car_brand": nullable(p.CarBrand),
			"p_car_model": nullable(p.CarModel),
			"p_urgency":   p.Urgency,
		}
	}
}

func (p Payload) priceField() string {
	if p.Spec.Kind == types.KindBidRequest {
		return "budget"
	}
	return "price"
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
