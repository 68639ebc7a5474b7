package submission

import "github.com/princekumarofficial/submission-service/internal/types"

// KindSpec binds a content kind to the backend surfaces each creation tier
// writes through.
type KindSpec struct {
	Kind           types.ContentKind
	Table          string
	Procedure      string
	Endpoint       string
	ResponseKey    string
	InitialStatus  string
	Placeholder    string
	Classification string
}

var kindSpecs = []KindSpec{
	{
		Kind:           types.KindPost,
		Table:          "posts",
		Procedure:      "fn_create_post",
		Endpoint:       "/posts",
		ResponseKey:    "post",
		InitialStatus:  "approved",
		Placeholder:    "Untitled Post",
		Classification: "post",
	},
	{
		Kind:           types.KindListing,
		Table:          "marketplace_listings",
		Procedure:      "fn_create_listing",
		Endpoint:       "/listings",
		ResponseKey:    "listing",
		InitialStatus:  "pending_review",
		Placeholder:    "Untitled Listing",
		Classification: "listing",
	},
	{
		Kind:           types.KindBidRequest,
		Table:          "bid_requests",
		Procedure:      "fn_create_bid_request",
		Endpoint:       "/bid-requests",
		ResponseKey:    "bid_request",
		InitialStatus:  "open",
		Placeholder:    "Untitled Request",
		Classification: "bid",
	},
}

func LookupKind(kind types.ContentKind) (KindSpec, bool) {
	for _, s := range kindSpecs {
		if s.Kind == kind {
			return s, true
		}
	}
	return KindSpec{}, false
}

// Kinds lists every supported kind.
func Kinds() []KindSpec {
	out := make([]KindSpec, len(kindSpecs))
	copy(out, kindSpecs)
	return out
}
