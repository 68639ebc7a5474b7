package submission

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/submission-service/internal/backend"
	"github.com/princekumarofficial/submission-service/internal/types"
	mediatypes "github.com/princekumarofficial/submission-service/internal/types/media"
)

func postPayload(t *testing.T, draft types.Draft) Payload {
	t.Helper()
	spec, ok := LookupKind(types.KindPost)
	require.True(t, ok)
	draft.Kind = types.KindPost
	return BuildPayload(spec, "7", draft, mediatypes.BatchResult{Locators: []string{"https://x/a.jpg"}})
}

func TestPreferredTierResponseShapes(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"top level id", `{"id":"p1"}`, "p1"},
		{"kind envelope", `{"post":{"id":"p2","title":"x"}}`, "p2"},
		{"data envelope", `{"data":{"id":"p3"}}`, "p3"},
		{"numeric id", `{"id":12345678901}`, "12345678901"},
		{"no id", `{"ok":true}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := newFakeRecords()
			procs := &fakeProcedures{id: "proc"}
			e := NewExecutor(&fakeInvoker{response: tt.response}, records, procs, nil, nil)

			got, err := e.Create(context.Background(), "tok", postPayload(t, types.Draft{Title: "t"}))
			require.NoError(t, err)
			assert.Equal(t, TierPreferred, got.Tier)
			assert.Equal(t, tt.want, got.RecordID)
			assert.Empty(t, records.inserted["posts"], "no fallback after a preferred success")
			assert.Empty(t, procs.calls)
		})
	}
}

func TestDirectTierGetsSamePayload(t *testing.T) {
	invoker := &fakeInvoker{err: &backend.HTTPError{StatusCode: 500}}
	records := newFakeRecords()
	procs := &fakeProcedures{id: "proc"}
	e := NewExecutor(invoker, records, procs, nil, nil)

	p := postPayload(t, types.Draft{Body: "Looking for coilovers"})
	got, err := e.Create(context.Background(), "tok", p)
	require.NoError(t, err)

	assert.Equal(t, Creation{RecordID: "rec-1", Tier: TierDirect}, got)
	assert.Empty(t, procs.calls, "procedure tier must not start after a direct success")

	require.Len(t, invoker.calls, 1)
	sent := invoker.calls[0].body
	assert.Equal(t, "tok", invoker.calls[0].token)
	assert.Equal(t, "/posts", invoker.calls[0].endpoint)

	require.Len(t, records.inserted["posts"], 1)
	row := records.inserted["posts"][0]
	assert.Equal(t, sent["title"], row["title"])
	assert.Equal(t, sent["body"], row["body"])
	assert.Equal(t, sent["images"], row["images"])
	assert.Equal(t, "approved", row["status"])
}

func TestProcedureTierIsLastResort(t *testing.T) {
	records := newFakeRecords()
	records.insertErr["posts"] = errDB
	procs := &fakeProcedures{id: "proc-1"}
	e := NewExecutor(&fakeInvoker{err: errors.New("network error")}, records, procs, nil, nil)

	got, err := e.Create(context.Background(), "tok", postPayload(t, types.Draft{Title: "t"}))
	require.NoError(t, err)
	assert.Equal(t, Creation{RecordID: "proc-1", Tier: TierProcedure}, got)
	require.Len(t, procs.calls, 1)
	assert.Equal(t, "fn_create_post", procs.calls[0].name)
	assert.Equal(t, "t", procs.calls[0].args["p_title"])
}

func TestAllTiersFailPrefersPreferredMessage(t *testing.T) {
	records := newFakeRecords()
	records.insertErr["posts"] = errDB
	e := NewExecutor(
		&fakeInvoker{err: &backend.HTTPError{StatusCode: 400, Message: "Title contains banned words"}},
		records,
		&fakeProcedures{err: errors.New("function fn_create_post does not exist")},
		nil, nil)

	_, err := e.Create(context.Background(), "tok", postPayload(t, types.Draft{Title: "t"}))

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Failures, 3)
	assert.Equal(t, []string{TierPreferred, TierDirect, TierProcedure},
		[]string{agg.Failures[0].Tier, agg.Failures[1].Tier, agg.Failures[2].Tier})
	assert.Equal(t, "Title contains banned words", agg.Message())
	assert.Contains(t, err.Error(), "Title contains banned words")
	assert.Contains(t, err.Error(), "not-null constraint")
	assert.ErrorIs(t, err, errDB)
}

func TestGenericPreferredMessageFallsThrough(t *testing.T) {
	records := newFakeRecords()
	records.insertErr["posts"] = errDB
	e := NewExecutor(
		&fakeInvoker{err: &backend.HTTPError{StatusCode: 500, Message: "Internal Server Error"}},
		records,
		&fakeProcedures{err: errors.New("boom")},
		nil, nil)

	_, err := e.Create(context.Background(), "tok", postPayload(t, types.Draft{Title: "t"}))

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Equal(t, errDB.Error(), agg.Message())
}

func TestUnconfiguredTiersAreSkipped(t *testing.T) {
	e := NewExecutor(nil, nil, &fakeProcedures{id: "p"}, nil, nil)

	got, err := e.Create(context.Background(), "", postPayload(t, types.Draft{}))
	require.NoError(t, err)
	assert.Equal(t, TierProcedure, got.Tier)
}

func TestTitleIsNeverEmpty(t *testing.T) {
	invoker := &fakeInvoker{err: errors.New("down")}
	records := newFakeRecords()
	procs := &fakeProcedures{err: errors.New("down")}
	records.insertErr["posts"] = errors.New("down")
	e := NewExecutor(invoker, records, procs, nil, nil)

	p := postPayload(t, types.Draft{})
	p.Title = "   "
	_, err := e.Create(context.Background(), "", p)
	require.Error(t, err)

	assert.NotEmpty(t, invoker.calls[0].body["title"])
	assert.NotEqual(t, "   ", invoker.calls[0].body["title"])
	assert.NotEmpty(t, procs.calls[0].args["p_title"])
}
