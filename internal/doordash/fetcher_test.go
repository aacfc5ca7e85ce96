package doordash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/doordash-export/internal/cache"
)

// stubSource serves canned pages keyed by offset and records every fetch.
type stubSource struct {
	pages   map[int][]byte
	fetched []int
}

func (s *stubSource) FetchOrdersPage(_ context.Context, _, offset int) ([]byte, error) {
	s.fetched = append(s.fetched, offset)
	payload, ok := s.pages[offset]
	if !ok {
		return nil, fmt.Errorf("no stub page at offset %d", offset)
	}
	return payload, nil
}

func pagePayload(t *testing.T, summaries ...*OrderSummary) []byte {
	t.Helper()
	if summaries == nil {
		summaries = []*OrderSummary{}
	}
	payload, err := json.Marshal(map[string]any{
		"data": map[string]any{ordersField: summaries},
	})
	require.NoError(t, err)
	return payload
}

func summaryWithID(id string) *OrderSummary {
	return &OrderSummary{
		OrderUUID:   id,
		SubmittedAt: "2023-05-01T12:00:00Z",
		Store:       Store{Name: "Taqueria"},
	}
}

func newTestFetcher(t *testing.T, source *stubSource) (*Fetcher, *int) {
	t.Helper()
	store, err := cache.NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	f := NewFetcher(source, store, nil)
	f.PageSize = 2
	sleeps := 0
	f.sleep = func(time.Duration) { sleeps++ }
	return f, &sleeps
}

func collect(t *testing.T, f *Fetcher) ([]*OrderSummary, error) {
	t.Helper()
	var out []*OrderSummary
	for summary, err := range f.Orders(context.Background()) {
		if err != nil {
			return out, err
		}
		out = append(out, summary)
	}
	return out, nil
}

func TestOrdersWalksPagesUntilEmptyBatch(t *testing.T) {
	source := &stubSource{pages: map[int][]byte{
		0: pagePayload(t, summaryWithID("a"), summaryWithID("b")),
		2: pagePayload(t, summaryWithID("c"), summaryWithID("d")),
		4: pagePayload(t),
	}}
	f, _ := newTestFetcher(t, source)

	summaries, err := collect(t, f)
	require.NoError(t, err)
	require.Len(t, summaries, 4)
	assert.Equal(t, "a", summaries[0].OrderID())
	assert.Equal(t, "d", summaries[3].OrderID())
	assert.Equal(t, []int{0, 2, 4}, source.fetched)
}

func TestOrdersShortPageDoesNotTerminate(t *testing.T) {
	// A page smaller than the batch size is not the termination signal;
	// only an empty batch is.
	source := &stubSource{pages: map[int][]byte{
		0: pagePayload(t, summaryWithID("a")),
		2: pagePayload(t, summaryWithID("b")),
		4: pagePayload(t),
	}}
	f, _ := newTestFetcher(t, source)

	summaries, err := collect(t, f)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}

func TestOrdersCacheIdempotence(t *testing.T) {
	source := &stubSource{pages: map[int][]byte{
		0: pagePayload(t, summaryWithID("a"), summaryWithID("b")),
		2: pagePayload(t),
	}}
	f, _ := newTestFetcher(t, source)

	first, err := collect(t, f)
	require.NoError(t, err)
	networkFetches := len(source.fetched)

	second, err := collect(t, f)
	require.NoError(t, err)

	// No new network calls, same summaries.
	assert.Equal(t, networkFetches, len(source.fetched))
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].OrderID(), second[i].OrderID())
	}
}

func TestOrdersPausesOnlyAfterNetworkFetches(t *testing.T) {
	source := &stubSource{pages: map[int][]byte{
		0: pagePayload(t, summaryWithID("a"), summaryWithID("b")),
		2: pagePayload(t, summaryWithID("c"), summaryWithID("d")),
		4: pagePayload(t),
	}}
	f, sleeps := newTestFetcher(t, source)

	_, err := collect(t, f)
	require.NoError(t, err)
	// One pause per non-empty network page; the empty page ends the walk
	// before any pause.
	assert.Equal(t, 2, *sleeps)

	*sleeps = 0
	_, err = collect(t, f)
	require.NoError(t, err)
	// Everything came from the cache the second time around.
	assert.Equal(t, 0, *sleeps)
}

func TestOrdersStopsOnFatalError(t *testing.T) {
	source := &stubSource{pages: map[int][]byte{
		0: pagePayload(t, summaryWithID("a"), summaryWithID("b")),
		2: []byte(`{"errors":[{"message":"something exploded"}]}`),
	}}
	f, _ := newTestFetcher(t, source)

	summaries, err := collect(t, f)
	assert.Len(t, summaries, 2)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "something exploded", apiErr.Message)
}

func TestOrdersPropagatesTransportError(t *testing.T) {
	// No stub page at offset 0 simulates a transport failure.
	source := &stubSource{pages: map[int][]byte{}}
	f, _ := newTestFetcher(t, source)

	summaries, err := collect(t, f)
	assert.Empty(t, summaries)
	assert.Error(t, err)
}

func TestDecodePageClassification(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		check   func(t *testing.T, err error)
	}{
		{
			name:    "drift marker in error message",
			payload: `{"errors":[{"message":"Cannot query field getConsumerOrdersWithDetails"}]}`,
			check: func(t *testing.T, err error) {
				var drift *SchemaDriftError
				require.ErrorAs(t, err, &drift)
			},
		},
		{
			name:    "legacy drift marker",
			payload: `{"errors":[{"message":"ordersHistory is gone"}]}`,
			check: func(t *testing.T, err error) {
				var drift *SchemaDriftError
				require.ErrorAs(t, err, &drift)
			},
		},
		{
			name:    "unrelated API error",
			payload: `{"errors":[{"message":"rate limited"}]}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "rate limited", apiErr.Message)
			},
		},
		{
			name:    "empty errors array",
			payload: `{"errors":[]}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "Unknown error", apiErr.Message)
			},
		},
		{
			name:    "no data key",
			payload: `{"message":"please log in"}`,
			check: func(t *testing.T, err error) {
				var malformed *MalformedResponseError
				require.ErrorAs(t, err, &malformed)
			},
		},
		{
			name:    "not json at all",
			payload: `<html>nope</html>`,
			check: func(t *testing.T, err error) {
				var malformed *MalformedResponseError
				require.ErrorAs(t, err, &malformed)
			},
		},
		{
			name:    "data present but field missing",
			payload: `{"data":{}}`,
			check: func(t *testing.T, err error) {
				var drift *SchemaDriftError
				require.ErrorAs(t, err, &drift)
			},
		},
		{
			name:    "data present but field null",
			payload: `{"data":{"getConsumerOrdersWithDetails":null}}`,
			check: func(t *testing.T, err error) {
				var drift *SchemaDriftError
				require.ErrorAs(t, err, &drift)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodePage([]byte(tt.payload))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestDecodePageValidEmpty(t *testing.T) {
	summaries, err := decodePage([]byte(`{"data":{"getConsumerOrdersWithDetails":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestSchemaDriftErrorMentionsTheQuery(t *testing.T) {
	err := &SchemaDriftError{Detail: "field gone"}
	assert.Contains(t, err.Error(), "ordersQuery")
	assert.Contains(t, err.Error(), "field gone")
}

func TestErrorClass(t *testing.T) {
	assert.Equal(t, "schema_drift", errorClass(&SchemaDriftError{}))
	assert.Equal(t, "api", errorClass(&APIError{}))
	assert.Equal(t, "malformed", errorClass(&MalformedResponseError{}))
	assert.Equal(t, "other", errorClass(errors.New("boom")))
}
