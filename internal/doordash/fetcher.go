package doordash

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"time"

	"github.com/eshaffer321/doordash-export/internal/cache"
)

// defaultPageSize matches the web client's order history batch size.
const defaultPageSize = 20

// defaultPause is the wait between network page fetches. Cache hits skip it.
const defaultPause = time.Second

// pageSource fetches one raw order history page. *Client implements it;
// tests substitute a stub.
type pageSource interface {
	FetchOrdersPage(ctx context.Context, limit, offset int) ([]byte, error)
}

// Fetcher walks the paginated order history and yields order summaries.
// Fetches are strictly sequential: the empty-page termination condition and
// the next offset both depend on the previous page having fully arrived.
type Fetcher struct {
	source pageSource
	store  *cache.Store
	logger *slog.Logger
	sleep  func(time.Duration)

	// PageSize is the order history batch size. The termination condition
	// relies on the API returning batches in increasing-offset order with
	// no gaps, so this must stay constant for the life of one sequence.
	PageSize int

	// Pause is the wait inserted after each network fetch.
	Pause time.Duration
}

// NewFetcher creates a fetcher over source, memoizing pages in store.
func NewFetcher(source pageSource, store *cache.Store, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		source:   source,
		store:    store,
		logger:   logger.With(slog.String("system", "fetcher")),
		sleep:    time.Sleep,
		PageSize: defaultPageSize,
		Pause:    defaultPause,
	}
}

// Orders returns a lazy, finite sequence of order summaries, walking pages
// from offset 0 until the API returns an empty batch. The sequence is not
// restartable; a second pass relies on the cache to avoid refetching. A
// fatal error (schema drift, API error, malformed response, transport
// failure) is yielded once and ends the sequence.
func (f *Fetcher) Orders(ctx context.Context) iter.Seq2[*OrderSummary, error] {
	return func(yield func(*OrderSummary, error) bool) {
		limit := f.PageSize
		offset := 0
		f.logger.Info("fetching all order summaries", slog.Int("batch_size", limit))
		for {
			payload, cached, err := f.store.GetOrFetch(cache.PageKey{Limit: limit, Offset: offset}, func() ([]byte, error) {
				return f.source.FetchOrdersPage(ctx, limit, offset)
			})
			if err != nil {
				pagesFetched.WithLabelValues("error").Inc()
				yield(nil, err)
				return
			}
			if cached {
				pagesFetched.WithLabelValues("cache").Inc()
			} else {
				pagesFetched.WithLabelValues("network").Inc()
			}
			f.logger.Debug("fetched page", slog.Int("offset", offset), slog.Bool("cached", cached))

			summaries, err := decodePage(payload)
			if err != nil {
				apiErrors.WithLabelValues(errorClass(err)).Inc()
				yield(nil, err)
				return
			}
			if len(summaries) == 0 {
				f.logger.Info("got an empty batch, done fetching order summaries")
				return
			}
			for _, summary := range summaries {
				if !yield(summary, nil) {
					return
				}
			}
			offset += limit
			if !cached {
				f.sleep(f.Pause)
			}
		}
	}
}

type graphQLError struct {
	Message string `json:"message"`
}

// decodePage validates one raw response in strict order: explicit GraphQL
// errors first (classified as drift or API error), then the presence of the
// top-level data key, then the presence of the expected field under it.
func decodePage(payload []byte) ([]*OrderSummary, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &MalformedResponseError{}
	}

	if errsRaw, ok := raw["errors"]; ok {
		var gqlErrs []graphQLError
		_ = json.Unmarshal(errsRaw, &gqlErrs)
		if len(gqlErrs) == 0 {
			return nil, &APIError{Message: "Unknown error"}
		}
		return nil, classifyGraphQLError(gqlErrs[0].Message)
	}

	dataRaw, ok := raw["data"]
	if !ok {
		return nil, &MalformedResponseError{Keys: keysOf(raw)}
	}

	var data map[string]json.RawMessage
	_ = json.Unmarshal(dataRaw, &data)
	fieldRaw, ok := data[ordersField]
	if !ok || string(fieldRaw) == "null" {
		return nil, &SchemaDriftError{Detail: ordersField + " missing from response"}
	}

	var summaries []*OrderSummary
	if err := json.Unmarshal(fieldRaw, &summaries); err != nil {
		return nil, &SchemaDriftError{Detail: ordersField + " no longer decodes: " + err.Error()}
	}
	return summaries, nil
}

func keysOf(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func errorClass(err error) string {
	switch err.(type) {
	case *SchemaDriftError:
		return "schema_drift"
	case *APIError:
		return "api"
	case *MalformedResponseError:
		return "malformed"
	default:
		return "other"
	}
}
