package thread

import (
	"context"
	"time"

	"github.com/quilldesk/quill/internal/message"
)

// Page is one fetch result from the paginated message store.
type Page struct {
	Rows []message.RawMessage
	// TotalCount is the full-thread row count. The store populates it only
	// when the fetch carried no cursor (the first page).
	TotalCount *int
}

// Fetcher is the paginated store contract the assembler consumes. Rows come
// back descending by created_at, capped at limit; when olderThan is set,
// rows with created_at >= olderThan are excluded.
type Fetcher interface {
	FetchPage(ctx context.Context, conversationID string, olderThan *time.Time, limit int) (Page, error)
}

// Confidence flags whether the estimated total for a thread should be
// trusted by the consumer.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Options tunes the assembler. Zero values fall back to the defaults below.
type Options struct {
	// InitialPageSize is the small first page for fast initial paint.
	InitialPageSize int
	// LoadMorePageSize is the page size for subsequent fetches.
	LoadMorePageSize int

	// ConfidenceMinSample is the minimum first-page raw row count before
	// the kept/fetched ratio is considered meaningful.
	ConfidenceMinSample int
	// ConfidenceMinRatio and ConfidenceMaxRatio bound the plausible
	// kept/fetched band. Heuristic tuning knobs, not correctness
	// properties.
	ConfidenceMinRatio float64
	ConfidenceMaxRatio float64

	// ExcludeInternal drops internal-only notes from the assembled view,
	// as the customer-facing widget requires.
	ExcludeInternal bool
}

const (
	DefaultInitialPageSize     = 3
	DefaultLoadMorePageSize    = 20
	DefaultConfidenceMinSample = 20
	DefaultConfidenceMinRatio  = 0.3
	DefaultConfidenceMaxRatio  = 1.0
)

func (o Options) withDefaults() Options {
	if o.InitialPageSize <= 0 {
		o.InitialPageSize = DefaultInitialPageSize
	}
	if o.LoadMorePageSize <= 0 {
		o.LoadMorePageSize = DefaultLoadMorePageSize
	}
	if o.ConfidenceMinSample <= 0 {
		o.ConfidenceMinSample = DefaultConfidenceMinSample
	}
	if o.ConfidenceMinRatio <= 0 {
		o.ConfidenceMinRatio = DefaultConfidenceMinRatio
	}
	if o.ConfidenceMaxRatio <= 0 {
		o.ConfidenceMaxRatio = DefaultConfidenceMaxRatio
	}
	return o
}

// View is the assembled, deduplicated, chronologically sorted state of one
// conversation thread, plus fetch-completeness metadata for the consumer.
type View struct {
	ConversationID string                      `json:"conversation_id"`
	Messages       []message.NormalizedMessage `json:"messages"`

	TotalCount            int `json:"total_count"`
	NormalizedCountLoaded int `json:"normalized_count_loaded"`
	// TotalNormalizedEstimated projects how many normalized messages the
	// full thread holds. An estimate, never authoritative when Confidence
	// is low.
	TotalNormalizedEstimated int        `json:"total_normalized_estimated"`
	Confidence               Confidence `json:"confidence"`

	HasNextPage        bool  `json:"has_next_page"`
	IsFetchingNextPage bool  `json:"is_fetching_next_page"`
	IsLoading          bool  `json:"is_loading"`
	Err                error `json:"-"`
}
