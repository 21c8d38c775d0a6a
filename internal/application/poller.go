package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/ports"
)

// DefaultFeedWindow is how long a record stays in the completed/failed
// buckets after reaching a terminal state. Clients poll every few seconds
// and diff against the ids they are watching, so the window only needs to
// outlast a handful of missed polls.
const DefaultFeedWindow = 60 * time.Second

// FeedItem is one record in the status feed.
type FeedItem struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	FailureReason string    `json:"failureReason,omitempty"`
}

// StatusFeed is the poller's answer: everything still generating, plus what
// reached a terminal state inside the window. Slices are non-nil so the
// feed serializes as empty arrays.
type StatusFeed struct {
	Generating []FeedItem `json:"generating"`
	Completed  []FeedItem `json:"completed"`
	Failed     []FeedItem `json:"failed"`
}

// Poller serves the read-only status feed behind UI notifications. It is a
// convenience query, not a push mechanism: a client that misses the window
// is not retroactively notified.
type Poller struct {
	lessons ports.LessonStore
	window  time.Duration
	now     func() time.Time
}

// NewPoller builds a Poller with the given window; non-positive means
// DefaultFeedWindow.
func NewPoller(lessons ports.LessonStore, window time.Duration) *Poller {
	if window <= 0 {
		window = DefaultFeedWindow
	}
	return &Poller{lessons: lessons, window: window, now: time.Now}
}

// Poll returns the user's status feed.
func (p *Poller) Poll(ctx context.Context, userID uuid.UUID) (*StatusFeed, error) {
	since := p.now().Add(-p.window)
	lessons, err := p.lessons.ListForStatusFeed(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list status feed: %w", err)
	}

	feed := &StatusFeed{
		Generating: []FeedItem{},
		Completed:  []FeedItem{},
		Failed:     []FeedItem{},
	}
	for _, l := range lessons {
		switch l.Status {
		case domain.StatusGenerating:
			feed.Generating = append(feed.Generating, FeedItem{ID: l.ID, Title: l.Title})
		case domain.StatusDraft:
			feed.Completed = append(feed.Completed, FeedItem{ID: l.ID, Title: l.Title})
		case domain.StatusFailed:
			feed.Failed = append(feed.Failed, FeedItem{
				ID:            l.ID,
				Title:         l.Title,
				FailureReason: l.FailureReason,
			})
		}
	}
	return feed, nil
}
