// Package livesearch drives a search-as-you-type dropdown.
//
// The Controller is a small state machine over Idle, Debouncing, Fetching,
// Displaying and Hidden. Keystrokes restart a debounce timer; only the last
// keystroke of a burst reaches the backend. Every fetch carries a sequence
// number and its own cancel func, so a response for a superseded term, or
// one that lands after Unmount, is dropped.
package livesearch

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"go.uber.org/zap"
)

const (
	// MinTermLength is the shortest term, in characters, that is looked up.
	MinTermLength = 2
	DebounceDelay = 300 * time.Millisecond
	ResultLimit   = 5
)

// Phase is the controller's state.
type Phase int

const (
	Idle Phase = iota
	Debouncing
	Fetching
	Displaying
	Hidden
)

func (p Phase) String() string {
	switch p {
	case Debouncing:
		return "debouncing"
	case Fetching:
		return "fetching"
	case Displaying:
		return "displaying"
	case Hidden:
		return "hidden"
	default:
		return "idle"
	}
}

// Searcher looks up dropdown rows. backend.ProductTable satisfies it.
type Searcher interface {
	TitleContains(ctx context.Context, term string, limit int64) ([]models.ProductSummary, error)
}

// Snapshot is a copy of the controller's state.
type Snapshot struct {
	Phase          Phase
	RawInput       string
	DebouncedTerm  string
	Results        []models.ProductSummary
	ResultsVisible bool
	IsFetching     bool
	Category       string
	Location       string
}

type Option func(*Controller)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(ctl *Controller) { ctl.log = l }
}

// WithOnChange registers a callback that receives a snapshot after every
// state change. Callbacks are serialized and always observe the latest
// state. fn must not call back into the controller.
func WithOnChange(fn func(Snapshot)) Option {
	return func(ctl *Controller) { ctl.onChange = fn }
}

// WithFetchTimeout bounds each backend lookup.
func WithFetchTimeout(d time.Duration) Option {
	return func(ctl *Controller) { ctl.fetchTimeout = d }
}

// Controller is one search bar's state machine. It is safe for concurrent
// use; timer callbacks and fetch completions may arrive on other goroutines.
type Controller struct {
	searcher     Searcher
	clock        Clock
	log          *zap.Logger
	onChange     func(Snapshot)
	fetchTimeout time.Duration

	emitMu sync.Mutex

	mu          sync.Mutex
	state       Snapshot
	seq         uint64
	timer       Timer
	cancelFetch context.CancelFunc
	bounds      Rect
	removeDoc   func()
	mounted     bool
}

// New returns an unmounted controller.
func New(searcher Searcher, opts ...Option) *Controller {
	c := &Controller{
		searcher:     searcher,
		clock:        SystemClock{},
		log:          zap.NewNop(),
		fetchTimeout: timeouts.Short(),
		state: Snapshot{
			Phase:    Idle,
			Category: models.AllCategories,
			Location: models.AllLocations,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Mount attaches the outside-pointer listener. bounds is the component's
// region; pointer-downs outside it hide the dropdown.
func (c *Controller) Mount(doc Document, bounds Rect) {
	c.mu.Lock()
	if c.mounted {
		c.bounds = bounds
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.bounds = bounds
	c.mu.Unlock()

	var remove func()
	if doc != nil {
		remove = doc.OnPointerDown(c.PointerDown)
	}
	c.mu.Lock()
	c.removeDoc = remove
	c.mu.Unlock()
}

// SetBounds updates the component region, for example after a resize.
func (c *Controller) SetBounds(r Rect) {
	c.mu.Lock()
	c.bounds = r
	c.mu.Unlock()
}

// Unmount stops the debounce timer, cancels any fetch in flight and removes
// the outside-pointer listener. Late responses are discarded.
func (c *Controller) Unmount() {
	c.mu.Lock()
	c.mounted = false
	c.supersedeLocked()
	remove := c.removeDoc
	c.removeDoc = nil
	c.state.IsFetching = false
	c.mu.Unlock()

	if remove != nil {
		remove()
	}
}

// supersedeLocked invalidates the pending timer and fetch.
func (c *Controller) supersedeLocked() {
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
}

func termOf(raw string) string {
	return strings.TrimSpace(raw)
}

func longEnough(term string) bool {
	return utf8.RuneCountInString(term) >= MinTermLength
}

// Input records a keystroke: text is the full new value of the input.
func (c *Controller) Input(text string) {
	c.mu.Lock()
	c.supersedeLocked()
	c.state.RawInput = text
	c.state.IsFetching = false

	term := termOf(text)
	if !longEnough(term) {
		c.state.Phase = Hidden
		c.state.ResultsVisible = false
		c.state.Results = nil
		c.mu.Unlock()
		c.emit()
		return
	}

	c.state.Phase = Debouncing
	seq := c.seq
	c.timer = c.clock.AfterFunc(DebounceDelay, func() { c.fire(seq, term) })
	c.mu.Unlock()
	c.emit()
}

// fire runs when the debounce timer elapses.
func (c *Controller) fire(seq uint64, term string) {
	c.mu.Lock()
	if seq != c.seq || !c.mounted {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	c.cancelFetch = cancel
	c.state.Phase = Fetching
	c.state.DebouncedTerm = term
	c.state.IsFetching = true
	c.mu.Unlock()
	c.emit()

	rows, err := c.searcher.TitleContains(ctx, term, ResultLimit)
	cancel()

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.log.Debug("live search response discarded", zap.String("term", term))
		return
	}
	c.cancelFetch = nil
	c.state.IsFetching = false
	if err != nil {
		c.state.Phase = Idle
		c.state.Results = nil
		c.state.ResultsVisible = false
		c.mu.Unlock()
		c.log.Warn("live search failed", zap.String("term", term), zap.Error(err))
		c.emit()
		return
	}
	if rows == nil {
		rows = []models.ProductSummary{}
	}
	c.state.Phase = Displaying
	c.state.Results = rows
	c.state.ResultsVisible = true
	c.mu.Unlock()
	c.emit()
}

// Focus re-shows the last results when the input still holds a searchable
// term. It never fetches.
func (c *Controller) Focus() {
	c.mu.Lock()
	ok := (c.state.Phase == Hidden || c.state.Phase == Idle) &&
		longEnough(termOf(c.state.RawInput)) &&
		len(c.state.Results) > 0
	if ok {
		c.state.Phase = Displaying
		c.state.ResultsVisible = true
	}
	c.mu.Unlock()
	if ok {
		c.emit()
	}
}

// Clear empties the input and hides the dropdown.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.supersedeLocked()
	c.state.RawInput = ""
	c.state.DebouncedTerm = ""
	c.state.Results = nil
	c.state.ResultsVisible = false
	c.state.IsFetching = false
	c.state.Phase = Hidden
	c.mu.Unlock()
	c.emit()
}

// PointerDown handles a pointer press at p. A press outside the component
// hides the dropdown and drops any pending lookup; the input is kept.
func (c *Controller) PointerDown(p Point) {
	c.mu.Lock()
	if c.bounds.Contains(p) {
		c.mu.Unlock()
		return
	}
	pending := c.state.Phase == Debouncing || c.state.Phase == Fetching
	if !c.state.ResultsVisible && !pending {
		c.mu.Unlock()
		return
	}
	c.hideLocked()
	c.mu.Unlock()
	c.emit()
}

func (c *Controller) hideLocked() {
	c.supersedeLocked()
	c.state.IsFetching = false
	c.state.ResultsVisible = false
	c.state.Phase = Hidden
}

// SetCategory selects the category filter used by Submit.
func (c *Controller) SetCategory(category string) {
	c.mu.Lock()
	if category == "" {
		category = models.AllCategories
	}
	c.state.Category = category
	c.mu.Unlock()
	c.emit()
}

// SetLocation selects the location filter used by Submit.
func (c *Controller) SetLocation(location string) {
	c.mu.Lock()
	if location == "" {
		location = models.AllLocations
	}
	c.state.Location = location
	c.mu.Unlock()
	c.emit()
}

// Submit returns the results-page URL for the raw input and the selected
// filters, whatever the dropdown is doing. The dropdown is closed.
func (c *Controller) Submit() string {
	c.mu.Lock()
	q := url.Values{}
	q.Set("q", c.state.RawInput)
	q.Set("category", c.state.Category)
	q.Set("location", c.state.Location)
	c.hideLocked()
	c.mu.Unlock()
	c.emit()
	return "/search?" + q.Encode()
}

// Select closes the dropdown and returns the detail-page URL for id.
func (c *Controller) Select(id string) string {
	c.mu.Lock()
	c.hideLocked()
	c.mu.Unlock()
	c.emit()
	return "/product/" + url.PathEscape(id)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if c.state.Results != nil {
		s.Results = append(make([]models.ProductSummary, 0, len(c.state.Results)), c.state.Results...)
	}
	return s
}

func (c *Controller) emit() {
	if c.onChange == nil {
		return
	}
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.onChange(c.Snapshot())
}
