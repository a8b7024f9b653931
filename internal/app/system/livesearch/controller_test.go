package livesearch_test

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend/memory"
	"github.com/dalemusser/souqhub/internal/app/system/livesearch"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock fires timers only when the test advances it.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) livesearch.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due timers in order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.fn()
	}
}

func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeDoc struct {
	listeners map[int]func(livesearch.Point)
	next      int
}

func (d *fakeDoc) OnPointerDown(fn func(livesearch.Point)) func() {
	if d.listeners == nil {
		d.listeners = map[int]func(livesearch.Point){}
	}
	d.next++
	id := d.next
	d.listeners[id] = fn
	return func() { delete(d.listeners, id) }
}

func (d *fakeDoc) Press(p livesearch.Point) {
	for _, fn := range d.listeners {
		fn(p)
	}
}

// recordingSearcher records terms and can block or fail.
type recordingSearcher struct {
	mu    sync.Mutex
	terms []string
	rows  map[string][]models.ProductSummary
	err   error
	gate  chan struct{}
	ctxs  []context.Context
}

func (s *recordingSearcher) TitleContains(ctx context.Context, term string, limit int64) ([]models.ProductSummary, error) {
	s.mu.Lock()
	s.terms = append(s.terms, term)
	s.ctxs = append(s.ctxs, ctx)
	gate, rows, err := s.gate, s.rows[term], s.err
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return rows, err
}

func (s *recordingSearcher) Terms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.terms...)
}

var bounds = livesearch.Rect{Min: livesearch.Point{X: 0, Y: 0}, Max: livesearch.Point{X: 80, Y: 10}}

func newController(t *testing.T, s livesearch.Searcher) (*livesearch.Controller, *manualClock, *fakeDoc) {
	t.Helper()
	clk := &manualClock{}
	doc := &fakeDoc{}
	c := livesearch.New(s, livesearch.WithClock(clk))
	c.Mount(doc, bounds)
	t.Cleanup(c.Unmount)
	return c, clk, doc
}

func TestShortInputNeverQueries(t *testing.T) {
	s := &recordingSearcher{}
	c, clk, _ := newController(t, s)

	c.Input("i")
	clk.Advance(time.Second)
	c.Input(" ")
	clk.Advance(time.Second)

	assert.Empty(t, s.Terms())
	snap := c.Snapshot()
	assert.False(t, snap.ResultsVisible)
	assert.Equal(t, livesearch.Hidden, snap.Phase)
}

func TestTwoRunesIsEnough(t *testing.T) {
	s := &recordingSearcher{}
	c, clk, _ := newController(t, s)

	c.Input("سي")
	clk.Advance(livesearch.DebounceDelay)
	assert.Equal(t, []string{"سي"}, s.Terms())
}

func TestBurstIssuesOneQueryForLastTerm(t *testing.T) {
	s := &recordingSearcher{rows: map[string][]models.ProductSummary{
		"iph":  {{ID: "old", Title: "stale"}},
		"ipho": {{ID: "p1", Title: "iPhone 13", Category: "إلكترونيات"}},
	}}
	c, clk, _ := newController(t, s)

	c.Input("ip")
	clk.Advance(100 * time.Millisecond)
	c.Input("iph")
	clk.Advance(100 * time.Millisecond)
	c.Input("ipho")
	assert.Equal(t, livesearch.Debouncing, c.Snapshot().Phase)
	assert.Equal(t, 1, clk.Pending())

	clk.Advance(299 * time.Millisecond)
	assert.Empty(t, s.Terms())
	clk.Advance(time.Millisecond)

	assert.Equal(t, []string{"ipho"}, s.Terms())
	snap := c.Snapshot()
	assert.Equal(t, livesearch.Displaying, snap.Phase)
	assert.Equal(t, "ipho", snap.DebouncedTerm)
	require.Len(t, snap.Results, 1)
	assert.Equal(t, "p1", snap.Results[0].ID)
}

func TestEmptyResultsStillDisplay(t *testing.T) {
	s := &recordingSearcher{}
	c, clk, _ := newController(t, s)

	c.Input("zz")
	clk.Advance(livesearch.DebounceDelay)
	snap := c.Snapshot()
	assert.Equal(t, livesearch.Displaying, snap.Phase)
	assert.True(t, snap.ResultsVisible)
	assert.NotNil(t, snap.Results)
	assert.Empty(t, snap.Results)
}

func TestFetchErrorIsSilent(t *testing.T) {
	s := &recordingSearcher{err: errors.New("boom")}
	c, clk, _ := newController(t, s)

	c.Input("car")
	clk.Advance(livesearch.DebounceDelay)
	snap := c.Snapshot()
	assert.Equal(t, livesearch.Idle, snap.Phase)
	assert.Empty(t, snap.Results)
	assert.False(t, snap.ResultsVisible)
	assert.False(t, snap.IsFetching)
	assert.Equal(t, "car", snap.RawInput)
}

func TestNewKeystrokeDiscardsInFlightResponse(t *testing.T) {
	s := &recordingSearcher{
		gate: make(chan struct{}),
		rows: map[string][]models.ProductSummary{"old": {{ID: "stale"}}},
	}
	c, clk, _ := newController(t, s)

	c.Input("old")
	done := make(chan struct{})
	go func() {
		clk.Advance(livesearch.DebounceDelay)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(s.Terms()) == 1 }, time.Second, time.Millisecond)
	assert.True(t, c.Snapshot().IsFetching)

	c.Input("new")
	s.mu.Lock()
	firstCtx := s.ctxs[0]
	s.mu.Unlock()
	assert.Error(t, firstCtx.Err(), "superseded fetch is cancelled")

	close(s.gate)
	<-done
	snap := c.Snapshot()
	assert.Empty(t, snap.Results, "stale response must not land")
	assert.Equal(t, livesearch.Debouncing, snap.Phase)
}

func TestShrinkingBelowMinimumHides(t *testing.T) {
	s := &recordingSearcher{rows: map[string][]models.ProductSummary{"ab": {{ID: "1"}}}}
	c, clk, _ := newController(t, s)

	c.Input("ab")
	clk.Advance(livesearch.DebounceDelay)
	require.True(t, c.Snapshot().ResultsVisible)

	c.Input("a")
	snap := c.Snapshot()
	assert.Equal(t, livesearch.Hidden, snap.Phase)
	assert.False(t, snap.ResultsVisible)
	assert.Equal(t, "a", snap.RawInput)
}

func TestOutsidePointerHidesWithoutTouchingInput(t *testing.T) {
	s := &recordingSearcher{rows: map[string][]models.ProductSummary{"sofa": {{ID: "1"}}}}
	c, clk, doc := newController(t, s)

	c.Input("sofa")
	clk.Advance(livesearch.DebounceDelay)
	require.True(t, c.Snapshot().ResultsVisible)

	doc.Press(livesearch.Point{X: 5, Y: 5}) // inside
	assert.True(t, c.Snapshot().ResultsVisible)

	doc.Press(livesearch.Point{X: 5, Y: 20}) // outside
	snap := c.Snapshot()
	assert.False(t, snap.ResultsVisible)
	assert.Equal(t, livesearch.Hidden, snap.Phase)
	assert.Equal(t, "sofa", snap.RawInput)
}

func TestOutsidePointerDropsPendingLookup(t *testing.T) {
	s := &recordingSearcher{}
	c, clk, doc := newController(t, s)

	c.Input("sofa")
	doc.Press(livesearch.Point{X: 100, Y: 100})
	clk.Advance(time.Second)

	assert.Empty(t, s.Terms())
	assert.False(t, c.Snapshot().ResultsVisible)
}

func TestFocusReshowsWithoutFetching(t *testing.T) {
	s := &recordingSearcher{rows: map[string][]models.ProductSummary{"sofa": {{ID: "1"}}}}
	c, clk, doc := newController(t, s)

	c.Input("sofa")
	clk.Advance(livesearch.DebounceDelay)
	doc.Press(livesearch.Point{X: -1, Y: 0})
	require.False(t, c.Snapshot().ResultsVisible)

	c.Focus()
	snap := c.Snapshot()
	assert.True(t, snap.ResultsVisible)
	assert.Equal(t, livesearch.Displaying, snap.Phase)
	assert.Len(t, s.Terms(), 1, "focus must not re-fetch")
}

func TestFocusWithNothingToShow(t *testing.T) {
	s := &recordingSearcher{}
	c, clk, _ := newController(t, s)

	c.Focus()
	assert.False(t, c.Snapshot().ResultsVisible)

	c.Input("zz")
	clk.Advance(livesearch.DebounceDelay) // empty result set
	c.Clear()
	c.Focus()
	assert.False(t, c.Snapshot().ResultsVisible)
}

func TestClear(t *testing.T) {
	s := &recordingSearcher{}
	c, clk, _ := newController(t, s)

	c.Input("phone")
	c.Clear()
	clk.Advance(time.Second)

	assert.Empty(t, s.Terms())
	snap := c.Snapshot()
	assert.Equal(t, "", snap.RawInput)
	assert.Equal(t, livesearch.Hidden, snap.Phase)
}

func TestSubmitIgnoresState(t *testing.T) {
	s := &recordingSearcher{}
	c, _, _ := newController(t, s)

	c.SetCategory("سيارات")
	c.SetLocation("دبي")
	c.Input("x") // too short for the dropdown, still submitted

	got := c.Submit()
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/search", u.Path)
	assert.Equal(t, "x", u.Query().Get("q"))
	assert.Equal(t, "سيارات", u.Query().Get("category"))
	assert.Equal(t, "دبي", u.Query().Get("location"))

	c.Input("car")
	got = c.Submit() // while debouncing
	u, _ = url.Parse(got)
	assert.Equal(t, "car", u.Query().Get("q"))
	assert.Equal(t, livesearch.Hidden, c.Snapshot().Phase)
}

func TestSubmitDefaultsFilters(t *testing.T) {
	c, _, _ := newController(t, &recordingSearcher{})
	u, _ := url.Parse(c.Submit())
	assert.Equal(t, models.AllCategories, u.Query().Get("category"))
	assert.Equal(t, models.AllLocations, u.Query().Get("location"))
}

func TestUnmountStopsEverything(t *testing.T) {
	s := &recordingSearcher{}
	clk := &manualClock{}
	doc := &fakeDoc{}
	c := livesearch.New(s, livesearch.WithClock(clk))
	c.Mount(doc, bounds)
	require.Len(t, doc.listeners, 1)

	c.Input("lamp")
	c.Unmount()

	assert.Empty(t, doc.listeners)
	assert.Equal(t, 0, clk.Pending())
	clk.Advance(time.Second)
	assert.Empty(t, s.Terms())
}

func TestUnmountDuringFetchDiscardsResponse(t *testing.T) {
	s := &recordingSearcher{gate: make(chan struct{}), rows: map[string][]models.ProductSummary{"lamp": {{ID: "1"}}}}
	clk := &manualClock{}
	c := livesearch.New(s, livesearch.WithClock(clk))
	c.Mount(nil, bounds)

	c.Input("lamp")
	done := make(chan struct{})
	go func() {
		clk.Advance(livesearch.DebounceDelay)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(s.Terms()) == 1 }, time.Second, time.Millisecond)

	c.Unmount()
	close(s.gate)
	<-done
	assert.Empty(t, c.Snapshot().Results)
	assert.False(t, c.Snapshot().IsFetching)
}

func TestOnChangeSeesEveryTransition(t *testing.T) {
	s := &recordingSearcher{rows: map[string][]models.ProductSummary{"tv": {{ID: "1"}}}}
	clk := &manualClock{}
	var phases []livesearch.Phase
	c := livesearch.New(s, livesearch.WithClock(clk), livesearch.WithOnChange(func(snap livesearch.Snapshot) {
		phases = append(phases, snap.Phase)
	}))
	c.Mount(nil, bounds)
	defer c.Unmount()

	c.Input("tv")
	clk.Advance(livesearch.DebounceDelay)
	assert.Equal(t, []livesearch.Phase{livesearch.Debouncing, livesearch.Fetching, livesearch.Displaying}, phases)
}

// The full flow against the in-memory backend: type, wait, pick a row.
func TestTypeWaitSelect(t *testing.T) {
	b := memory.New()
	b.SeedProduct(models.Product{Title: "iPhone 13 Pro", Category: "إلكترونيات"})
	b.SeedProduct(models.Product{Title: "كنبة", Category: "أثاث"})
	second := b.SeedProduct(models.Product{Title: "Used IPHONE 11", Category: "إلكترونيات"})
	client := b.NewClient(nil)

	c, clk, _ := newController(t, client.Products())
	for _, prefix := range []string{"ip", "iph", "ipho"} {
		c.Input(prefix)
	}
	clk.Advance(livesearch.DebounceDelay)

	assert.Equal(t, 1, b.CallCount(memory.OpProductTitle))
	snap := c.Snapshot()
	require.Len(t, snap.Results, 2)
	assert.Equal(t, "iPhone 13 Pro", snap.Results[0].Title, "store order is kept")
	assert.Equal(t, "إلكترونيات", snap.Results[0].Category)
	assert.True(t, snap.ResultsVisible)

	dest := c.Select(second.ID)
	assert.Equal(t, "/product/"+second.ID, dest)
	assert.False(t, c.Snapshot().ResultsVisible)
}
