package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/system/livesearch"
	"github.com/dalemusser/souqhub/internal/app/system/normalize"
	"github.com/dalemusser/souqhub/internal/app/system/paging"
	"github.com/dalemusser/souqhub/internal/app/system/search"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func newSearchCmd(e *env) *cobra.Command {
	var query, category, location string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search listings",
		Long: `Open an interactive search bar. Suggestions appear while typing;
Enter shows the full results, a click on a suggestion opens that listing.
With --query and a non-terminal stdin the results are printed directly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := e.manager(ctx)
			if err != nil {
				return err
			}
			products := m.Client().Products()

			f, isFile := e.stdin.(*os.File)
			if !isFile || !term.IsTerminal(int(f.Fd())) {
				if strings.TrimSpace(query) == "" {
					return fmt.Errorf("--query is required when stdin is not a terminal")
				}
				return openTarget(ctx, products, resultsURL(query, category, location), e.out)
			}

			target, err := runSearchUI(ctx, f, e.out, products, category, location, e.log)
			if err != nil {
				return err
			}
			if target == "" {
				return nil
			}
			return openTarget(ctx, products, target, e.out)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "Search term (non-interactive)")
	cmd.Flags().StringVar(&category, "category", models.AllCategories, "Category filter")
	cmd.Flags().StringVar(&location, "location", models.AllLocations, "Location filter")
	return cmd
}

// resultsURL builds the same results URL the search bar submits.
func resultsURL(q, category, location string) string {
	v := url.Values{}
	v.Set("q", q)
	v.Set("category", category)
	v.Set("location", location)
	return "/search?" + v.Encode()
}

// openTarget prints what a search-bar URL points at: a listing's details or
// the full results page.
func openTarget(ctx context.Context, products backend.ProductTable, target string, out io.Writer) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("bad target %q: %w", target, err)
	}
	if id, ok := strings.CutPrefix(u.Path, "/product/"); ok {
		p, err := products.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("load listing: %w", err)
		}
		printProduct(out, p)
		return nil
	}

	q := u.Query()
	needle := normalize.QueryParam(q.Get("q"))
	if needle == "" {
		fmt.Fprintln(out, "Nothing to search for.")
		return nil
	}
	found, err := products.Search(ctx, needle, paging.MaxRows)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	found = search.Filters{Category: q.Get("category"), Location: q.Get("location")}.Apply(found)
	if len(found) == 0 {
		fmt.Fprintf(out, "No listings match %q.\n", needle)
		return nil
	}
	fmt.Fprintf(out, "%d listing(s) for %q:\n", len(found), needle)
	for _, p := range found {
		fmt.Fprintf(out, "  %s  %s · %s · %s · %.2f\n", p.ID, p.Title, p.Category, p.Location, p.Price)
	}
	return nil
}

func printProduct(out io.Writer, p models.Product) {
	fmt.Fprintf(out, "%s\n", p.Title)
	fmt.Fprintf(out, "  price:     %.2f\n", p.Price)
	fmt.Fprintf(out, "  category:  %s\n", p.Category)
	fmt.Fprintf(out, "  condition: %s\n", p.Condition)
	fmt.Fprintf(out, "  location:  %s\n", p.Location)
	if p.Description != "" {
		fmt.Fprintf(out, "\n%s\n", p.Description)
	}
}

// searchUI is the interactive search bar. Controller callbacks only redraw;
// all controller calls come from the input loop.
type searchUI struct {
	ctl   *livesearch.Controller
	doc   *pointerDoc
	out   io.Writer
	width int

	mu        sync.Mutex
	highlight int
}

func newSearchUI(s livesearch.Searcher, out io.Writer, width int, log *zap.Logger) *searchUI {
	u := &searchUI{doc: newPointerDoc(), out: out, width: width, highlight: -1}
	u.ctl = livesearch.New(s, livesearch.WithLogger(log), livesearch.WithOnChange(u.redraw))
	return u
}

func (u *searchUI) redraw(s livesearch.Snapshot) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !s.ResultsVisible || u.highlight >= len(s.Results) {
		u.highlight = -1
	}
	fmt.Fprint(u.out, frame(renderSearch(s, u.highlight)))
}

// handle applies one event. done is true when the UI should close; target
// is then the URL to open, or empty to quit.
func (u *searchUI) handle(ev keyEvent) (done bool, target string) {
	s := u.ctl.Snapshot()
	switch ev.kind {
	case keyRune:
		u.setHighlight(-1)
		u.ctl.Input(s.RawInput + string(ev.r))
	case keyBackspace:
		r := []rune(s.RawInput)
		if len(r) > 0 {
			u.setHighlight(-1)
			u.ctl.Input(string(r[:len(r)-1]))
		}
	case keyEnter:
		if i := u.currentHighlight(); s.ResultsVisible && i >= 0 && i < len(s.Results) {
			return true, u.ctl.Select(s.Results[i].ID)
		}
		return true, u.ctl.Submit()
	case keyEsc:
		u.ctl.Clear()
	case keyTab:
		u.ctl.Focus()
	case keyUp, keyDown:
		if !s.ResultsVisible || len(s.Results) == 0 {
			return false, ""
		}
		i := u.currentHighlight()
		if ev.kind == keyDown {
			i = (i + 1) % len(s.Results)
		} else if i <= 0 {
			i = len(s.Results) - 1
		} else {
			i--
		}
		u.setHighlight(i)
		u.redraw(s)
	case keyMouse:
		u.ctl.SetBounds(componentBounds(s, u.width))
		if row := rowAt(s, ev.p); row >= 0 {
			return true, u.ctl.Select(s.Results[row].ID)
		}
		u.doc.dispatch(ev.p)
	case keyQuit:
		return true, ""
	}
	return false, ""
}

func (u *searchUI) setHighlight(i int) {
	u.mu.Lock()
	u.highlight = i
	u.mu.Unlock()
}

func (u *searchUI) currentHighlight() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.highlight
}

// runSearchUI puts the terminal in raw mode with mouse reporting and runs
// the search bar until it closes.
func runSearchUI(ctx context.Context, in *os.File, out io.Writer, s livesearch.Searcher, category, location string, log *zap.Logger) (string, error) {
	fd := int(in.Fd())
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		width = 80
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return "", fmt.Errorf("raw mode: %w", err)
	}
	fmt.Fprint(out, altScreenOn+mouseOn)
	defer func() {
		fmt.Fprint(out, mouseOff+altScreenOff)
		_ = term.Restore(fd, old)
	}()

	u := newSearchUI(s, out, width, log)
	u.ctl.SetCategory(category)
	u.ctl.SetLocation(location)
	u.ctl.Mount(u.doc, componentBounds(u.ctl.Snapshot(), width))
	defer u.ctl.Unmount()
	u.redraw(u.ctl.Snapshot())

	chunks := make(chan []byte)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := in.Read(buf)
			if n > 0 {
				b := make([]byte, n)
				copy(b, buf[:n])
				select {
				case chunks <- b:
				case <-stop:
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	var pending []byte
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return "", nil
			}
			return "", err
		case b := <-chunks:
			events, rest := parseInput(append(pending, b...))
			pending = rest
			for _, ev := range events {
				if done, target := u.handle(ev); done {
					return target, nil
				}
			}
		}
	}
}
