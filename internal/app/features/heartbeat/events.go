package heartbeat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/guard"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// redirectEvent is the payload of an SSE "redirect" frame. A warning
// travels through the browser's notification queue and shows on the page
// the redirect lands on.
type redirectEvent struct {
	Target string `json:"target"`
}

// target resolves where d sends the page at path.
func target(path string, d guard.Decision) string {
	if d.Target == guard.AuthPath {
		return guard.AuthPath + "?return=" + url.QueryEscape(path)
	}
	return d.Target
}

// ServeEvents handles GET /session/events?need=&path=.
//
// The stream re-evaluates the page's capability on every session change
// and sends a "redirect" event as soon as the page may no longer be shown,
// for example when the user signs out in another tab or loses the
// administrator flag. The stream ends after a redirect.
func (h *Handler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	m := auth.Manager(r)
	flusher, ok := w.(http.Flusher)
	if m == nil || !ok {
		http.Error(w, "streaming unavailable", http.StatusServiceUnavailable)
		return
	}

	need := guard.ParseCapability(query.Get(r, "need"))
	path := query.Get(r, "path")
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		path = "/"
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	redirects := make(chan redirectEvent, 1)
	stop := guard.Watch(m, need, func(d guard.Decision) {
		if d.Outcome != guard.Redirect {
			return
		}
		select {
		case redirects <- redirectEvent{Target: target(path, d)}:
		default:
		}
	})
	defer stop()

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	tick := time.NewTicker(keepAlive)
	defer tick.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-redirects:
			data, err := json.Marshal(ev)
			if err != nil {
				h.Log.Error("encode redirect event", zap.Error(err))
				return
			}
			fmt.Fprintf(w, "event: redirect\ndata: %s\n\n", data)
			flusher.Flush()
			return
		}
	}
}
