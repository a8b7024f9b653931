// Package guard decides whether a view may be shown for the current session.
//
// A decision is pure: it depends only on the session snapshot and the
// capability the view needs. While the session is still loading a protected
// view waits; it is never redirected on a guess.
package guard

import (
	"sync"

	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/app/system/session"
)

// Capability is what a view requires of the viewer.
type Capability int

const (
	None Capability = iota
	Authenticated
	Administrator
)

func (c Capability) String() string {
	switch c {
	case Authenticated:
		return "authenticated"
	case Administrator:
		return "administrator"
	default:
		return "none"
	}
}

// ParseCapability maps the query-string form back to a Capability.
func ParseCapability(s string) Capability {
	switch s {
	case "authenticated":
		return Authenticated
	case "administrator":
		return Administrator
	default:
		return None
	}
}

// Outcome is the result of a guard decision.
type Outcome int

const (
	Allow Outcome = iota
	Wait
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	default:
		return "allow"
	}
}

const (
	AuthPath = "/auth"
	HomePath = "/"
)

// AdminRequiredMessage is shown when a signed-in non-administrator opens an
// administrator view.
const AdminRequiredMessage = "خطأ في الوصول: يجب أن تكون مشرفًا للوصول إلى هذه الصفحة"

// Decision is what to do with a view.
type Decision struct {
	Outcome Outcome
	Target  string // redirect target; empty unless Outcome is Redirect
	Warning string // notification to show alongside the redirect
}

// Decide evaluates need against s.
func Decide(s session.State, need Capability) Decision {
	if need == None {
		return Decision{Outcome: Allow}
	}
	if s.Loading {
		return Decision{Outcome: Wait}
	}
	if !s.SignedIn() {
		return Decision{Outcome: Redirect, Target: AuthPath}
	}
	if need == Administrator && !s.IsAdmin() {
		return Decision{Outcome: Redirect, Target: HomePath, Warning: AdminRequiredMessage}
	}
	return Decision{Outcome: Allow}
}

// Viewer is the part of a session manager the guard needs.
type Viewer interface {
	State() session.State
	Notify(n notify.Notification)
}

// Enforce decides for v and emits the decision's warning, if any.
func Enforce(v Viewer, need Capability) Decision {
	d := Decide(v.State(), need)
	warn(v, d)
	return d
}

func warn(v Viewer, d Decision) {
	if d.Warning != "" {
		v.Notify(notify.Notification{Level: notify.Error, Message: d.Warning})
	}
}

// Source is a Viewer that also publishes state changes.
type Source interface {
	Viewer
	Subscribe(fn func(session.State)) (cancel func())
}

// Watch re-evaluates need on every session change and calls fn whenever the
// decision differs from the previous one, starting with the current
// decision. Warnings are emitted once per transition into a redirect. The
// returned function stops watching.
func Watch(src Source, need Capability, fn func(Decision)) (cancel func()) {
	var (
		mu    sync.Mutex
		last  Decision
		first = true
	)
	return src.Subscribe(func(s session.State) {
		d := Decide(s, need)
		mu.Lock()
		changed := first || d != last
		first = false
		last = d
		mu.Unlock()
		if !changed {
			return
		}
		warn(src, d)
		fn(d)
	})
}
