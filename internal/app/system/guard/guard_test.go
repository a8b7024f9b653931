package guard_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend/memory"
	"github.com/dalemusser/souqhub/internal/app/system/guard"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/app/system/session"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeViewer struct {
	state session.State
	notes []notify.Notification
}

func (v *fakeViewer) State() session.State { return v.state }
func (v *fakeViewer) Notify(n notify.Notification) { v.notes = append(v.notes, n) }

var (
	loading  = session.State{Loading: true}
	anon     = session.State{}
	member   = session.State{Identity: &session.Identity{ID: "u1"}, Profile: &models.Profile{ID: "u1"}}
	noProf   = session.State{Identity: &session.Identity{ID: "u1"}}
	admin    = session.State{Identity: &session.Identity{ID: "u2"}, Profile: &models.Profile{ID: "u2", IsAdmin: true}}
	adminLdg = session.State{Loading: true, Identity: &session.Identity{ID: "u2"}}
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name  string
		state session.State
		need  guard.Capability
		want  guard.Decision
	}{
		{"public view while loading", loading, guard.None, guard.Decision{Outcome: guard.Allow}},
		{"public view signed out", anon, guard.None, guard.Decision{Outcome: guard.Allow}},
		{"protected view waits while loading", loading, guard.Authenticated, guard.Decision{Outcome: guard.Wait}},
		{"admin view waits while loading", adminLdg, guard.Administrator, guard.Decision{Outcome: guard.Wait}},
		{"protected view signed out", anon, guard.Authenticated, guard.Decision{Outcome: guard.Redirect, Target: guard.AuthPath}},
		{"protected view signed in", member, guard.Authenticated, guard.Decision{Outcome: guard.Allow}},
		{"admin view signed out", anon, guard.Administrator, guard.Decision{Outcome: guard.Redirect, Target: guard.AuthPath}},
		{"admin view as member", member, guard.Administrator, guard.Decision{Outcome: guard.Redirect, Target: guard.HomePath, Warning: guard.AdminRequiredMessage}},
		{"admin view without profile", noProf, guard.Administrator, guard.Decision{Outcome: guard.Redirect, Target: guard.HomePath, Warning: guard.AdminRequiredMessage}},
		{"admin view as admin", admin, guard.Administrator, guard.Decision{Outcome: guard.Allow}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, guard.Decide(tt.state, tt.need))
		})
	}
}

func TestEnforce_WarnsOnlyForAdminRedirect(t *testing.T) {
	v := &fakeViewer{state: member}
	d := guard.Enforce(v, guard.Administrator)
	assert.Equal(t, guard.Redirect, d.Outcome)
	require.Len(t, v.notes, 1)
	assert.Equal(t, notify.Error, v.notes[0].Level)
	assert.Equal(t, guard.AdminRequiredMessage, v.notes[0].Message)

	v = &fakeViewer{state: anon}
	guard.Enforce(v, guard.Administrator)
	assert.Empty(t, v.notes)
}

func TestParseCapability(t *testing.T) {
	for _, c := range []guard.Capability{guard.None, guard.Authenticated, guard.Administrator} {
		assert.Equal(t, c, guard.ParseCapability(c.String()))
	}
	assert.Equal(t, guard.None, guard.ParseCapability("bogus"))
}

func TestWatch_SignOutOnAdminViewRedirects(t *testing.T) {
	b := memory.New()
	u := b.AddUser("admin@example.com", "secret1", nil)
	b.SeedProfile(models.Profile{ID: u.ID, Username: "admin", IsAdmin: true, CreatedAt: time.Now()})

	var tasks []func()
	m := session.New(b.NewClient(nil), nil, nil, session.WithScheduler(func(fn func()) { tasks = append(tasks, fn) }))
	defer m.Close()

	var got []guard.Decision
	stop := guard.Watch(m, guard.Administrator, func(d guard.Decision) { got = append(got, d) })
	defer stop()

	require.Len(t, got, 1)
	assert.Equal(t, guard.Wait, got[0].Outcome)

	require.NoError(t, m.Init(context.Background()))
	require.NoError(t, m.SignIn(context.Background(), "admin@example.com", "secret1"))
	for _, fn := range tasks {
		fn()
	}
	require.NoError(t, m.SignOut(context.Background()))

	want := []guard.Decision{
		{Outcome: guard.Wait},
		{Outcome: guard.Redirect, Target: guard.AuthPath},
		// Signed in, profile not loaded yet: not an administrator.
		{Outcome: guard.Redirect, Target: guard.HomePath, Warning: guard.AdminRequiredMessage},
		{Outcome: guard.Allow},
		{Outcome: guard.Redirect, Target: guard.AuthPath},
	}
	assert.Equal(t, want, got)
}

func TestWatch_OnlyReportsChanges(t *testing.T) {
	b := memory.New()
	b.AddUser("a@example.com", "secret1", nil)
	m := session.New(b.NewClient(nil), nil, nil, session.WithScheduler(func(func()) {}))
	defer m.Close()

	var got []guard.Decision
	stop := guard.Watch(m, guard.None, func(d guard.Decision) { got = append(got, d) })
	require.NoError(t, m.Init(context.Background()))
	require.NoError(t, m.SignIn(context.Background(), "a@example.com", "secret1"))
	assert.Len(t, got, 1, "public views never change decision")

	stop()
	require.NoError(t, m.SignOut(context.Background()))
	assert.Len(t, got, 1)
}
