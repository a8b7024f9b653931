package logout_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dalemusser/souqhub/internal/app/backend/memory"
	"github.com/dalemusser/souqhub/internal/app/features/logout"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/testutil"
	"go.uber.org/zap"
)

func TestHandleLogout_SignsOut(t *testing.T) {
	b := memory.New()
	br := testutil.SignedInBrowser(t, b, testutil.MemberUser())
	h := logout.NewHandler(zap.NewNop())

	rec := testutil.NewRecorder()
	h.HandleLogout(rec, br.PostForm("/logout", nil))

	rec.AssertRedirect(t, "/")
	if n := b.CallCount(memory.OpSignOut); n != 1 {
		t.Errorf("sign out called %d times", n)
	}
}

func TestHandleLogout_SignedOutIsNoop(t *testing.T) {
	b := memory.New()
	br := testutil.NewBrowser(t, b)
	h := logout.NewHandler(zap.NewNop())

	rec := testutil.NewRecorder()
	h.HandleLogout(rec, br.PostForm("/logout", nil))

	rec.AssertRedirect(t, "/")
	if n := b.CallCount(memory.OpSignOut); n != 0 {
		t.Errorf("sign out called %d times", n)
	}
}

func TestHandleLogout_FailureIsReported(t *testing.T) {
	b := memory.New()
	br := testutil.SignedInBrowser(t, b, testutil.MemberUser())
	b.Fail(memory.OpSignOut, errors.New("network down"))
	h := logout.NewHandler(zap.NewNop())

	rec := testutil.NewRecorder()
	h.HandleLogout(rec, br.PostForm("/logout", nil))

	rec.AssertRedirect(t, "/")
	var errs int
	for _, n := range br.Notes() {
		if n.Level == notify.Error {
			errs++
		}
	}
	if errs != 1 {
		t.Errorf("error notifications = %d", errs)
	}
	if !br.Entry.Manager.State().SignedIn() {
		t.Error("failed sign out must keep the user signed in")
	}
}

func TestHandleLogout_HTMX(t *testing.T) {
	br := testutil.NewBrowser(t, memory.New())
	h := logout.NewHandler(zap.NewNop())

	req := br.PostForm("/logout", nil)
	req.Header.Set("HX-Request", "true")
	rec := testutil.NewRecorder()
	h.HandleLogout(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	if got := rec.Header().Get("HX-Redirect"); got != "/" {
		t.Errorf("HX-Redirect = %q", got)
	}
}
