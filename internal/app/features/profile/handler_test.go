package profile_test

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/dalemusser/souqhub/internal/app/backend/memory"
	uierrors "github.com/dalemusser/souqhub/internal/app/features/errors"
	"github.com/dalemusser/souqhub/internal/app/features/profile"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) *profile.Handler {
	t.Helper()
	testutil.BootTemplates(t)
	logger := zap.NewNop()
	return profile.NewHandler(uierrors.NewErrorLogger(logger), logger)
}

func TestServeProfile(t *testing.T) {
	h := newTestHandler(t)
	br := testutil.SignedInBrowser(t, memory.New(), testutil.MemberUser())

	rec := testutil.NewRecorder()
	h.ServeProfile(rec, br.Get("/profile"))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `value="member"`)
	rec.AssertContains(t, "member@test.com")
}

func TestHandleUpdate_AppliesToSession(t *testing.T) {
	h := newTestHandler(t)
	b := memory.New()
	br := testutil.SignedInBrowser(t, b, testutil.MemberUser())

	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, br.PostForm("/profile", url.Values{
		"username":   {"abu_ali"},
		"first_name": {"علي"},
		"last_name":  {"  حسن "},
	}))

	rec.AssertRedirect(t, "/profile")

	st := br.Entry.Manager.State()
	if st.Profile == nil || st.Profile.Username != "abu_ali" || st.Profile.LastName != "حسن" {
		t.Fatalf("session profile = %+v", st.Profile)
	}
	if got := st.DisplayName(); got != "علي حسن" {
		t.Errorf("display name = %q", got)
	}
	stored, _ := b.Profile(br.User.ID)
	if stored.FirstName != "علي" {
		t.Errorf("stored first name = %q", stored.FirstName)
	}

	var ok bool
	for _, n := range br.Notes() {
		ok = ok || (n.Level == notify.Success && n.Message == "تم تحديث الملف الشخصي بنجاح")
	}
	if !ok {
		t.Error("expected success notification")
	}
}

func TestHandleUpdate_Validation(t *testing.T) {
	h := newTestHandler(t)
	b := memory.New()
	br := testutil.SignedInBrowser(t, b, testutil.MemberUser())

	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, br.PostForm("/profile", url.Values{
		"username":   {"member"},
		"avatar_url": {"javascript:alert(1)"},
	}))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "رابط الصورة غير صالح")
	if n := b.CallCount(memory.OpProfileUpdate); n != 0 {
		t.Errorf("update called %d times", n)
	}
}

func TestHandleUpdate_BackendFailureKeepsProfile(t *testing.T) {
	h := newTestHandler(t)
	b := memory.New()
	br := testutil.SignedInBrowser(t, b, testutil.MemberUser())
	b.Fail(memory.OpProfileUpdate, errors.New("timeout"))

	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, br.PostForm("/profile", url.Values{"username": {"renamed"}}))

	rec.AssertRedirect(t, "/profile")
	if got := br.Entry.Manager.State().Profile.Username; got != "member" {
		t.Errorf("username = %q", got)
	}
	var failed bool
	for _, n := range br.Notes() {
		failed = failed || (n.Level == notify.Error && n.Message == "حدث خطأ أثناء تحديث الملف الشخصي")
	}
	if !failed {
		t.Error("expected error notification")
	}
}

func TestRoutes_RequireSignIn(t *testing.T) {
	r := profile.Routes(newTestHandler(t))
	br := testutil.NewBrowser(t, memory.New())

	req := br.Get("/")
	req.Header.Set("Accept", "text/html")
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d", rec.Code)
	}
}
