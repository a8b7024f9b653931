// internal/app/features/login/handler.go
package login

import (
	"context"
	"net/http"
	"unicode/utf8"

	"github.com/dalemusser/souqhub/internal/app/backend"
	uierrors "github.com/dalemusser/souqhub/internal/app/features/errors"
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/inputval"
	"github.com/dalemusser/souqhub/internal/app/system/limits"
	"github.com/dalemusser/souqhub/internal/app/system/navigation"
	"github.com/dalemusser/souqhub/internal/app/system/normalize"
	"github.com/dalemusser/souqhub/internal/app/system/ratelimit"
	"github.com/dalemusser/souqhub/internal/app/system/session"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

const (
	tabLogin    = "login"
	tabRegister = "register"
)

// SignInRecorder keeps the sign-in history shown to administrators.
type SignInRecorder interface {
	RecordFrom(ctx context.Context, r *http.Request, userID, email string) error
}

type Handler struct {
	SignIns SignInRecorder          // optional
	Limiter *ratelimit.AuthLimiter // optional
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(signIns SignInRecorder, limiter *ratelimit.AuthLimiter, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{SignIns: signIns, Limiter: limiter, ErrLog: errLog, Log: logger}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type authPageData struct {
	viewdata.BaseVM
	Tab       string
	Email     string
	Username  string
	ReturnURL string
	Error     string
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, d authPageData) {
	d.BaseVM = viewdata.NewBaseVM(r, "تسجيل الدخول", "/")
	if d.Tab != tabRegister {
		d.Tab = tabLogin
	}
	templates.Render(w, r, "auth_page", d)
}

// ServeAuth handles GET /auth. A signed-in browser has nothing to do here
// and is sent on.
func (h *Handler) ServeAuth(w http.ResponseWriter, r *http.Request) {
	ret := navigation.Accept(query.Get(r, "return"), navigation.AfterSignIn)
	if auth.State(r).SignedIn() {
		http.Redirect(w, r, ret, http.StatusSeeOther)
		return
	}
	h.render(w, r, authPageData{Tab: query.Get(r, "tab"), ReturnURL: ret})
}

func (h *Handler) manager(w http.ResponseWriter, r *http.Request) *session.Manager {
	m := auth.Manager(r)
	if m == nil {
		h.ErrLog.LogServerError(w, r, "auth form without browser session", nil,
			"تعذر بدء الجلسة، الرجاء تحديث الصفحة والمحاولة مرة أخرى", "/auth")
	}
	return m
}

// HandleLogin handles POST /auth/login. Backend failures reach the user as
// notifications queued by the session manager.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse login form failed", err, "بيانات النموذج غير صالحة", "/auth")
		return
	}
	email := normalize.Email(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	ret := navigation.Accept(r.PostFormValue("return"), navigation.AfterSignIn)
	page := authPageData{Tab: tabLogin, Email: email, ReturnURL: ret}

	var res inputval.Result
	res.Check(inputval.IsValidEmail(email), "email", "البريد الإلكتروني غير صالح")
	res.Check(password != "", "password", "كلمة المرور مطلوبة")
	if res.HasErrors() {
		page.Error = res.First()
		h.render(w, r, page)
		return
	}
	if h.Limiter != nil {
		if msg := h.Limiter.CheckSignIn(r, email); msg != "" {
			h.Log.Warn("sign in throttled", zap.String("ip", ratelimit.ClientIP(r)))
			page.Error = msg
			w.WriteHeader(http.StatusTooManyRequests)
			h.render(w, r, page)
			return
		}
	}

	m := h.manager(w, r)
	if m == nil {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "sign in")
	defer cancel()

	if err := m.SignIn(ctx, email, password); err != nil {
		h.Log.Info("sign in rejected", zap.String("kind", session.KindOf(err).String()))
		h.render(w, r, page)
		return
	}
	if h.Limiter != nil {
		h.Limiter.SignedIn(email)
	}
	h.loadProfile(ctx, m)
	h.recordSignIn(r, m.State())
	http.Redirect(w, r, ret, http.StatusSeeOther)
}

// loadProfile resolves the new identity's profile before redirecting, so
// the guard on the return page sees the administrator flag.
func (h *Handler) loadProfile(ctx context.Context, m *session.Manager) {
	if err := m.RefreshProfile(ctx); err != nil {
		h.Log.Warn("profile load after sign in failed", zap.Error(err))
	}
}

// recordSignIn adds to the sign-in history. Failures are only logged.
func (h *Handler) recordSignIn(r *http.Request, st session.State) {
	if h.SignIns == nil || st.Identity == nil {
		return
	}
	ctx, cancel := timeouts.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Short(), h.Log, "record sign in")
	defer cancel()
	if err := h.SignIns.RecordFrom(ctx, r, st.Identity.ID, st.Identity.Email); err != nil {
		h.Log.Warn("record sign in failed", zap.Error(err))
	}
}

// HandleRegister handles POST /auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse register form failed", err, "بيانات النموذج غير صالحة", "/auth?tab=register")
		return
	}
	email := normalize.Email(r.PostFormValue("email"))
	username := normalize.Username(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("confirm_password")
	ret := navigation.Accept(r.PostFormValue("return"), navigation.AfterSignIn)
	page := authPageData{Tab: tabRegister, Email: email, Username: username, ReturnURL: ret}

	var res inputval.Result
	res.Check(inputval.IsValidEmail(email), "email", "البريد الإلكتروني غير صالح")
	res.Check(username != "", "username", "اسم المستخدم مطلوب")
	res.Check(password == confirm, "confirm_password", "كلمات المرور غير متطابقة")
	res.Check(utf8.RuneCountInString(password) >= backend.MinPasswordLength, "password", "كلمة المرور يجب أن تكون على الأقل 6 أحرف")
	if res.HasErrors() {
		page.Error = res.First()
		h.render(w, r, page)
		return
	}
	if h.Limiter != nil {
		if msg := h.Limiter.CheckSignUp(r); msg != "" {
			h.Log.Warn("sign up throttled", zap.String("ip", ratelimit.ClientIP(r)))
			page.Error = msg
			w.WriteHeader(http.StatusTooManyRequests)
			h.render(w, r, page)
			return
		}
	}

	m := h.manager(w, r)
	if m == nil {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "sign up")
	defer cancel()

	outcome, err := m.SignUp(ctx, email, password, username)
	switch {
	case err != nil && session.KindOf(err) == session.KindPartialSuccess:
		// The account exists; the user can sign in even without a profile.
		http.Redirect(w, r, "/auth?tab=login", http.StatusSeeOther)
	case err != nil:
		h.Log.Info("sign up rejected", zap.String("kind", session.KindOf(err).String()))
		h.render(w, r, page)
	case outcome == session.ConfirmationPending:
		http.Redirect(w, r, "/auth?tab=login", http.StatusSeeOther)
	default:
		h.loadProfile(ctx, m)
		h.recordSignIn(r, m.State())
		http.Redirect(w, r, ret, http.StatusSeeOther)
	}
}
