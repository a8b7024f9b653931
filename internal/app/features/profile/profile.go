// internal/app/features/profile/profile.go
package profile

import (
	"net/http"
	"strings"

	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/inputval"
	"github.com/dalemusser/souqhub/internal/app/system/limits"
	"github.com/dalemusser/souqhub/internal/app/system/normalize"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/app/system/viewdata"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
)

const maxNameLen = 60

// profileData is the view model for the profile page.
type profileData struct {
	viewdata.BaseVM

	Username  string
	FirstName string
	LastName  string
	AvatarURL string
	Initial   string

	Error string
}

func newProfileData(r *http.Request) profileData {
	st := auth.State(r)
	d := profileData{BaseVM: viewdata.NewBaseVM(r, "الملف الشخصي", "/")}
	if p := st.Profile; p != nil {
		d.Username = p.Username
		d.FirstName = p.FirstName
		d.LastName = p.LastName
		d.AvatarURL = p.AvatarURL
	}
	if name := []rune(st.DisplayName()); len(name) > 0 {
		d.Initial = strings.ToUpper(string(name[0]))
	}
	return d
}

// ServeProfile renders the user's profile page.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "profile", newProfileData(r))
}

// HandleUpdate processes the profile form. Every field is sent so clearing
// a name is an update too.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "بيانات النموذج غير صالحة", "/profile")
		return
	}

	username := normalize.Username(r.PostFormValue("username"))
	first := normalize.Name(r.PostFormValue("first_name"))
	last := normalize.Name(r.PostFormValue("last_name"))
	avatar := strings.TrimSpace(r.PostFormValue("avatar_url"))

	var res inputval.Result
	res.Check(username != "", "username", "اسم المستخدم مطلوب")
	res.Check(inputval.MaxLen(username, maxNameLen), "username", "اسم المستخدم طويل جدًا")
	res.Check(inputval.MaxLen(first, maxNameLen) && inputval.MaxLen(last, maxNameLen), "name", "الاسم طويل جدًا")
	res.Check(avatar == "" || inputval.IsValidHTTPURL(avatar), "avatar_url", "رابط الصورة غير صالح")
	if res.HasErrors() {
		d := newProfileData(r)
		d.Username, d.FirstName, d.LastName, d.AvatarURL = username, first, last, avatar
		d.Error = res.First()
		templates.Render(w, r, "profile", d)
		return
	}

	m := auth.Manager(r)
	if m == nil {
		h.ErrLog.LogServerError(w, r, "profile update without browser session", nil, "تعذر تحديث الملف الشخصي", "/")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update profile")
	defer cancel()

	// A failed update has already been queued as a notification.
	_, _ = m.UpdateProfile(ctx, models.ProfileUpdate{
		Username:  &username,
		FirstName: &first,
		LastName:  &last,
		AvatarURL: &avatar,
	})
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
