// internal/app/features/settings/settings.go
package settings

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/limits"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/app/system/viewdata"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Sections of the settings page; each form saves one.
const (
	SectionNotifications = "notifications"
	SectionPrivacy       = "privacy"
	SectionInterface     = "interface"
)

var sections = []string{SectionNotifications, SectionPrivacy, SectionInterface}

type option struct {
	Value string
	Label string
}

type settingsVM struct {
	viewdata.BaseVM
	Tab      string
	Settings models.UserSettings

	Visibilities []option
	Languages    []option
	Themes       []option
	FontSizes    []option
}

var (
	visibilityLabels = map[string]string{
		"public":     "عام - يمكن لأي شخص الوصول",
		"registered": "مسجل - المستخدمين المسجلين فقط",
		"private":    "خاص - أنت فقط",
	}
	languageLabels = map[string]string{"ar": "العربية", "fr": "الفرنسية", "en": "الإنجليزية"}
	themeLabels    = map[string]string{"light": "فاتح", "dark": "داكن", "system": "حسب نظام التشغيل"}
	fontSizeLabels = map[string]string{"small": "صغير", "medium": "متوسط", "large": "كبير"}
)

func options(values []string, labels map[string]string) []option {
	out := make([]option, 0, len(values))
	for _, v := range values {
		out = append(out, option{Value: v, Label: labels[v]})
	}
	return out
}

func userID(r *http.Request) string {
	if id := auth.State(r).Identity; id != nil {
		return id.ID
	}
	return ""
}

// load returns the user's stored settings, or the defaults for a user who
// never saved any.
func (h *Handler) load(ctx context.Context, uid string) (models.UserSettings, error) {
	s, err := h.Data.Settings().Get(ctx, uid)
	if errors.Is(err, backend.ErrNotFound) {
		return models.DefaultUserSettings(uid), nil
	}
	return s, err
}

// ServeSettings renders the settings page. A failed load shows the defaults
// so the page stays usable.
func (h *Handler) ServeSettings(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load settings")
	defer cancel()

	s, err := h.load(ctx, uid)
	if err != nil {
		h.Log.Warn("load settings failed", zap.String("user_id", uid), zap.Error(err))
		auth.Notify(r, notify.Notification{Level: notify.Error, Message: "تعذر تحميل الإعدادات"})
		s = models.DefaultUserSettings(uid)
	}

	tab := query.Get(r, "tab")
	if !slices.Contains(sections, tab) {
		tab = SectionNotifications
	}
	templates.Render(w, r, "settings", settingsVM{
		BaseVM:       viewdata.NewBaseVM(r, "الإعدادات", "/"),
		Tab:          tab,
		Settings:     s,
		Visibilities: options(models.ProfileVisibilities, visibilityLabels),
		Languages:    options(models.Languages, languageLabels),
		Themes:       options(models.Themes, themeLabels),
		FontSizes:    options(models.FontSizes, fontSizeLabels),
	})
}

func checked(r *http.Request, name string) bool {
	return r.PostFormValue(name) == "on"
}

// applySection copies one section of the posted form onto s. It reports
// false when the form carries a value outside the allowed set.
func applySection(s *models.UserSettings, section string, r *http.Request) bool {
	switch section {
	case SectionNotifications:
		s.Notifications = models.NotificationSettings{
			EmailNotifications: checked(r, "email_notifications"),
			PushNotifications:  checked(r, "push_notifications"),
			MarketingEmails:    checked(r, "marketing_emails"),
			NewMessage:         checked(r, "new_message"),
			ProductUpdates:     checked(r, "product_updates"),
		}
	case SectionPrivacy:
		vis := r.PostFormValue("profile_visibility")
		if !slices.Contains(models.ProfileVisibilities, vis) {
			return false
		}
		s.Privacy = models.PrivacySettings{
			ProfileVisibility: vis,
			ShowPhoneNumber:   checked(r, "show_phone_number"),
			ShowEmail:         checked(r, "show_email"),
		}
	case SectionInterface:
		lang, theme, size := r.PostFormValue("language"), r.PostFormValue("theme"), r.PostFormValue("font_size")
		if !slices.Contains(models.Languages, lang) || !slices.Contains(models.Themes, theme) || !slices.Contains(models.FontSizes, size) {
			return false
		}
		s.Interface = models.InterfaceSettings{Language: lang, Theme: theme, FontSize: size}
	default:
		return false
	}
	return true
}

// HandleSettings saves the posted section and returns to its tab.
func (h *Handler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "بيانات النموذج غير صالحة", "/settings")
		return
	}
	section := r.PostFormValue("section")
	back := "/settings?tab=" + section
	if !slices.Contains(sections, section) {
		back = "/settings"
	}

	uid := userID(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "save settings")
	defer cancel()

	s, err := h.load(ctx, uid)
	if err != nil {
		h.Log.Warn("load settings failed", zap.String("user_id", uid), zap.Error(err))
		auth.Notify(r, notify.Notification{Level: notify.Error, Message: "فشل حفظ الإعدادات"})
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	if !applySection(&s, section, r) {
		auth.Notify(r, notify.Notification{Level: notify.Warning, Message: "قيمة غير صالحة في الإعدادات"})
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	now := time.Now().UTC()
	s.UserID = uid
	s.UpdatedAt = &now
	if err := h.Data.Settings().Save(ctx, s); err != nil {
		h.Log.Error("save settings failed", zap.String("user_id", uid), zap.String("section", section), zap.Error(err))
		auth.Notify(r, notify.Notification{Level: notify.Error, Message: "فشل حفظ الإعدادات"})
	} else {
		auth.Notify(r, notify.Notification{Level: notify.Success, Message: "تم حفظ الإعدادات بنجاح"})
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}
