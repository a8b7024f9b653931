package systemusers

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/app/system/paging"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/app/system/viewdata"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/text"
	"go.uber.org/zap"
)

// matches reports whether p's username or name contains q, ignoring case
// and diacritics.
func matches(p models.Profile, q string) bool {
	if q == "" {
		return true
	}
	q = text.Fold(q)
	return strings.Contains(text.Fold(p.Username), q) ||
		strings.Contains(text.Fold(p.DisplayName()), q)
}

// ServeList handles GET /admin/users.
//
// It lists profiles newest first with an optional username/name search and
// offset paging.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	searchQ := strings.TrimSpace(query.Get(r, "search"))
	self := ""
	if id := auth.State(r).Identity; id != nil {
		self = id.ID
	}

	profiles, err := h.Data.Profiles().List(ctx, paging.MaxRows)
	if err != nil {
		h.Log.Error("list users failed", zap.Error(err))
		auth.Notify(r, notify.Notification{Level: notify.Error, Message: "حدث خطأ أثناء جلب المستخدمين"})
	}

	rows := make([]userRow, 0, len(profiles))
	for _, p := range profiles {
		if !matches(p, searchQ) {
			continue
		}
		rows = append(rows, userRow{
			ID:        p.ID,
			Username:  p.Username,
			FullName:  strings.TrimSpace(p.FirstName + " " + p.LastName),
			IsAdmin:   p.IsAdmin,
			IsSelf:    p.ID == self,
			CreatedAt: p.CreatedAt,
		})
	}
	page, rng := paging.Page(rows, paging.ParseStart(r))

	templates.Render(w, r, "admin_users", listData{
		BaseVM:      viewdata.NewBaseVM(r, "إدارة المستخدمين", "/admin"),
		SearchQuery: searchQ,
		Rows:        page,
		Range:       rng,
	})
}
