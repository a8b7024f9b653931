package systemusers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandleToggleAdmin handles POST /admin/users/{id}/admin. An administrator
// cannot remove their own flag, which keeps at least one admin around.
func (h *Handler) HandleToggleAdmin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := "/admin/users"

	if me := auth.State(r).Identity; me != nil && me.ID == id {
		auth.Notify(r, notify.Notification{Level: notify.Warning, Message: "لا يمكنك تغيير صلاحيات حسابك"})
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Data.Profiles().Get(ctx, id)
	if errors.Is(err, backend.ErrNotFound) {
		auth.Notify(r, notify.Notification{Level: notify.Warning, Message: "المستخدم غير موجود"})
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	if err == nil {
		err = h.Data.Profiles().SetAdmin(ctx, id, !p.IsAdmin)
	}
	if err != nil {
		h.Log.Error("toggle admin failed", zap.String("user_id", id), zap.Error(err))
		auth.Notify(r, notify.Notification{Level: notify.Error, Message: "حدث خطأ أثناء تحديث صلاحيات المستخدم"})
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	refreshed := 0
	if h.OnRoleChanged != nil {
		refreshed = h.OnRoleChanged(ctx, id)
	}
	h.Log.Info("admin flag changed",
		zap.String("user_id", id),
		zap.Bool("is_admin", !p.IsAdmin),
		zap.Int("live_sessions", refreshed))
	auth.Notify(r, notify.Notification{Level: notify.Success, Message: "تم تحديث صلاحيات المستخدم بنجاح"})
	http.Redirect(w, r, back, http.StatusSeeOther)
}
