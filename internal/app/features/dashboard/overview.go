// internal/app/features/dashboard/overview.go
package dashboard

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/viewdata"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Counts is the set of totals shown on the overview.
type Counts struct {
	Users    int64
	Admins   int64
	Listings int64
	// ByCategory is sorted by descending count.
	ByCategory []CategoryCount
}

type CategoryCount struct {
	Category string
	Count    int64
}

// FetchCounts returns the overview totals. Intentionally tolerant: a
// counter that fails is left at 0 and logged.
func (h *Handler) FetchCounts(ctx context.Context) Counts {
	var out Counts

	if n, err := h.Data.Profiles().Count(ctx); err == nil {
		out.Users = n
	} else {
		h.Log.Warn("count users failed", zap.Error(err))
	}
	if n, err := h.Data.Profiles().CountAdmins(ctx); err == nil {
		out.Admins = n
	} else {
		h.Log.Warn("count admins failed", zap.Error(err))
	}
	if n, err := h.Data.Products().Count(ctx); err == nil {
		out.Listings = n
	} else {
		h.Log.Warn("count listings failed", zap.Error(err))
	}

	byCat, err := h.Data.Products().CountByCategory(ctx)
	if err != nil {
		h.Log.Warn("count listings per category failed", zap.Error(err))
	}
	for c, n := range byCat {
		out.ByCategory = append(out.ByCategory, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out.ByCategory, func(i, j int) bool {
		if out.ByCategory[i].Count != out.ByCategory[j].Count {
			return out.ByCategory[i].Count > out.ByCategory[j].Count
		}
		return out.ByCategory[i].Category < out.ByCategory[j].Category
	})
	return out
}

const recentSignIns = 10

// SignInActivity is the overview's sign-in section.
type SignInActivity struct {
	Shown   bool
	LastDay int64
	Recent  []models.SignInRecord
}

// FetchSignIns loads the latest sign-ins. Failures are logged and leave the
// section empty.
func (h *Handler) FetchSignIns(ctx context.Context, now time.Time) SignInActivity {
	if h.SignIns == nil {
		return SignInActivity{}
	}
	out := SignInActivity{Shown: true}
	if n, err := h.SignIns.CountSince(ctx, now.Add(-24*time.Hour)); err == nil {
		out.LastDay = n
	} else {
		h.Log.Warn("count sign-ins failed", zap.Error(err))
	}
	if recs, err := h.SignIns.Recent(ctx, recentSignIns); err == nil {
		out.Recent = recs
	} else {
		h.Log.Warn("load recent sign-ins failed", zap.Error(err))
	}
	return out
}

type overviewData struct {
	viewdata.BaseVM
	Counts
	SignIns SignInActivity
}

// ServeOverview handles GET /admin.
func (h *Handler) ServeOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	data := overviewData{
		BaseVM:  viewdata.NewBaseVM(r, "لوحة التحكم", "/"),
		Counts:  h.FetchCounts(ctx),
		SignIns: h.FetchSignIns(ctx, time.Now()),
	}

	h.Log.Debug("admin overview served", zap.String("user", auth.State(r).DisplayName()))

	templates.Render(w, r, "admin_overview", data)
}
