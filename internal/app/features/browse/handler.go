// Package browse serves search results and category pages.
package browse

import (
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/souqhub/internal/app/features/errors"
	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/system/normalize"
	"github.com/dalemusser/souqhub/internal/app/system/paging"
	"github.com/dalemusser/souqhub/internal/app/system/search"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/app/system/viewdata"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Data   backend.Client
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(data backend.Client, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Data: data, ErrLog: errLog, Log: logger}
}

type resultsData struct {
	viewdata.BaseVM
	Heading  string
	Query    string
	Products []models.Product
	Filters  []models.FilterGroup
	Range    paging.Range
	// PageURL is the results URL without the start parameter.
	PageURL string
}

// ServeSearch handles GET /search?q=&category=&location=.
// Listings whose title or description contains q, newest first. An empty q
// shows no results.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	q := normalize.QueryParam(query.Get(r, "q"))
	filters := search.Filters{
		Category: query.Get(r, "category"),
		Location: query.Get(r, "location"),
	}

	var found []models.Product
	if q != "" {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "search listings")
		defer cancel()

		var err error
		found, err = h.Data.Products().Search(ctx, q, paging.MaxRows)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "search listings failed", err, "تعذر تحميل نتائج البحث", "/")
			return
		}
		found = filters.Apply(found)
	}

	rows, rg := paging.Page(found, paging.ParseStart(r))
	vm := viewdata.NewBaseVM(r, "نتائج البحث", "/")
	vm.SearchBar = viewdata.NewSearchBar(q, filters.Category, filters.Location)

	templates.Render(w, r, "browse_results", resultsData{
		BaseVM:   vm,
		Heading:  "نتائج البحث: " + q,
		Query:    q,
		Products: rows,
		Filters:  models.FilterGroups(""),
		Range:    rg,
		PageURL:  pageURL(r),
	})
}

// ServeCategory handles GET /categories/{category}. The sidebar filter
// groups are shown but do not narrow the listing query.
func (h *Handler) ServeCategory(w http.ResponseWriter, r *http.Request) {
	slug := strings.ToLower(chi.URLParam(r, "category"))
	title := models.CategoryTitle(slug)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "category listings")
	defer cancel()

	found, err := h.Data.Products().ListByCategory(ctx, models.CategoryProductFilter(slug), paging.MaxRows)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list category failed", err, "تعذر تحميل الإعلانات", "/")
		return
	}

	rows, rg := paging.Page(found, paging.ParseStart(r))
	templates.Render(w, r, "browse_results", resultsData{
		BaseVM:   viewdata.NewBaseVM(r, title, "/"),
		Heading:  title,
		Products: rows,
		Filters:  models.FilterGroups(slug),
		Range:    rg,
		PageURL:  pageURL(r),
	})
}

func pageURL(r *http.Request) string {
	v := r.URL.Query()
	v.Del("start")
	if len(v) == 0 {
		return r.URL.Path + "?"
	}
	return r.URL.Path + "?" + v.Encode() + "&"
}
