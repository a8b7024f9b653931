// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/guard"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(r, "Page Title", "/default-back"),
//	}
type BaseVM struct {
	SiteName string

	// Session context (from the browser's session manager)
	Loading     bool
	SignedIn    bool
	IsAdmin     bool
	DisplayName string
	Email       string

	// Page context
	Title       string
	BackURL     string
	CurrentPath string
	Need        string // capability the page requires, watched by session.js

	// CSRF protection
	CSRFToken string

	// Notifications queued since the last page render.
	Notifications []notify.Notification

	SearchBar SearchBar
}

// SearchBar feeds the "searchbar" partial.
type SearchBar struct {
	Query      string
	Category   string
	Location   string
	Categories []string
	Locations  []string
}

// NewSearchBar returns a search bar preset to q, category and location.
// Empty filters select the "all" entries.
func NewSearchBar(q, category, location string) SearchBar {
	if category == "" {
		category = models.AllCategories
	}
	if location == "" {
		location = models.AllLocations
	}
	return SearchBar{
		Query:      q,
		Category:   category,
		Location:   location,
		Categories: append([]string{models.AllCategories}, models.ProductCategories...),
		Locations:  models.SearchLocations,
	}
}

// NewBaseVM creates a fully populated BaseVM for a page. It drains the
// browser's pending notifications, so call it once per rendered page.
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	st := auth.State(r)

	vm := BaseVM{
		SiteName:      models.DefaultSiteName,
		Loading:       st.Loading,
		SignedIn:      st.SignedIn(),
		IsAdmin:       st.IsAdmin(),
		Title:         title,
		BackURL:       httpnav.ResolveBackURL(r, backDefault),
		CurrentPath:   httpnav.CurrentPath(r),
		Need:          guard.NeedFrom(r.Context()).String(),
		CSRFToken:     csrf.Token(r),
		Notifications: auth.Drain(r),
		SearchBar:     NewSearchBar("", "", ""),
	}
	if st.Identity != nil {
		vm.Email = st.Identity.Email
		vm.DisplayName = st.DisplayName()
	}
	return vm
}
