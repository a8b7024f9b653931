package browse_test

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend/memory"
	"github.com/dalemusser/souqhub/internal/app/features/browse"
	uierrors "github.com/dalemusser/souqhub/internal/app/features/errors"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/souqhub/internal/testutil"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*browse.Handler, *memory.Backend, *testutil.Browser) {
	t.Helper()
	testutil.BootTemplates(t)
	b := memory.New()
	h := browse.NewHandler(b.NewClient(&memory.Storage{}), uierrors.NewErrorLogger(zap.NewNop()), zap.NewNop())
	return h, b, testutil.NewBrowser(t, b)
}

func seed(b *memory.Backend) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.SeedProduct(models.Product{Title: "تويوتا كامري", Description: "سيارة عائلية", Category: "سيارات", Location: "دبي", CreatedAt: base})
	b.SeedProduct(models.Product{Title: "شقة غرفتين", Description: "قريبة من المترو", Category: "عقارات", Location: "الشارقة", CreatedAt: base.Add(time.Hour)})
	b.SeedProduct(models.Product{Title: "هوندا سيفيك", Description: "سيارة اقتصادية", Category: "سيارات", Location: "الشارقة", CreatedAt: base.Add(2 * time.Hour)})
}

func get(h http.HandlerFunc, r *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	h(rec, r)
	return rec
}

func TestServeSearch_TitleOrDescriptionNewestFirst(t *testing.T) {
	h, b, br := setup(t)
	seed(b)

	rec := get(h.ServeSearch, br.Get("/search?q="+url.QueryEscape("سيارة")))
	rec.AssertStatus(t, http.StatusOK)
	body := rec.Body.String()
	civic, camry := strings.Index(body, "هوندا سيفيك"), strings.Index(body, "تويوتا كامري")
	if civic < 0 || camry < 0 || civic > camry {
		t.Errorf("expected both cars, newest first (civic %d, camry %d)", civic, camry)
	}
	if strings.Contains(body, "شقة غرفتين") {
		t.Error("apartment must not match")
	}
}

func TestServeSearch_LocationFilter(t *testing.T) {
	h, b, br := setup(t)
	seed(b)

	v := url.Values{"q": {"سيارة"}, "location": {"دبي"}}
	body := get(h.ServeSearch, br.Get("/search?"+v.Encode())).Body.String()
	if !strings.Contains(body, "تويوتا كامري") || strings.Contains(body, "هوندا سيفيك") {
		t.Error("location filter not applied")
	}
}

func TestServeSearch_EmptyQueryShowsNothing(t *testing.T) {
	h, b, br := setup(t)
	seed(b)

	rec := get(h.ServeSearch, br.Get("/search"))
	rec.AssertContains(t, "لم يتم العثور على نتائج")
	if n := b.CallCount(memory.OpProductSearch); n != 0 {
		t.Errorf("backend searched %d times", n)
	}
}

func TestServeSearch_BackendError(t *testing.T) {
	h, b, br := setup(t)
	b.Fail(memory.OpProductSearch, errors.New("down"))

	rec := get(h.ServeSearch, br.Get("/search?q=abc"))
	rec.AssertStatus(t, http.StatusInternalServerError)
}

func TestServeCategory(t *testing.T) {
	h, b, br := setup(t)
	seed(b)

	req := testutil.WithChiURLParam(br.Get("/categories/cars"), "category", "cars")
	rec := get(h.ServeCategory, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "تويوتا كامري")
	rec.AssertContains(t, "الماركة")
	if strings.Contains(rec.Body.String(), "شقة غرفتين") {
		t.Error("real estate listing on cars page")
	}
}

func TestServeCategory_MarketListsEverything(t *testing.T) {
	h, b, br := setup(t)
	seed(b)

	req := testutil.WithChiURLParam(br.Get("/categories/market"), "category", "market")
	rec := get(h.ServeCategory, req)
	rec.AssertContains(t, "شقة غرفتين")
	rec.AssertContains(t, "هوندا سيفيك")
}
