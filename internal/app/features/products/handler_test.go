package products_test

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend/memory"
	uierrors "github.com/dalemusser/souqhub/internal/app/features/errors"
	"github.com/dalemusser/souqhub/internal/app/features/products"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/souqhub/internal/testutil"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, b *memory.Backend) *products.Handler {
	t.Helper()
	testutil.BootTemplates(t)
	h := products.NewHandler(b.NewClient(&memory.Storage{}), uierrors.NewErrorLogger(zap.NewNop()), zap.NewNop())
	h.Now = func() time.Time { return time.Date(2026, 5, 9, 10, 0, 0, 0, time.UTC) }
	return h
}

func listingFields() map[string]string {
	return map[string]string{
		"title":       "آيفون 13 برو",
		"description": "<p>بحالة ممتازة</p><script>alert(1)</script>",
		"price":       "2500",
		"category":    "إلكترونيات",
		"condition":   "مستعمل - ممتاز",
		"location":    "دبي",
	}
}

// multipartPost builds a multipart listing post, with an image when
// imageName is not empty.
func multipartPost(t *testing.T, br *testutil.Browser, fields map[string]string, imageName string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if imageName != "" {
		fw, err := mw.CreateFormFile("image", imageName)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/product/add", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return br.Attach(req)
}

func onlyProduct(t *testing.T, b *memory.Backend, sellerID string) models.Product {
	t.Helper()
	rows, err := b.NewClient(&memory.Storage{}).Products().ListBySeller(t.Context(), sellerID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one listing, got %d (%v)", len(rows), err)
	}
	return rows[0]
}

func TestHandleAdd_UploadsImage(t *testing.T) {
	b := memory.New()
	h := newHandler(t, b)
	br := testutil.SignedInBrowser(t, b, testutil.MemberUser())

	rec := testutil.NewRecorder()
	h.HandleAdd(rec, multipartPost(t, br, listingFields(), "phone photo.png"))
	rec.AssertRedirect(t, "/my/products")

	p := onlyProduct(t, b, br.User.ID)
	if len(p.Images) != 1 || !strings.HasPrefix(p.Images[0], "https://blobs.test/product-images/products/2026/05/") {
		t.Fatalf("images = %v", p.Images)
	}
	if !strings.HasSuffix(p.Images[0], "-phone_photo.png") {
		t.Errorf("key must keep the sanitized file name: %s", p.Images[0])
	}
	if strings.Contains(p.Description, "script") {
		t.Errorf("description not sanitized: %q", p.Description)
	}
	keys := b.Blobs().Keys(models.ProductImagesBucket)
	if len(keys) != 1 {
		t.Errorf("bucket keys = %v", keys)
	}
}

func TestHandleAdd_UploadFailureFallsBackToURL(t *testing.T) {
	b := memory.New()
	h := newHandler(t, b)
	br := testutil.SignedInBrowser(t, b, testutil.MemberUser())
	b.Fail(memory.OpStorage, errors.New("storage offline"))

	fields := listingFields()
	fields["image_url"] = "https://img.example.com/a.jpg"
	rec := testutil.NewRecorder()
	h.HandleAdd(rec, multipartPost(t, br, fields, "a.png"))
	rec.AssertRedirect(t, "/my/products")

	p := onlyProduct(t, b, br.User.ID)
	if len(p.Images) != 1 || p.Images[0] != "https://img.example.com/a.jpg" {
		t.Errorf("images = %v", p.Images)
	}

	var warned bool
	for _, n := range br.Notes() {
		if n.Level == notify.Warning {
			warned = true
		}
	}
	if !warned {
		t.Error("seller must be told the upload failed")
	}
}

func TestHandleAdd_UploadFailureWithoutURL(t *testing.T) {
	b := memory.New()
	h := newHandler(t, b)
	br := testutil.SignedInBrowser(t, b, testutil.MemberUser())
	b.Fail(memory.OpStorage, errors.New("storage offline"))

	rec := testutil.NewRecorder()
	h.HandleAdd(rec, multipartPost(t, br, listingFields(), "a.png"))
	rec.AssertRedirect(t, "/my/products")

	if p := onlyProduct(t, b, br.User.ID); len(p.Images) != 0 {
		t.Errorf("images = %v", p.Images)
	}
}

func TestHandleAdd_URLEncodedForm(t *testing.T) {
	b := memory.New()
	h := newHandler(t, b)
	br := testutil.SignedInBrowser(t, b, testutil.MemberUser())

	form := url.Values{}
	for k, v := range listingFields() {
		form.Set(k, v)
	}
	rec := testutil.NewRecorder()
	h.HandleAdd(rec, br.PostForm("/product/add", form))
	rec.AssertRedirect(t, "/my/products")
	onlyProduct(t, b, br.User.ID)
}

func TestHandleAdd_ValidationRerendersForm(t *testing.T) {
	b := memory.New()
	h := newHandler(t, b)
	br := testutil.SignedInBrowser(t, b, testutil.MemberUser())

	fields := listingFields()
	fields["price"] = "-5"
	rec := testutil.NewRecorder()
	h.HandleAdd(rec, multipartPost(t, br, fields, ""))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "السعر غير صالح")
	rec.AssertContains(t, "آيفون 13 برو")
	if n := b.CallCount(memory.OpProductInsert); n != 0 {
		t.Errorf("insert called %d times", n)
	}
}

func TestServeDetail(t *testing.T) {
	b := memory.New()
	h := newHandler(t, b)
	b.SeedProfile(models.Profile{ID: "seller-1", Username: "abu_ali"})
	p := b.SeedProduct(models.Product{Title: "دراجة هوائية", Description: "سطر أول\nسطر ثاني", SellerID: "seller-1"})

	br := testutil.NewBrowser(t, b)
	rec := testutil.NewRecorder()
	h.ServeDetail(rec, testutil.WithChiURLParam(br.Get("/product/"+p.ID), "id", p.ID))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "دراجة هوائية")
	rec.AssertContains(t, "abu_ali")
	rec.AssertContains(t, "سطر أول<br>سطر ثاني")
}

func TestServeDetail_NotFound(t *testing.T) {
	b := memory.New()
	h := newHandler(t, b)

	rec := testutil.NewRecorder()
	h.ServeDetail(rec, testutil.WithChiURLParam(testutil.NewBrowser(t, b).Get("/product/x"), "id", "x"))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleDeleteMine(t *testing.T) {
	b := memory.New()
	h := newHandler(t, b)
	br := testutil.SignedInBrowser(t, b, testutil.MemberUser())
	mine := b.SeedProduct(models.Product{Title: "mine", SellerID: br.User.ID})
	theirs := b.SeedProduct(models.Product{Title: "theirs", SellerID: "someone-else"})

	rec := testutil.NewRecorder()
	req := testutil.WithChiURLParam(br.PostForm("/my/products/"+theirs.ID+"/delete", nil), "id", theirs.ID)
	h.HandleDeleteMine(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	req = testutil.WithChiURLParam(br.PostForm("/my/products/"+mine.ID+"/delete", nil), "id", mine.ID)
	h.HandleDeleteMine(rec, req)
	rec.AssertRedirect(t, "/my/products")

	if n, _ := b.NewClient(&memory.Storage{}).Products().Count(t.Context()); n != 1 {
		t.Errorf("remaining listings = %d", n)
	}
}

func TestRoutes_AddRequiresSignIn(t *testing.T) {
	b := memory.New()
	r := products.Routes(newHandler(t, b))

	rec := httptest.NewRecorder()
	req := testutil.NewBrowser(t, b).Get("/add")
	req.Header.Set("Accept", "text/html")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther || !strings.HasPrefix(rec.Header().Get("Location"), "/auth") {
		t.Errorf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}
