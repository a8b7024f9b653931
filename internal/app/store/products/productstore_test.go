package productstore_test

import (
	"errors"
	"testing"

	productstore "github.com/dalemusser/souqhub/internal/app/store/products"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/souqhub/internal/testutil"
)

func TestStore_TitleContains(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	store := productstore.New(db)

	fx.CreateProduct(ctx, "iPhone 13 Pro", "إلكترونيات", "s1")
	fx.CreateProduct(ctx, "IPHONE case", "إلكترونيات", "s1")
	fx.CreateProduct(ctx, "Sofa", "أثاث", "s1")
	fx.CreateProduct(ctx, "a.b (special)", "أخرى", "s1")

	got, err := store.TitleContains(ctx, "iphone", 5)
	if err != nil {
		t.Fatalf("TitleContains failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	for _, s := range got {
		if s.ID == "" || s.Category == "" {
			t.Errorf("summary missing fields: %+v", s)
		}
	}

	limited, _ := store.TitleContains(ctx, "iphone", 1)
	if len(limited) != 1 {
		t.Errorf("limit not applied, got %d rows", len(limited))
	}

	// Regex metacharacters in the term are literal.
	special, _ := store.TitleContains(ctx, "(special", 5)
	if len(special) != 1 {
		t.Errorf("expected literal match, got %d rows", len(special))
	}
	none, _ := store.TitleContains(ctx, "a.c", 5)
	if len(none) != 0 {
		t.Errorf("dot should not act as a wildcard, got %d rows", len(none))
	}
}

func TestStore_InsertUpdateDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := productstore.New(db)

	p, err := store.Insert(ctx, models.Product{
		Title:     "كنبة",
		Price:     250,
		Category:  "أثاث",
		Condition: models.DefaultCondition,
		Location:  "الرياض",
		SellerID:  "s1",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if p.ID == "" || p.Images == nil {
		t.Fatalf("Insert should assign id and empty images: %+v", p)
	}

	p.Price = 200
	p.Images = []string{"https://cdn.example.com/1.png"}
	if err := store.Update(ctx, p); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ := store.Get(ctx, p.ID)
	if got.Price != 200 || got.MainImage() != "https://cdn.example.com/1.png" {
		t.Errorf("update not applied: %+v", got)
	}

	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, p.ID); !errors.Is(err, productstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, p.ID); !errors.Is(err, productstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStore_ListingQueries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	store := productstore.New(db)

	fx.CreateProduct(ctx, "تويوتا كامري", "سيارات", "s1")
	fx.CreateProduct(ctx, "شقة", "عقارات", "s2")
	fx.CreateProduct(ctx, "هوندا", "سيارات", "s2")

	cars, err := store.ListByCategory(ctx, "سيارات", 0)
	if err != nil {
		t.Fatalf("ListByCategory failed: %v", err)
	}
	if len(cars) != 2 {
		t.Errorf("expected 2 cars, got %d", len(cars))
	}
	all, _ := store.ListByCategory(ctx, "", 0)
	if len(all) != 3 {
		t.Errorf("empty category should list all, got %d", len(all))
	}

	mine, _ := store.ListBySeller(ctx, "s2")
	if len(mine) != 2 {
		t.Errorf("expected 2 listings for s2, got %d", len(mine))
	}

	// Fixture descriptions are "وصف <title>".
	found, _ := store.Search(ctx, "وصف شقة", 10)
	if len(found) != 1 {
		t.Errorf("Search by description: got %d rows", len(found))
	}

	counts, err := store.CountByCategory(ctx)
	if err != nil {
		t.Fatalf("CountByCategory failed: %v", err)
	}
	if counts["سيارات"] != 2 || counts["عقارات"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
