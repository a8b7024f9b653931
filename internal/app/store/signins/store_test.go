package signins_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/souqhub/internal/app/store/signins"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/souqhub/internal/testutil"
)

func TestStore_RecordFromAndRecent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := signins.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	old := time.Now().Add(-48 * time.Hour).UTC()
	if err := store.Create(ctx, models.SignInRecord{UserID: "u1", Email: "old@example.com", CreatedAt: old}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	r.Header.Set("User-Agent", "souq-test")
	if err := store.RecordFrom(ctx, r, "u2", "new@example.com"); err != nil {
		t.Fatalf("RecordFrom failed: %v", err)
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d records, want 2", len(recent))
	}
	got := recent[0]
	if got.Email != "new@example.com" || got.IP != "203.0.113.9" || got.UserAgent != "souq-test" {
		t.Errorf("newest record = %+v", got)
	}
	if got.ID == "" {
		t.Error("expected an id to be assigned")
	}

	n, err := store.CountSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CountSince failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CountSince = %d, want 1", n)
	}
}

func TestStore_RecentLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := signins.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := store.Create(ctx, models.SignInRecord{UserID: "u1"}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("got %d records, want 2", len(recent))
	}
}
