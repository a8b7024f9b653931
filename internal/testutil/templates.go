package testutil

import (
	"sync"
	"testing"

	_ "github.com/dalemusser/souqhub/internal/app/features/errors"
	_ "github.com/dalemusser/souqhub/internal/app/features/shared/views"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

var (
	bootOnce sync.Once
	bootErr  error
)

// BootTemplates boots the template engine once per test binary with every
// template set registered so far. Import the feature under test before
// calling it so its set is included.
func BootTemplates(t *testing.T) {
	t.Helper()
	bootOnce.Do(func() {
		eng := templates.New(false)
		if bootErr = eng.Boot(zap.NewNop()); bootErr == nil {
			templates.UseEngine(eng, zap.NewNop())
		}
	})
	if bootErr != nil {
		t.Fatalf("template boot: %v", bootErr)
	}
}
