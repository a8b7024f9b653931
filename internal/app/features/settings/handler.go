// internal/app/features/settings/handler.go
package settings

import (
	"github.com/dalemusser/souqhub/internal/app/backend"
	uierrors "github.com/dalemusser/souqhub/internal/app/features/errors"
	"go.uber.org/zap"
)

// Handler owns the per-user settings page.
type Handler struct {
	Data   backend.Client
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler constructs a Handler bound to the shared backend client.
func NewHandler(data backend.Client, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Data:   data,
		Log:    logger,
		ErrLog: errLog,
	}
}
