// internal/app/features/profile/handler.go
package profile

import (
	uierrors "github.com/dalemusser/souqhub/internal/app/features/errors"
	"go.uber.org/zap"
)

// Handler owns the signed-in user's profile page. Reads and writes go
// through the browser's session manager, so the navbar sees the new name
// on the very next render.
type Handler struct {
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:    logger,
		ErrLog: errLog,
	}
}
