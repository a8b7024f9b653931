// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend"
	uierrors "github.com/dalemusser/souqhub/internal/app/features/errors"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"go.uber.org/zap"
)

// SignInHistory is the sign-in log shown on the overview.
type SignInHistory interface {
	Recent(ctx context.Context, limit int64) ([]models.SignInRecord, error)
	CountSince(ctx context.Context, t time.Time) (int64, error)
}

// Handler serves the administrator overview and listing management.
type Handler struct {
	Data    backend.Client
	SignIns SignInHistory // nil hides the section
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

const dashboardTimeout = 5 * time.Second

func NewHandler(data backend.Client, signIns SignInHistory, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Data:    data,
		SignIns: signIns,
		ErrLog:  errLog,
		Log:     logger,
	}
}
