// Package products serves listing pages: detail, create, and the seller's
// own listings.
package products

import (
	"net/http"
	"time"

	uierrors "github.com/dalemusser/souqhub/internal/app/features/errors"
	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Data   backend.Client
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
	Now    func() time.Time
}

func NewHandler(data backend.Client, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Data:   data,
		ErrLog: errLog,
		Log:    logger,
		Now:    time.Now,
	}
}

// sellerID is the signed-in user's id; routes that call it are guarded.
func sellerID(r *http.Request) string {
	if id := auth.State(r).Identity; id != nil {
		return id.ID
	}
	return ""
}
