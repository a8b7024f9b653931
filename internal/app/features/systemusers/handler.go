// internal/app/features/systemusers/handler.go
package systemusers

import (
	"context"

	"github.com/dalemusser/souqhub/internal/app/backend"
	uierrors "github.com/dalemusser/souqhub/internal/app/features/errors"
	"go.uber.org/zap"
)

// RoleChanged is called after a user's administrator flag changes so live
// sessions can pick it up.
type RoleChanged func(ctx context.Context, userID string) int

type Handler struct {
	Data          backend.Client
	Log           *zap.Logger
	ErrLog        *uierrors.ErrorLogger
	OnRoleChanged RoleChanged
}

// NewHandler constructs the user management handler. onRoleChanged may be
// nil.
func NewHandler(data backend.Client, errLog *uierrors.ErrorLogger, onRoleChanged RoleChanged, logger *zap.Logger) *Handler {
	return &Handler{
		Data:          data,
		Log:           logger,
		ErrLog:        errLog,
		OnRoleChanged: onRoleChanged,
	}
}
