package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/fitquest/middleware"
	"github.com/cppla/fitquest/services"
	"github.com/cppla/fitquest/utils"
)

// currentUserID returns the authenticated user's id or writes a 401.
func currentUserID(ctx *gin.Context) (string, bool) {
	id := ctx.GetString(middleware.ContextUserIDKey)
	if id == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return "", false
	}
	return id, true
}

// respondError maps service errors to status and sub-code. Anything unknown is logged and
// answered with a generic 500.
func respondError(ctx *gin.Context, err error, action string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.Error(ctx, http.StatusBadRequest, 40001, verr.Msg)
	case errors.Is(err, services.ErrInvalidInput):
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid username or password")
	case errors.Is(err, services.ErrUserNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
	case errors.Is(err, services.ErrEmailTaken), errors.Is(err, services.ErrUsernameTaken):
		utils.Error(ctx, http.StatusConflict, 40901, err.Error())
	default:
		utils.L().Error(action+" failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to "+action)
	}
}
