package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/fitquest/jobs"
	"github.com/cppla/fitquest/services"
	"github.com/cppla/fitquest/utils"
)

// RollupTrigger runs the rollup on demand. *jobs.Scheduler implements it.
type RollupTrigger interface {
	RunOnce(ctx context.Context) (services.RollupReport, error)
}

// AdminController exposes operator actions.
type AdminController struct {
	rollup RollupTrigger
}

// NewAdminController creates a new AdminController.
func NewAdminController(rollup RollupTrigger) *AdminController {
	return &AdminController{rollup: rollup}
}

// Rollup runs the nightly rollup now and returns its report. The run is detached from
// the request so a dropped client does not abort the batch halfway.
func (a *AdminController) Rollup(ctx *gin.Context) {
	report, err := a.rollup.RunOnce(context.WithoutCancel(ctx.Request.Context()))
	switch {
	case errors.Is(err, jobs.ErrAlreadyRunning):
		utils.Error(ctx, http.StatusConflict, 40902, "rollup already running")
		return
	case err != nil:
		// a cut-short run still reports what it finished
		utils.L().Warn("manual rollup ended early", zap.Error(err), zap.Int("succeeded", report.Succeeded))
		utils.Respond(ctx, http.StatusInternalServerError, 50002, "rollup ended early", report)
		return
	}
	utils.Success(ctx, report)
}
