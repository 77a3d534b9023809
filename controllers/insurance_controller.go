package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/fitquest/services"
	"github.com/cppla/fitquest/utils"
)

// InsuranceController serves plans, rewards and the user's policies.
type InsuranceController struct {
	plans    *services.PlanService
	rewards  *services.RewardsService
	policies *services.PolicyService
}

// NewInsuranceController creates a new InsuranceController.
func NewInsuranceController(plans *services.PlanService, rewards *services.RewardsService, policies *services.PolicyService) *InsuranceController {
	return &InsuranceController{plans: plans, rewards: rewards, policies: policies}
}

// Plans lists the catalog priced for the caller's rewards.
func (c *InsuranceController) Plans(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	listing, err := c.plans.Plans(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, "load plans")
		return
	}
	utils.Success(ctx, listing)
}

// Rewards returns the caller's rewards, creating an empty record when there is none.
func (c *InsuranceController) Rewards(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	r, err := c.rewards.Get(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, "load rewards")
		return
	}
	utils.Success(ctx, r)
}

// UpdateRewards overwrites credits and/or badges.
func (c *InsuranceController) UpdateRewards(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		Credits *int     `json:"credits"`
		Badges  []string `json:"badges"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	r, err := c.rewards.Update(ctx.Request.Context(), userID, services.RewardsUpdate{
		Credits: req.Credits,
		Badges:  req.Badges,
	})
	if err != nil {
		respondError(ctx, err, "update rewards")
		return
	}
	utils.Success(ctx, r)
}

// Policies lists the caller's policies.
func (c *InsuranceController) Policies(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	list, err := c.policies.List(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, "load policies")
		return
	}
	utils.Success(ctx, list)
}

// AddPolicy records a policy. Dates are "2006-01-02" or RFC 3339.
func (c *InsuranceController) AddPolicy(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		Provider     string `json:"provider" binding:"required"`
		PolicyNumber string `json:"policyNumber"`
		StartDate    string `json:"startDate" binding:"required"`
		EndDate      string `json:"endDate" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid startDate")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid endDate")
		return
	}
	p, err := c.policies.Add(ctx.Request.Context(), userID, services.PolicyInput{
		Provider:     req.Provider,
		PolicyNumber: req.PolicyNumber,
		StartDate:    start,
		EndDate:      end,
	})
	if err != nil {
		respondError(ctx, err, "add policy")
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", p)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
