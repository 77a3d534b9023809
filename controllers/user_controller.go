package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/services"
	"github.com/cppla/fitquest/utils"
)

// UserController serves the authenticated user's own views.
type UserController struct {
	accounts *services.AccountService
	profiles *services.ProfileService
	now      func() time.Time
}

// NewUserController creates a new UserController.
func NewUserController(accounts *services.AccountService, profiles *services.ProfileService) *UserController {
	return &UserController{accounts: accounts, profiles: profiles, now: time.Now}
}

func identity(user *models.User) gin.H {
	return gin.H{
		"user_id":  user.UserID,
		"username": user.Username,
		"email":    user.Email,
	}
}

// Profile returns the identity fields.
func (u *UserController) Profile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	user, err := u.accounts.User(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, "load profile")
		return
	}
	utils.Success(ctx, identity(user))
}

// UpdateProfile changes the username.
func (u *UserController) UpdateProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	user, err := u.accounts.UpdateUsername(ctx.Request.Context(), userID, req.Username)
	if err != nil {
		respondError(ctx, err, "update profile")
		return
	}
	utils.Success(ctx, identity(user))
}

// Details returns identity plus account timestamps.
func (u *UserController) Details(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	user, err := u.accounts.User(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, "load user details")
		return
	}
	out := identity(user)
	out["created_at"] = user.CreatedAt
	out["last_login"] = user.LastLogin
	utils.Success(ctx, out)
}

// Progress returns today's dashboard.
func (u *UserController) Progress(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	progress, err := u.profiles.Progress(ctx.Request.Context(), userID, u.now())
	if err != nil {
		respondError(ctx, err, "load progress")
		return
	}
	utils.Success(ctx, progress)
}

// FullProfile returns everything stored for the user.
func (u *UserController) FullProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	profile, err := u.profiles.FullProfile(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, "load full profile")
		return
	}
	utils.Success(ctx, profile)
}
