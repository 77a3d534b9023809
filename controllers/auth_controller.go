package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/fitquest/middleware"
	"github.com/cppla/fitquest/services"
	"github.com/cppla/fitquest/utils"
)

// AuthController handles registration, login, logout and captchas.
type AuthController struct {
	accounts        *services.AccountService
	guard           *utils.RegisterGuard
	captcha         *utils.Captcha
	captchaRequired bool
}

// NewAuthController creates a new AuthController. When captchaRequired is set, Register
// demands a solved captcha from GET /api/captcha.
func NewAuthController(accounts *services.AccountService, guard *utils.RegisterGuard, captcha *utils.Captcha, captchaRequired bool) *AuthController {
	return &AuthController{
		accounts:        accounts,
		guard:           guard,
		captcha:         captcha,
		captchaRequired: captchaRequired,
	}
}

// Register creates the account, seeds its first month and returns a token.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Username      string `json:"username" binding:"required"`
		Email         string `json:"email" binding:"required"`
		Password      string `json:"password" binding:"required"`
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	if a.captchaRequired && !a.captcha.Verify(strings.TrimSpace(req.CaptchaID), strings.TrimSpace(req.CaptchaAnswer)) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "captcha is wrong or expired")
		return
	}

	// Anti-abuse: ban check, cooldown, per-IP daily limit
	rctx := ctx.Request.Context()
	ip := ctx.ClientIP()
	if a.guard.IsBanned(rctx, ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42920, "this IP is temporarily blocked, try again later")
		return
	}
	if !a.guard.CooldownTry(rctx, ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many requests, try again later")
		return
	}
	if !a.guard.DailyLimitCheck(rctx, ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily registration limit reached")
		return
	}

	res, err := a.accounts.Register(rctx, services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		a.guard.RecordFailure(rctx, ip)
		respondError(ctx, err, "register user")
		return
	}
	a.guard.DailyIncrement(rctx, ip)

	utils.Success(ctx, res)
}

// Login verifies credentials by username or email and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
		Remember bool   `json:"remember"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	res, err := a.accounts.Login(ctx.Request.Context(), services.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Remember: req.Remember,
	})
	if err != nil {
		respondError(ctx, err, "log in")
		return
	}
	utils.Success(ctx, res)
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	if v, ok := ctx.Get(middleware.ContextClaimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
	}

	utils.BlacklistToken(ctx.Request.Context(), token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Captcha returns a fresh captcha id and base64 image (data URI).
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := a.captcha.Generate()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"captcha_id": id, "captcha_image": b64})
}
