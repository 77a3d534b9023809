package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cppla/fitquest/config"
	"github.com/cppla/fitquest/controllers"
	"github.com/cppla/fitquest/jobs"
	"github.com/cppla/fitquest/routes"
	"github.com/cppla/fitquest/services"
	"github.com/cppla/fitquest/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	utils.InitRedis(cfg)
	repo := config.OpenStore(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(reg)

	// Without an API key both generators stay nil and the fixed lists are used
	var taskGen, planGen services.TextGenerator
	if cfg.GeminiAPIKey != "" {
		gc, err := utils.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout())
		if err != nil {
			utils.Logger.Warn("gemini client unavailable, using fallback tasks and plans", zap.Error(err))
		} else {
			taskGen = gc
			planGen = gc.WithModel(cfg.GeminiPlansModel)
		}
	}

	loc := cfg.Location()
	tokens := utils.NewTokenIssuer(cfg.JWTSecret)
	planner := services.NewPlanner(taskGen, services.DefaultRand(), loc, utils.Logger, metrics)

	accounts := services.NewAccountService(repo, planner, tokens, cfg.TokenTTL(), cfg.LongTokenTTL(), utils.Logger)
	accounts.ReserveUsernames(cfg.AdminUsernames...)
	if cfg.AdminPassword != "" {
		n, err := accounts.ProvisionReserved(ctx, cfg.AdminPassword, cfg.AdminEmailDomain)
		if err != nil {
			utils.Logger.Error("failed to provision admin accounts", zap.Error(err))
		} else if n > 0 {
			utils.Logger.Info("provisioned admin accounts", zap.Int("count", n))
		}
	}
	rollup := services.NewRollupService(repo, planner, utils.Logger, metrics)
	plans := services.NewPlanService(repo, planGen, utils.NewRedisPlanCache(), cfg.PlanCacheTTL(), utils.Logger, metrics)

	scheduler := jobs.NewScheduler(rollup, jobs.Schedule{
		Hour:     cfg.RollupHour,
		Minute:   cfg.RollupMinute,
		Location: loc,
		Timeout:  cfg.RollupBatchTimeout(),
	}, nil, utils.Logger)
	if cfg.RollupEnabled {
		scheduler.Start(ctx)
	}

	captcha := utils.NewCaptcha(utils.NewCaptchaStore(0))
	r := routes.SetupRouter(cfg, routes.Dependencies{
		Auth:       controllers.NewAuthController(accounts, utils.NewRegisterGuard(cfg), captcha, cfg.RegisterCaptchaEnabled),
		User:       controllers.NewUserController(accounts, services.NewProfileService(repo, loc)),
		Insurance:  controllers.NewInsuranceController(plans, services.NewRewardsService(repo), services.NewPolicyService(repo)),
		Admin:      controllers.NewAdminController(scheduler),
		Tokens:     tokens,
		Gatherer:   reg,
		Registerer: reg,
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, scheduler.Stop, utils.CloseRedis); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
