package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/sree030289/spendy-server/api/rest"
	"github.com/sree030289/spendy-server/api/sse"
	"github.com/sree030289/spendy-server/audit"
	"github.com/sree030289/spendy-server/cache"
	"github.com/sree030289/spendy-server/chat"
	"github.com/sree030289/spendy-server/config"
	dbadapter "github.com/sree030289/spendy-server/db"
	"github.com/sree030289/spendy-server/ledger"
	mw "github.com/sree030289/spendy-server/middleware"
	"github.com/sree030289/spendy-server/model"
	"github.com/sree030289/spendy-server/notify"
	"github.com/sree030289/spendy-server/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(nil)

	// ---- Cache / PubSub ----
	cacheConfig := cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Services ----
	chatSvc := chat.New(db, logger)
	notifySvc := notify.New(db, pubsub, c, logger)
	ledgerSvc := ledger.New(db, chatSvc, notifySvc, cfg.Ledger, logger)

	// ---- Periodic Scheduler Tasks ----
	sweep := cfg.Ledger.ReminderSweep
	if sweep <= 0 {
		sweep = time.Hour
	}
	sched.AddTicker("payment_reminders", sweep, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		sent, err := notifySvc.SendPaymentReminders(ctx, cfg.Ledger.ReminderAge)
		if err != nil {
			logger.Error("payment reminder sweep failed", zap.Error(err))
			return
		}
		if sent > 0 {
			logger.Info("payment reminders sent", zap.Int("count", sent))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	friendH := apirest.NewFriendHandler(db, ledgerSvc, notifySvc)
	groupH := apirest.NewGroupHandler(db, ledgerSvc, chatSvc, notifySvc)
	expenseH := apirest.NewExpenseHandler(db, ledgerSvc, auditSvc)
	paymentH := apirest.NewPaymentHandler(db, ledgerSvc, auditSvc)
	notifyH := apirest.NewNotificationHandler(notifySvc)
	inviteH := apirest.NewInviteHandler(db, cfg.Server, cfg.Invites, logger)
	bankH := apirest.NewBankHandler(db)
	analyticsH := apirest.NewAnalyticsHandler(db, c, logger)
	adminH := apirest.NewAdminHandler(db, sched, analyticsH, logger)

	refresh := cfg.Ledger.SummaryRefresh
	if refresh <= 0 {
		refresh = 10 * time.Minute
	}
	sched.AddTicker("spending_refresh", refresh, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		analyticsH.RefreshAll(ctx)
	})

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/register", authH.Register)
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		authed := api.Group("")
		authed.Use(mw.Auth(cfg.Security, c))

		authed.GET("/me", authH.Me)

		authed.GET("/friends", friendH.List)
		authed.POST("/friends/request", friendH.Request)
		authed.POST("/friends/accept/:id", friendH.Accept)
		authed.DELETE("/friends/:id", friendH.Remove)
		authed.POST("/friends/block/:id", friendH.Block)
		authed.GET("/friends/:id/balance", friendH.Balance)

		authed.POST("/groups", groupH.Create)
		authed.GET("/groups", groupH.List)
		authed.GET("/groups/:id", groupH.Detail)
		authed.PATCH("/groups/:id", groupH.Update)
		authed.POST("/groups/:id/members", groupH.AddMember)
		authed.DELETE("/groups/:id/members/:uid", groupH.RemoveMember)
		authed.POST("/groups/:id/leave", groupH.Leave)
		authed.GET("/groups/:id/suggestions", groupH.Suggestions)
		authed.POST("/groups/:id/messages", groupH.PostMessage)
		authed.GET("/groups/:id/messages", groupH.Messages)
		authed.GET("/groups/:id/expenses", expenseH.ListForGroup)
		authed.GET("/groups/:id/spenders", analyticsH.TopSpenders)
		authed.POST("/groups/:id/invites", inviteH.Create)

		authed.POST("/expenses", expenseH.Add)
		authed.GET("/expenses/:id", expenseH.Get)
		authed.PUT("/expenses/:id", expenseH.Update)
		authed.DELETE("/expenses/:id", expenseH.Delete)
		authed.PATCH("/expenses/:id/settlement", expenseH.Settle)

		authed.POST("/payments", paymentH.MarkPaid)
		authed.POST("/payments/settle-all", paymentH.SettleAll)
		authed.GET("/payments", paymentH.List)

		authed.GET("/notifications", notifyH.List)
		authed.POST("/notifications/:id/read", notifyH.MarkRead)
		authed.POST("/notifications/read-all", notifyH.MarkAllRead)

		authed.GET("/invites/:code", inviteH.Resolve)
		authed.POST("/invites/:code/join", inviteH.Join)

		authed.GET("/banks", bankH.List)
		authed.POST("/banks", bankH.Link)
		authed.DELETE("/banks/:id", bankH.Unlink)

		authed.GET("/analytics/summary", analyticsH.Summary)
		authed.GET("/analytics/series", analyticsH.Series)

		adminG := api.Group("/admin")
		adminG.Use(mw.AdminKey(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/audit", adminH.AuditLog)
		adminG.POST("/banks/:id/verify", adminH.VerifyBank)
		adminG.POST("/spending/refresh", adminH.RefreshSpending)
		adminG.POST("/users/:id/disable", adminH.DisableUser)
	}

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
