package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/nkosi-dev/sekolo-pay-api/api/swagger"
	"github.com/nkosi-dev/sekolo-pay-api/internal/handler"
	internalmiddleware "github.com/nkosi-dev/sekolo-pay-api/internal/middleware"
	"github.com/nkosi-dev/sekolo-pay-api/internal/models"
	"github.com/nkosi-dev/sekolo-pay-api/internal/repository"
	"github.com/nkosi-dev/sekolo-pay-api/internal/service"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/cache"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/config"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/database"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/logger"
	corsmiddleware "github.com/nkosi-dev/sekolo-pay-api/pkg/middleware/cors"
	reqidmiddleware "github.com/nkosi-dev/sekolo-pay-api/pkg/middleware/requestid"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/payfast"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/token"
)

// @title Sekolo Pay API
// @version 1.0.0
// @description School registration and payment processing backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The status cache is an optimisation; the API stays up without it.
		logr.Sugar().Warnw("redis unavailable, status caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	registrationRepo := repository.NewRegistrationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	metricsSvc := service.NewMetricsService()
	gateway := payfast.New(cfg.PayFast)
	receiptLinks := token.NewReceiptLinkSigner(cfg.Receipts.LinkSecret, cfg.Receipts.LinkTTL)

	paymentSvc := service.NewPaymentService(registrationRepo, paymentRepo, gateway, cacheRepo, metricsSvc, validate, logr, cfg.Status.CacheTTL)
	registrationSvc := service.NewRegistrationService(registrationRepo, paymentRepo, validate, logr)
	exportSvc := service.NewExportService(registrationRepo, paymentRepo, cfg.Receipts.SchoolName, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc, exportSvc, receiptLinks)
	authHandler := handler.NewAuthHandler(authSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)

		api.POST("/payments/initiate", paymentHandler.Initiate)
		api.POST("/payments/notify", paymentHandler.Notify)

		api.POST("/registrations", registrationHandler.Create)
		api.GET("/registrations/:id/status", paymentHandler.Status)
		api.POST("/registrations/:id/retry", paymentHandler.Retry)

		if cfg.Receipts.Enabled {
			api.GET("/receipts/:token", registrationHandler.ReceiptByToken)
		}

		authed := api.Group("")
		authed.Use(internalmiddleware.JWT(authSvc))
		{
			authed.GET("/auth/me", authHandler.Me)

			admin := authed.Group("")
			admin.Use(internalmiddleware.RequireRoles(models.RoleAdmin, models.RolePrincipal))
			{
				admin.GET("/registrations", registrationHandler.List)
				admin.GET("/registrations/export", registrationHandler.ExportCSV)
				admin.GET("/registrations/:id", registrationHandler.Get)
				admin.POST("/registrations/:id/approve", registrationHandler.Approve)
				admin.GET("/registrations/:id/receipt", registrationHandler.Receipt)
				admin.POST("/registrations/:id/receipt-link", registrationHandler.ReceiptLink)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env), zap.Bool("payfast_sandbox", cfg.PayFast.Sandbox))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
