package router

import (
	"time"

	"rentalcash/internal/config"
	"rentalcash/internal/handler"
	"rentalcash/internal/middleware"
	"rentalcash/internal/service"
	"rentalcash/internal/tenant"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New returns a configured Gin engine over an already wired service set.
// queue may be nil (no Redis); db and rdb may be nil and are only pinged by
// /health.
func New(cfg *config.Config, svc *service.Set, queue handler.RepairQueue, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute))

	// ── Handlers ─────────────────────────────────────────────────────────────
	cashH := handler.NewCashHandler(svc)
	closuresH := handler.NewClosureHandler(svc.Closures)
	reportsH := handler.NewReportHandler(svc.Reports)
	rentalsH := handler.NewRentalHandler(svc.Rentals)
	itemsH := handler.NewItemHandler(svc.Items)
	lookupH := handler.NewItemLookupHandler(svc.Items, rdb)
	maintenanceH := handler.NewMaintenanceHandler(svc.Repair, queue)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	staff := middleware.RequireRole(tenant.RoleCashier, tenant.RoleAdmin, tenant.RoleSuperAdmin)
	admins := middleware.RequireRole(tenant.RoleAdmin, tenant.RoleSuperAdmin)
	managerPIN := middleware.RequireManagerPIN(cfg.ManagerPINHash)

	// Protected routes: every handler below runs with a resolved store scope
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), middleware.StoreScope(), staff)
	{
		cash := v1.Group("/cash")
		{
			cash.POST("/sessions", cashH.OpenSession)
			cash.GET("/sessions", cashH.ListSessions)
			cash.GET("/sessions/active", cashH.ActiveSession)
			cash.POST("/sessions/close", cashH.CloseSession)
			cash.GET("/sessions/:id", cashH.GetSession)
			cash.GET("/sessions/:id/summary", cashH.SessionSummary)

			cash.POST("/movements", cashH.RecordMovement)
			cash.GET("/movements", cashH.ListMovements)
			cash.DELETE("/movements/:id", admins, managerPIN, cashH.DeleteMovement)

			cash.GET("/summary", cashH.Summary)

			cash.GET("/closures", closuresH.List)
			cash.GET("/closures/:id", closuresH.Get)
			cash.DELETE("/closures/:id", admins, managerPIN, closuresH.Delete)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/daily/:date", reportsH.Daily)
			reports.GET("/financial-summary", reportsH.Financial)
		}

		rentals := v1.Group("/rentals")
		{
			rentals.POST("", rentalsH.Create)
			rentals.GET("", rentalsH.List)
			rentals.GET("/:id", rentalsH.Get)
			rentals.POST("/:id/payments", rentalsH.AddPayment)
			rentals.POST("/:id/return", rentalsH.Return)
			rentals.PUT("/:id/payment-method", rentalsH.ChangePaymentMethod)
			rentals.POST("/:id/swap", rentalsH.SwapItem)
			rentals.POST("/:id/cancel", rentalsH.Cancel)
		}

		v1.GET("/items", itemsH.List)
		v1.GET("/items/:barcode", lookupH.ByBarcode)
		v1.POST("/items", admins, itemsH.Create)

		maint := v1.Group("/maintenance", admins)
		{
			maint.GET("/orphans", maintenanceH.Orphans)
			maint.POST("/orphans/repair", maintenanceH.Repair)
			// the queue is shared by every store
			maint.GET("/dlq", middleware.RequireRole(tenant.RoleSuperAdmin), maintenanceH.DeadLetters)
		}
	}

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
