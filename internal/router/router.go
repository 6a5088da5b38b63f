package router

import (
	"time"

	"posgrocery/internal/config"
	"posgrocery/internal/handler"
	"posgrocery/internal/infra"
	"posgrocery/internal/middleware"
	"posgrocery/internal/model"
	"posgrocery/internal/repository"
	"posgrocery/internal/service"
	"posgrocery/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, cacheCB *infra.CircuitBreaker, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	stockCache := infra.NewStockCache(rdb, cacheCB)

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	ledgerRepo := repository.NewStockLedgerRepository(db)
	lotRepo := repository.NewStockLotRepository(db)
	policyRepo := repository.NewCostPolicyRepository(db)
	grnRepo := repository.NewGRNRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	ledgerSvc := service.NewLedgerService(ledgerRepo)
	lotTracker := service.NewLotTracker(lotRepo, cfg.AllowNegativeStock)
	policySvc := service.NewCostPolicyService(policyRepo, productRepo, model.CostMethod(cfg.DefaultCostMethod))
	valuationSvc := service.NewValuationService(lotRepo, productRepo)

	productSvc := service.NewProductService(productRepo, supplierRepo)
	supplierSvc := service.NewSupplierService(supplierRepo)
	receivingSvc := service.NewReceivingService(grnRepo, productRepo, supplierRepo, ledgerSvc, lotTracker, stockCache, cfg.LockTimeoutMS)
	saleSvc := service.NewSaleService(invoiceRepo, productRepo, ledgerSvc, lotTracker, policySvc, stockCache, cfg.AllowNegativeStock, cfg.LockTimeoutMS)
	inventorySvc := service.NewInventoryService(ledgerRepo, ledgerSvc, lotRepo, productRepo, lotTracker, policySvc, valuationSvc, stockCache, cfg.AllowNegativeStock, cfg.LockTimeoutMS)
	snapshotSvc := service.NewSnapshotService(snapshotRepo, productRepo, ledgerRepo, policySvc, valuationSvc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	productsH := handler.NewProductsHandler(productSvc)
	suppliersH := handler.NewSuppliersHandler(supplierSvc)
	receivingH := handler.NewReceivingHandler(receivingSvc)
	salesH := handler.NewSalesHandler(saleSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	policiesH := handler.NewPoliciesHandler(policySvc)
	snapshotsH := handler.NewSnapshotsHandler(snapshotSvc, dispatcher)
	healthH := handler.NewHealthHandler(db, rdb, cacheCB)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", healthH.Health)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: cashier, supervisor, admin — declared per-endpoint
		v1.POST("/sales", middleware.RequireRole("cashier", "supervisor", "admin"), salesH.CreateSale)
		v1.GET("/sales", middleware.RequireRole("cashier", "supervisor", "admin"), salesH.ListSales)
		v1.GET("/sales/:id", middleware.RequireRole("cashier", "supervisor", "admin"), salesH.GetSale)
		v1.POST("/sales/:id/void", middleware.RequireRole("supervisor", "admin"), salesH.VoidSale)

		// Catalog reads are open to every authenticated role
		v1.GET("/products", middleware.RequireRole("cashier", "supervisor", "admin"), productsH.List)
		v1.GET("/products/:id", middleware.RequireRole("cashier", "supervisor", "admin"), productsH.Get)
		v1.GET("/products/barcode/:barcode", middleware.RequireRole("cashier", "supervisor", "admin"), productsH.GetByBarcode)
		v1.GET("/products/:id/cost-policy", middleware.RequireRole("supervisor", "admin"), policiesH.Get)
		v1.PUT("/products/:id/cost-policy", middleware.RequireRole("admin"), policiesH.Set)
		// Catalog writes — admin only
		prods := v1.Group("/products", middleware.RequireRole("admin"))
		{
			prods.POST("", productsH.Create)
			prods.PUT("/:id", productsH.Update)
			prods.DELETE("/:id", productsH.Deactivate)
			prods.POST("/:id/reactivate", productsH.Reactivate)
		}

		inv := v1.Group("/inventory", middleware.RequireRole("supervisor", "admin"))
		{
			inv.GET("/ledger", inventoryH.Ledger)
			inv.GET("/:id/on-hand", inventoryH.StockOnHand)
			inv.GET("/:id/lots", inventoryH.Lots)
			inv.GET("/:id/valuation", inventoryH.Valuation)
			inv.POST("/:id/adjust", inventoryH.AdjustStock)
		}

		grns := v1.Group("/grns", middleware.RequireRole("supervisor", "admin"))
		{
			grns.POST("", receivingH.CreateGRN)
			grns.GET("", receivingH.ListGRNs)
			grns.GET("/:id", receivingH.GetGRN)
			grns.POST("/:id/finalize", receivingH.FinalizeGRN)
		}

		suppliers := v1.Group("/suppliers", middleware.RequireRole("admin"))
		{
			suppliers.POST("", suppliersH.Create)
			suppliers.GET("", suppliersH.List)
			suppliers.GET("/:id", suppliersH.Get)
			suppliers.PUT("/:id", suppliersH.Update)
			suppliers.DELETE("/:id", suppliersH.Deactivate)
		}

		snapshots := v1.Group("/snapshots", middleware.RequireRole("supervisor", "admin"))
		{
			snapshots.POST("/run", snapshotsH.Run)
			snapshots.POST("/enqueue", snapshotsH.Enqueue)
			snapshots.GET("/trend", snapshotsH.Trend)
			snapshots.GET("/:date", snapshotsH.ByDate)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
