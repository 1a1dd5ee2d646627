package router

import (
	"time"

	"stitchbill/internal/config"
	"stitchbill/internal/handler"
	"stitchbill/internal/infra"
	"stitchbill/internal/middleware"
	"stitchbill/internal/repository"
	"stitchbill/internal/service"
	"stitchbill/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	roleOperator   = middleware.RoleOperator
	roleSupervisor = middleware.RoleSupervisor
	roleAdmin      = middleware.RoleAdmin
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
//
// gatepassCB guards the external gate-pass feed; it is unused when
// GATEPASS_SERVICE_URL is empty and shipments come from the local table.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, gatepassCB *infra.CircuitBreaker) *gin.Engine {
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
	r.Use(middleware.RateLimiter(1000, time.Minute))

	// ── Infrastructure ───────────────────────────────────────────────────────
	var shipments service.ShipmentSource
	var healthCB *infra.CircuitBreaker
	if cfg.GatePassServiceURL != "" {
		client := infra.NewGatePassClient(cfg.GatePassServiceURL, gatepassCB)
		shipments = client
		healthCB = client.Breaker()
	} else {
		shipments = repository.NewGatePassRepository(db)
	}
	locker := infra.NewRedisLocker(rdb, time.Duration(cfg.BillingLockTTLSeconds)*time.Second)
	dispatcher := worker.NewDispatcher(rdb)

	// ── Repositories ─────────────────────────────────────────────────────────
	auditRepo := repository.NewAuditRepository(db)
	rateRepo := repository.NewRateRepository(db)
	machineRepo := repository.NewMachineRepository(db)
	contractRepo := repository.NewContractRepository(db)
	productionRepo := repository.NewProductionRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	reconRepo := repository.NewReconciliationRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	auditSvc := service.NewAuditService(auditRepo)
	rateSvc := service.NewRateService(rateRepo, auditSvc, rdb)
	machineSvc := service.NewMachineService(machineRepo, auditSvc)
	contractSvc := service.NewContractService(contractRepo, rateRepo, productionRepo, auditSvc)
	productionSvc := service.NewProductionService(productionRepo, contractRepo, machineRepo, auditSvc)
	billingSvc := service.NewBillingService(billingRepo, productionRepo, contractRepo, rateRepo, auditSvc, locker)
	reconSvc := service.NewReconciliationService(reconRepo, billingRepo, contractRepo, shipments, auditSvc, dispatcher, cfg.Tolerance())

	// ── Handlers ─────────────────────────────────────────────────────────────
	machinesH := handler.NewMachinesHandler(machineSvc)
	ratesH := handler.NewRatesHandler(rateSvc)
	contractsH := handler.NewContractsHandler(contractSvc)
	productionH := handler.NewProductionHandler(productionSvc)
	billingH := handler.NewBillingHandler(billingSvc)
	reconH := handler.NewReconciliationHandler(reconSvc)
	auditH := handler.NewAuditHandler(auditSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, healthCB))

	anyRole := middleware.RequireRole(roleOperator, roleSupervisor, roleAdmin)
	supervisors := middleware.RequireRole(roleSupervisor, roleAdmin)
	admins := middleware.RequireRole(roleAdmin)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.GET("/machines", anyRole, machinesH.List)
		v1.GET("/machines/:id", anyRole, machinesH.Get)
		v1.POST("/machines", admins, machinesH.Create)

		rates := v1.Group("/rates")
		{
			rates.GET("/base", anyRole, ratesH.CurrentBaseRate)
			rates.GET("/base/history", anyRole, ratesH.BaseRateHistory)
			rates.GET("/elements", anyRole, ratesH.ListElements)
			rates.POST("/base", admins, ratesH.SetBaseRate)
			rates.POST("/elements", admins, ratesH.CreateElement)
			rates.PUT("/elements/:id", admins, ratesH.UpdateElement)
			rates.DELETE("/elements/:id", admins, ratesH.DeactivateElement)
		}

		contract := v1.Group("/contract", supervisors)
		{
			contract.POST("", contractsH.Create)
			contract.GET("", contractsH.List)
			contract.GET("/:id", contractsH.Get)
			contract.POST("/:id/items", contractsH.AddDesign)
			contract.POST("/:id/activate", contractsH.Activate)
			contract.POST("/:id/complete", contractsH.Complete)
			contract.POST("/:id/cancel", contractsH.Cancel)
		}

		prod := v1.Group("/production")
		{
			prod.POST("/entry", anyRole, productionH.RecordEntry)
			prod.POST("/bulk", anyRole, productionH.RecordBulk)
			prod.POST("/override", supervisors, productionH.Override)
			prod.GET("/entries", anyRole, productionH.ListEntries)
			prod.GET("/entries/:id", anyRole, productionH.GetEntry)
			prod.GET("/entries/:id/resolved", anyRole, productionH.Resolved)
			prod.DELETE("/entries/:id", supervisors, productionH.DeleteEntry)
		}

		billing := v1.Group("/billing", supervisors)
		{
			billing.POST("/generate", billingH.Generate)
			billing.POST("/compensate", billingH.Compensate)
			billing.POST("/:id/approve", admins, billingH.Approve)
			billing.GET("", billingH.List)
			billing.GET("/corrections", billingH.Corrections)
			billing.GET("/:id", billingH.Get)
		}

		recon := v1.Group("/reconciliation", supervisors)
		{
			recon.POST("/run", reconH.Run)
			recon.POST("/:id/resolve", reconH.Resolve)
			recon.POST("/:id/escalate", reconH.Escalate)
			recon.GET("", reconH.List)
			recon.GET("/:id", reconH.Get)
		}

		v1.GET("/audit", admins, auditH.List)
	}

	// Swagger UI outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
