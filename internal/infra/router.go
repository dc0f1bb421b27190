package infra

import (
	"fmt"

	"github.com/go-redis/redis/v9"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/umalmyha/customer-registry/internal/cache"
	"github.com/umalmyha/customer-registry/internal/config"
	"github.com/umalmyha/customer-registry/internal/event"
	"github.com/umalmyha/customer-registry/internal/handlers"
	"github.com/umalmyha/customer-registry/internal/idgen"
	"github.com/umalmyha/customer-registry/internal/repository"
	"github.com/umalmyha/customer-registry/internal/service"
	"github.com/umalmyha/customer-registry/internal/validation"
	"github.com/umalmyha/customer-registry/pkg/db/transactor"
)

// Router wires the customer API on top of connected infrastructure
func Router(pgPool *pgxpool.Pool, redisClient *redis.Client, publisher event.Publisher, cfg config.Config) (*echo.Echo, error) {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler

	validator, err := validation.New()
	if err != nil {
		return nil, fmt.Errorf("failed to build validator - %w", err)
	}
	e.Validator = validation.Echo(validator)

	idGen, err := idgen.New(cfg.NodeID)
	if err != nil {
		return nil, err
	}

	// Transactors
	trx := transactor.NewPgxTransactor(pgPool)
	trxExec := transactor.NewPgxWithinTransactionExecutor(pgPool)

	// Repositories
	customerRepo := repository.NewPostgresCustomerRepository(trxExec)
	emailGuard := repository.NewPostgresEmailGuard(trxExec)
	customerCache := cache.NewRedisCustomerCacheRepository(redisClient)

	// Services
	customerSvc := service.NewCustomerService(trx, customerRepo, emailGuard, customerCache, publisher, idGen, validator)

	// Handlers
	customerHandler := handlers.NewCustomerHTTPHandler(customerSvc)

	// API routes
	api := e.Group("/api")

	customersAPI := api.Group("/v1/customers")
	customersAPI.GET("", customerHandler.GetPage)
	customersAPI.GET("/search", customerHandler.Search)
	customersAPI.GET("/:id", customerHandler.Get)
	customersAPI.POST("", customerHandler.Post)
	customersAPI.PUT("/:id", customerHandler.Put)
	customersAPI.PATCH("/:id", customerHandler.PatchDocument)
	customersAPI.DELETE("/:id", customerHandler.DeleteByID)

	return e, nil
}
