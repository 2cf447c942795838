package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"variantcart/internal/domain"
	"variantcart/internal/pricing"
	cartsvc "variantcart/internal/service/cart"
	"variantcart/internal/service/checkout"
)

type productReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type cartService interface {
	Create(ctx context.Context, currency domain.Currency) (cartsvc.View, error)
	Get(ctx context.Context, cartID string, currency domain.Currency) (cartsvc.View, error)
	Update(ctx context.Context, cartID string, currency domain.Currency, in cartsvc.UpdateInput) (cartsvc.View, error)
	Clear(ctx context.Context, cartID string) error
	Options(ctx context.Context, productID string, sel domain.Selection, currency domain.Currency) (cartsvc.ProductOptions, error)
}

type checkoutService interface {
	Attempt(ctx context.Context, cartID string, req checkout.Request) (checkout.Outcome, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Products        productReader
	Prices          pricing.Resolver
	CartSvc         cartService
	CheckoutSvc     checkoutService
	DefaultCurrency domain.Currency
	CORSOrigins     []string
	ReadyChecks     map[string]ReadyCheck
}

type api struct {
	deps   Deps
	logger logrus.FieldLogger
}

// buildRouter wires routes for the API.
func buildRouter(logger *logrus.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Products == nil || deps.CartSvc == nil || deps.CheckoutSvc == nil {
		return nil, errors.New("httpserver: products, cart and checkout services are required")
	}
	if !deps.DefaultCurrency.Valid() {
		deps.DefaultCurrency = domain.MWK
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  deps.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept-Language", currencyHeader},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	a := &api{deps: deps, logger: logger}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.ReadyChecks))

	products := router.Group("/products")
	products.GET("/:id", a.getProduct)
	products.GET("/:id/options", a.productOptions)

	carts := router.Group("/carts")
	carts.POST("", a.createCart)
	carts.GET("/:id", a.getCart)
	carts.POST("/:id", a.updateCart)
	carts.DELETE("/:id", a.clearCart)
	carts.POST("/:id/checkout", a.checkout)

	return router, nil
}
