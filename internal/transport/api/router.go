package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/fsdevblog/moviestore/internal/metrics"
	"github.com/fsdevblog/moviestore/internal/transport/api/middlewares"
)

const (
	DefaultServiceTimeout = 3 * time.Second
	corsMaxAge            = 12 * time.Hour
)

const (
	HealthRoute  = "/health"
	MetricsRoute = "/metrics"

	RouteGroup       = "/api"
	RegisterRoute    = "/user/register"
	LoginRoute       = "/user/login"
	BalanceRoute     = "/user/balance"
	CreditRoute      = "/user/credit"
	MoviesRoute      = "/movies"
	MovieRoute       = "/movies/:id"
	MovieRatingRoute = "/movies/:id/rating"
	CartRoute        = "/cart"
	CartItemRoute    = "/cart/:movieID"
	CheckoutRoute    = "/cart/checkout"
	OrdersRoute      = "/orders"
	OrderRoute       = "/orders/:id"
	OrderPayRoute    = "/orders/:id/pay"
	SalesRoute       = "/stats/sales/:year/:country"
)

type RouterArgs struct {
	Logger        *logrus.Logger
	Metrics       *metrics.Metrics
	ServiceName   string
	UserService   UserServicer
	MovieService  MovieServicer
	RatingService RatingServicer
	CartService   CartServicer
	OrderService  OrderServicer
	JWTSecretKey  []byte
	// AllowOrigins источники, которым разрешены кросс-доменные запросы. Пустой список отключает CORS.
	AllowOrigins []string
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if len(args.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: args.AllowOrigins,
			AllowMethods: []string{
				http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
			},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders: []string{"Authorization"},
			MaxAge:        corsMaxAge,
		}))
	}
	if args.ServiceName != "" {
		r.Use(otelgin.Middleware(args.ServiceName))
	}
	r.Use(args.Metrics.Middleware())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	r.GET(HealthRoute, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET(MetricsRoute, gin.WrapH(args.Metrics.Handler()))

	userHandler := NewUserHandler(args.UserService)
	moviesHandler := NewMoviesHandler(args.MovieService, args.RatingService)
	cartHandler := NewCartHandler(args.CartService, args.OrderService)
	ordersHandler := NewOrdersHandler(args.OrderService)

	api := r.Group(RouteGroup)

	api.POST(RegisterRoute, middlewares.NonAuthRequired(args.JWTSecretKey), userHandler.Register)
	api.POST(LoginRoute, middlewares.NonAuthRequired(args.JWTSecretKey), userHandler.Login)

	// каталог открыт без авторизации.
	api.GET(MoviesRoute, moviesHandler.Index)
	api.GET(MovieRoute, moviesHandler.Show)

	api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	// ниже все роуты группы требуют авторизованного пользователя.
	api.GET(BalanceRoute, userHandler.Balance)
	api.POST(CreditRoute, userHandler.Credit)

	api.POST(MovieRatingRoute, moviesHandler.Rate)

	api.GET(CartRoute, cartHandler.Show)
	api.DELETE(CartRoute, cartHandler.Clear)
	api.POST(CheckoutRoute, cartHandler.Checkout)
	api.PUT(CartItemRoute, cartHandler.Add)
	api.PATCH(CartItemRoute, cartHandler.Update)
	api.DELETE(CartItemRoute, cartHandler.Remove)

	api.POST(OrdersRoute, ordersHandler.Create)
	api.GET(OrdersRoute, ordersHandler.Index)
	api.GET(OrderRoute, ordersHandler.Show)
	api.POST(OrderPayRoute, ordersHandler.Pay)

	admin := api.Group("", middlewares.AdminRequired(args.UserService))
	admin.POST(MoviesRoute, moviesHandler.Create)
	admin.PATCH(MovieRoute, moviesHandler.Update)
	admin.DELETE(MovieRoute, moviesHandler.Destroy)
	admin.GET(SalesRoute, ordersHandler.Sales)
	return r, nil
}
