package server

import (
	"context"
	"net/http"

	"booking-pricing/internal/handler"
	"booking-pricing/internal/middleware"
	"booking-pricing/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	echo            *echo.Echo
	snapshotHandler *handler.SnapshotHandler
	pricingHandler  *handler.PricingHandler
	gatherer        prometheus.Gatherer
	jwtSecret       string
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// NewServer wires the HTTP routes. An empty jwtSecret disables authentication
// and snapshots are recorded without an actor.
func NewServer(
	snapshotService service.SnapshotService,
	pricingService service.PricingService,
	gatherer prometheus.Gatherer,
	jwtSecret string,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(echomw.RequestLogger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	s := &Server{
		echo:            e,
		snapshotHandler: handler.NewSnapshotHandler(snapshotService),
		pricingHandler:  handler.NewPricingHandler(pricingService),
		gatherer:        gatherer,
		jwtSecret:       jwtSecret,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	var auth []echo.MiddlewareFunc
	if s.jwtSecret != "" {
		auth = append(auth, middleware.AuthMiddleware(s.jwtSecret))
	}

	// -------- bookings --------
	bookings := api.Group("/bookings/:id", auth...)
	bookings.GET("/price", s.pricingHandler.GetPrice)

	// -------- price snapshots --------
	bookings.POST("/snapshots/basket", s.snapshotHandler.CreateFromBasket)
	bookings.POST("/snapshots/reprice", s.snapshotHandler.CreateFromCalculator)
	bookings.POST("/snapshots/manual", s.snapshotHandler.CreateManual)
	bookings.GET("/snapshots", s.snapshotHandler.List)
	bookings.GET("/snapshots/latest", s.snapshotHandler.Latest)
	bookings.GET("/snapshots/:version", s.snapshotHandler.Get)
	bookings.GET("/audits", s.snapshotHandler.ListAudits)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
