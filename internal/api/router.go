package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/2emr/sensor-backend/internal/api/handler"
	"github.com/2emr/sensor-backend/internal/api/middleware"
	"github.com/2emr/sensor-backend/internal/core/ports"
	"github.com/2emr/sensor-backend/internal/infrastructure/broadcast"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Auth     ports.AuthService
	Tokens   ports.TokenVerifier
	Readings ports.ReadingService
	Control  ports.ControlService
	Hub      *broadcast.Hub
	Checks   map[string]ports.Pinger

	// Registerer and Gatherer back the HTTP metrics and /metrics. Both
	// default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	AllowedOrigins       []string
	RequestTimeout       time.Duration
	RealtimeRequireToken bool

	Log zerolog.Logger
}

var realtimePaths = []string{"/ws", "/socket"}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:  deps.AllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{handler.HeaderDeletedCount},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: deps.Registerer,
		Skipper:    func(c echo.Context) bool { return c.Path() == "/metrics" },
	}))
	if deps.RequestTimeout > 0 {
		e.Use(echomiddleware.ContextTimeoutWithConfig(echomiddleware.ContextTimeoutConfig{
			Timeout: deps.RequestTimeout,
			Skipper: isRealtime,
		}))
	}

	authHandler := handler.NewAuthHandler(deps.Auth)
	readingHandler := handler.NewReadingHandler(deps.Readings, deps.Log)
	controlHandler := handler.NewControlHandler(deps.Control)
	realtimeHandler := handler.NewRealtimeHandler(deps.Hub, deps.AllowedOrigins, deps.Log)
	healthHandler := handler.NewHealthHandler(deps.Checks)
	requireToken := middleware.Auth(deps.Tokens)

	// --- Auth routes ---
	e.POST("/register", authHandler.Register)
	e.POST("/login", authHandler.Login)

	// --- Readings ---
	e.POST("/dados-sensores", readingHandler.Ingest)
	e.GET("/dados-sensores", readingHandler.List, requireToken)
	e.GET("/dados-sensores/tempo", readingHandler.ListRange, requireToken)
	e.DELETE("/limpar-dados", readingHandler.Purge, requireToken)

	// --- Service control ---
	e.POST("/pausar-servico", controlHandler.SetPause, requireToken)
	e.GET("/pausar-servico", controlHandler.Status, requireToken)

	// --- Realtime ---
	var realtimeMW []echo.MiddlewareFunc
	if deps.RealtimeRequireToken {
		realtimeMW = append(realtimeMW, middleware.RealtimeAuth(deps.Tokens))
	}
	for _, p := range realtimePaths {
		e.GET(p, realtimeHandler.Stream, realtimeMW...)
	}

	// --- Health probes and metrics (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	return e
}

func isRealtime(c echo.Context) bool {
	for _, p := range realtimePaths {
		if c.Path() == p || strings.HasPrefix(c.Request().URL.Path, p+"/") {
			return true
		}
	}
	return false
}

// requestLogger writes one access log line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			var ev *zerolog.Event
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Status >= 400:
				ev = log.Warn()
			default:
				ev = log.Info()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
