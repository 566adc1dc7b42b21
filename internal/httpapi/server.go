package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/storefront/internal/catalog"
	"horse.fit/storefront/internal/storage"
	"horse.fit/storefront/internal/translation"
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SessionCookie   string
	SessionTTL      time.Duration
	SessionSecure   bool
	// CartKeyPrefix namespaces per-session cart keys in storage.
	CartKeyPrefix  string
	MaxOpenCarts   int
	CatalogBaseURL *url.URL
}

type Server struct {
	kv      storage.KV
	gateway *translation.Gateway
	carts   *cartSessions
	logger  zerolog.Logger
	opts    Options
}

func NewServer(kv storage.KV, gateway *translation.Gateway, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	sessionCookie := strings.TrimSpace(opts.SessionCookie)
	if sessionCookie == "" {
		sessionCookie = defaultSessionCookie
	}
	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	if gateway == nil {
		gateway = translation.NewGateway(translation.GatewayOptions{Logger: logger})
	}

	resolved := Options{
		Host:            host,
		Port:            port,
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		ShutdownTimeout: shutdownTimeout,
		SessionCookie:   sessionCookie,
		SessionTTL:      sessionTTL,
		SessionSecure:   opts.SessionSecure,
		CartKeyPrefix:   opts.CartKeyPrefix,
		MaxOpenCarts:    opts.MaxOpenCarts,
		CatalogBaseURL:  opts.CatalogBaseURL,
	}

	return &Server{
		kv:      kv,
		gateway: gateway,
		carts:   newCartSessions(kv, resolved.CartKeyPrefix, resolved.MaxOpenCarts, logger),
		logger:  logger,
		opts:    resolved,
	}
}

// Handler builds the echo instance with middleware and routes.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/languages", s.handleLanguages)
	api.POST("/translate", s.handleTranslate)
	api.POST("/translate/batch", s.handleTranslateBatch)
	api.POST("/detect", s.handleDetect)
	api.POST("/catalog/describe", s.handleDescribeProduct)

	cartGroup := api.Group("/cart", s.withCart())
	cartGroup.GET("", s.handleGetCart)
	cartGroup.DELETE("", s.handleClearCart)
	cartGroup.POST("/items", s.handleAddItem)
	cartGroup.PATCH("/items/:product_id/:variant_id", s.handleUpdateItem)
	cartGroup.DELETE("/items/:product_id/:variant_id", s.handleRemoveItem)

	return e
}

func (s *Server) catalogOptions() catalog.Options {
	return catalog.Options{BaseURL: s.opts.CatalogBaseURL, Logger: s.logger}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.kv == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("storefront web server started")
	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("storefront web server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	storageStatus := "ok"
	if s.kv == nil {
		storageStatus = "unavailable"
	} else if err := s.kv.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("storage ping failed")
		storageStatus = "unavailable"
	}

	translationStatus := map[string]any{
		"configured":       s.gateway.Configured(),
		"default_language": s.gateway.DefaultLanguage(),
	}
	if state, ok := s.gateway.QueueState(); ok {
		translationStatus["queue"] = state
	}

	return success(c, map[string]any{
		"service":     "storefront",
		"time":        time.Now().UTC(),
		"storage":     storageStatus,
		"translation": translationStatus,
	})
}
