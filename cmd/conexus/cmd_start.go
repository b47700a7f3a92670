package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ferg-cod3s/docsyncer/internal/api"
	"github.com/ferg-cod3s/docsyncer/internal/config"
	"github.com/ferg-cod3s/docsyncer/internal/mcp"
	"github.com/ferg-cod3s/docsyncer/internal/middleware"
	"github.com/ferg-cod3s/docsyncer/internal/observability"
	"github.com/ferg-cod3s/docsyncer/internal/security/auth"
	"github.com/ferg-cod3s/docsyncer/internal/security/ratelimit"
	"github.com/ferg-cod3s/docsyncer/internal/tls"
)

const (
	modeMCP       = "mcp"
	modeAPI       = "api"
	modeEnhanced  = "enhanced"
	modeWebSocket = "websocket"
)

func newStartCmd() *cobra.Command {
	var mode string
	var port int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the server in one of its transport modes",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch mode {
			case modeMCP, modeAPI, modeEnhanced, modeWebSocket:
			default:
				return configError(fmt.Errorf("invalid --mode %q: must be one of mcp|api|enhanced|websocket", mode))
			}

			ctx := context.Background()
			rt, err := newRuntime(ctx, mode == modeMCP)
			if err != nil {
				return configError(err)
			}
			defer rt.Close()

			if port > 0 {
				rt.cfg.Server.Port = port
			}

			if mode == modeMCP {
				return runMCPStdio(rt)
			}
			return runHTTPServer(ctx, rt, mode)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", modeMCP, "transport mode: mcp|api|enhanced|websocket")
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port override for api|enhanced|websocket modes")
	return cmd
}

func runMCPStdio(rt *runtime) error {
	rt.logger.Info("running in stdio mode (MCP over stdin/stdout)")
	server := mcp.NewServer(os.Stdin, os.Stdout, rt.vectorStore, rt.connectorStore, rt.embedder, rt.metrics, rt.errorHandler, rt.indexController)
	if rt.pipeline != nil {
		server = server.WithPipeline(rt.pipeline)
	}
	if err := server.Serve(); err != nil {
		return runtimeError(fmt.Errorf("mcp server: %w", err))
	}
	return nil
}

// runHTTPServer serves the REST API (api mode), the REST API plus the
// /mcp JSON-RPC and /ws WebSocket endpoints (enhanced mode), or the /mcp
// and /ws endpoints without the REST API (websocket mode) over HTTP, with the shared
// rate-limit/CORS/security/auth middleware stack.
func runHTTPServer(ctx context.Context, rt *runtime, mode string) error {
	cfg := rt.cfg
	logger := rt.logger

	var tlsManager *tls.Manager
	if cfg.TLS.Enabled {
		var err error
		tlsManager, err = tls.NewManager(&cfg.TLS, logger)
		if err != nil {
			return configError(fmt.Errorf("initializing TLS manager: %w", err))
		}
		if err := tlsManager.ValidateCertificates(); err != nil {
			return configError(fmt.Errorf("validating certificates: %w", err))
		}
	}

	mux := http.NewServeMux()

	mcpServer := mcp.NewServer(nil, nil, rt.vectorStore, rt.connectorStore, rt.embedder, rt.metrics, rt.errorHandler, rt.indexController)
	if rt.pipeline != nil {
		mcpServer = mcpServer.WithPipeline(rt.pipeline)
	}

	if mode == modeEnhanced || mode == modeWebSocket {
		mux.Handle("/mcp", mcpHTTPHandler(mcpServer, logger))
	}
	if mode == modeEnhanced || mode == modeWebSocket {
		mux.Handle("/ws", mcpWebSocketHandler(mcpServer))
	}
	if mode == modeAPI || mode == modeEnhanced {
		var authMiddleware *middleware.AuthMiddleware
		if cfg.Auth.Enabled {
			jwtManager, err := auth.NewJWTManager(cfg.Auth.PrivateKey, cfg.Auth.PublicKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenExpiry)
			if err != nil {
				return configError(fmt.Errorf("initializing JWT manager: %w", err))
			}
			authMiddleware = middleware.NewAuthMiddleware(jwtManager)
		}

		deps := api.Dependencies{
			Pipeline:     rt.pipeline,
			ErrorHandler: rt.errorHandler,
			Metrics:      rt.metrics,
			Version:      Version,
			Auth:         authMiddleware,
		}
		router := api.NewRouter(deps)
		mux.Handle("/api/", router)
		mux.Handle("/health", router)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name":"conexus","version":"%s","mode":"%s"}`, Version, mode)
	})

	handler := wrapMiddleware(mux, cfg, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	if tlsManager != nil {
		server.TLSConfig = tlsManager.GetTLSConfig()
		httpsPort := cfg.Server.Port
		if httpsPort == 443 {
			httpsPort = 0
		}
		if err := tlsManager.StartHTTPRedirect(ctx, httpsPort); err != nil {
			return runtimeError(fmt.Errorf("starting HTTP redirect server: %w", err))
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "mode", mode, "addr", addr)
		if tlsManager != nil {
			if cfg.TLS.AutoCert {
				serveErr <- server.ListenAndServeTLS("", "")
			} else {
				serveErr <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			}
		} else {
			serveErr <- server.ListenAndServe()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return runtimeError(fmt.Errorf("server failed: %w", err))
		}
	case <-quit:
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return runtimeError(fmt.Errorf("server forced to shutdown: %w", err))
		}
	}
	return nil
}

// wrapMiddleware wraps handler in CORS, then security headers, then rate
// limiting, so a request passes rate limiting, security headers and CORS in
// that order (rate limit outermost so abusive clients never reach the rest
// of the stack).
// Per-route JWT auth for the /api surface is applied inside
// api.NewRouter instead, since /mcp and /ws intentionally stay
// unauthenticated collaborators for local tooling.
func wrapMiddleware(handler http.Handler, cfg *config.Config, logger *observability.Logger) http.Handler {
	securityMiddleware := middleware.NewSecurityMiddleware(middleware.SecurityConfig{
		CSP: middleware.CSPConfig{
			Enabled: cfg.Security.CSP.Enabled,
			Default: cfg.Security.CSP.DefaultSrc,
			Script:  cfg.Security.CSP.ScriptSrc,
			Style:   cfg.Security.CSP.StyleSrc,
			Image:   cfg.Security.CSP.ImgSrc,
			Font:    cfg.Security.CSP.FontSrc,
			Connect: cfg.Security.CSP.ConnectSrc,
			Media:   cfg.Security.CSP.MediaSrc,
			Object:  cfg.Security.CSP.ObjectSrc,
			Frame:   cfg.Security.CSP.FrameSrc,
			Report:  cfg.Security.CSP.ReportURI,
		},
		HSTS: middleware.HSTSConfig{
			Enabled:           cfg.Security.HSTS.Enabled,
			MaxAge:            cfg.Security.HSTS.MaxAge,
			IncludeSubdomains: cfg.Security.HSTS.IncludeSubdomains,
			Preload:           cfg.Security.HSTS.Preload,
		},
		XFrameOptions:  cfg.Security.FrameOptions,
		ReferrerPolicy: cfg.Security.ReferrerPolicy,
	}, logger)

	corsMiddleware := middleware.NewCORSMiddleware(middleware.CORSConfig{
		Enabled:          cfg.CORS.Enabled,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}, logger)

	wrapped := corsMiddleware.Middleware(handler)
	wrapped = securityMiddleware.Middleware(wrapped)

	if !cfg.RateLimit.Enabled {
		return wrapped
	}

	parseDuration := func(s string) time.Duration {
		if s == "" {
			return time.Minute
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return time.Minute
		}
		return d
	}
	algorithm := ratelimit.SlidingWindow
	if cfg.RateLimit.Algorithm == "token_bucket" {
		algorithm = ratelimit.TokenBucket
	}
	rateLimiter, err := ratelimit.NewRateLimiter(ratelimit.Config{
		Enabled:   cfg.RateLimit.Enabled,
		Algorithm: algorithm,
		Redis: ratelimit.RedisConfig{
			Enabled:   cfg.RateLimit.Redis.Enabled,
			Addr:      cfg.RateLimit.Redis.Addr,
			Password:  cfg.RateLimit.Redis.Password,
			DB:        cfg.RateLimit.Redis.DB,
			KeyPrefix: cfg.RateLimit.Redis.KeyPrefix,
		},
		Default:         ratelimit.LimitConfig{Requests: cfg.RateLimit.Default.Requests, Window: parseDuration(cfg.RateLimit.Default.Window)},
		Health:          ratelimit.LimitConfig{Requests: cfg.RateLimit.Health.Requests, Window: parseDuration(cfg.RateLimit.Health.Window)},
		Webhook:         ratelimit.LimitConfig{Requests: cfg.RateLimit.Webhook.Requests, Window: parseDuration(cfg.RateLimit.Webhook.Window)},
		Auth:            ratelimit.LimitConfig{Requests: cfg.RateLimit.Auth.Requests, Window: parseDuration(cfg.RateLimit.Auth.Window)},
		BurstMultiplier: cfg.RateLimit.BurstMultiplier,
		CleanupInterval: parseDuration(cfg.RateLimit.CleanupInterval),
	})
	if err != nil {
		return wrapped
	}
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
		RateLimiter: rateLimiter,
		SkipPaths:   cfg.RateLimit.SkipPaths,
		SkipIPs:     cfg.RateLimit.SkipIPs,
		TrustedProxies: cfg.RateLimit.TrustedProxies,
	}, logger)
	return rateLimitMiddleware.Middleware(wrapped)
}
