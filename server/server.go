// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the geocoding proxy, the import pipeline and the
// store search over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/storelocator/auth"
	"github.com/jcodagnone/storelocator/geocoding"
	"github.com/jcodagnone/storelocator/importer"
	"github.com/jcodagnone/storelocator/store"
)

// Options tunes the server.
type Options struct {
	RateLimit    float64
	RateBurst    int
	BcryptCost   int
	SessionIdle  time.Duration
	GeocodeDelay time.Duration
	CallTimeout  time.Duration
}

// Server wires the HTTP routes to the store, the geocoders and auth.
type Server struct {
	repo store.Repository

	// upstream answers the proxy endpoint; importGeocoder drives import
	// sessions. Either may be nil.
	upstream       geocoding.Geocoder
	importGeocoder geocoding.Geocoder

	tokens   *auth.TokenIssuer
	provider *auth.Provider
	resolver *auth.Resolver
	audit    *auth.Session

	sessions *importer.SessionStore
	limiter  *RateLimiter
	opts     Options
}

// NewServer creates a server. upstream is the provider behind
// POST /api/geocode; importGeocoder is used by import sessions and defaults
// to upstream.
func NewServer(
	repo store.Repository,
	upstream, importGeocoder geocoding.Geocoder,
	tokens *auth.TokenIssuer,
	opts Options,
) *Server {
	if importGeocoder == nil {
		importGeocoder = upstream
	}

	if opts.CallTimeout <= 0 {
		opts.CallTimeout = importer.DefaultCallTimeout
	}

	if opts.SessionIdle <= 0 {
		opts.SessionIdle = 30 * time.Minute
	}

	if opts.RateLimit <= 0 || opts.RateBurst <= 0 {
		opts.RateLimit, opts.RateBurst = 5, 10
	}

	if upstream == nil {
		log.Print("⚠️ no upstream geocoder configured, /api/geocode will answer 503")
	}

	provider := auth.NewProvider()

	return &Server{
		repo:           repo,
		upstream:       upstream,
		importGeocoder: importGeocoder,
		tokens:         tokens,
		provider:       provider,
		resolver:       auth.NewResolver(repo),
		audit:          auth.NewSession(provider, nil),
		sessions:       importer.NewSessionStore(opts.SessionIdle),
		limiter:        NewRateLimiter(opts.RateLimit, opts.RateBurst),
		opts:           opts,
	}
}

// Handler returns the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")

	api.POST("/geocode", s.limiter.Middleware(), s.geocode)
	api.GET("/template.csv", s.template)

	api.POST("/auth/register", s.register)
	api.POST("/auth/token", s.signIn)

	imports := api.Group("/imports", s.requireUser)
	imports.POST("", s.createImport)
	imports.GET("/:id", s.getImport)
	imports.POST("/:id/geocode", s.geocodeImport)
	imports.POST("/:id/rows/:index/retry", s.retryRow)
	imports.POST("/:id/submit", s.submitImport)
	imports.DELETE("/:id", s.deleteImport)

	api.GET("/health", s.health)

	api.GET("/stores/search", s.searchStores)
	api.DELETE("/stores/:id", s.requireUser, s.deleteStore)
	api.GET("/businesses/:id/stores", s.listBusinessStores)

	return r
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"open_imports": s.sessions.Len(),
		"auth_audit":   s.provider.Subscribed(),
		"geocoder":     s.upstream != nil,
	})
}

// Start subscribes to auth changes and sweeps idle sessions and rate limiter
// entries until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.audit.OnChange = func(ev auth.Event) {
		log.Printf("🔑 %s %s", ev.Kind, ev.User.Email)
	}

	if err := s.audit.Start(ctx); err != nil {
		return err
	}

	go s.sessions.RunJanitor(ctx, time.Minute)

	go func() {
		t := time.NewTicker(5 * time.Minute)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.limiter.Sweep(10 * time.Minute)
			}
		}
	}()

	return nil
}

// Close stops the auth subscription.
func (s *Server) Close() {
	s.audit.Close()
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() {
		log.Printf("🌐 listening on http://%s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		log.Print("🛑 shutting down")

		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) template(ctx *gin.Context) {
	ctx.Header("Content-Disposition", `attachment; filename="template_negozi.csv"`)
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(importer.TemplateCSV()))
}
