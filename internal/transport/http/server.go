package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"planguard/internal/service"
)

type Server struct {
	srv     *http.Server
	limiter *ClientLimiter
}

func NewServer(addr string, svc service.PaymentService, limiter *ClientLimiter) *Server {
	return &Server{
		limiter: limiter,
		srv: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(svc, limiter),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// NewRouter mounts the API routes. limiter may be nil.
func NewRouter(svc service.PaymentService, limiter *ClientLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		NewHandler(svc).Register(r)
	})
	return r
}

func (s *Server) Start(ctx context.Context) error {
	if s.limiter != nil {
		go s.sweep(ctx)
	}
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Sweep()
		}
	}
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
