// Package http is the HTTP surface of the purchase pipeline: routing,
// request decoding, response encoding, and status-code mapping. Grounded on
// the teacher's Server/respondWithJSON/respondWithError, router swapped from
// stdlib ServeMux to go-chi/chi/v5 because the surface needs path
// parameters the teacher's endpoints never did.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"flashsale/internal/apperr"
	"flashsale/internal/domain"
	"flashsale/internal/platform/logger"
	"flashsale/internal/service/admission"
	"flashsale/internal/service/auth"
	"flashsale/internal/service/saleadmin"
	"flashsale/internal/service/saleprojection"
	"flashsale/internal/service/stats"
)

const (
	ErrInternalServer = "internal server error"
)

// JobLookup is the fallback used when the status cache has expired.
type JobLookup interface {
	GetByJobID(ctx context.Context, jobID string) (domain.Order, error)
}

type Server struct {
	httpServer *http.Server
	auth       *auth.Service
	admission  *admission.Service
	projection *saleprojection.Service
	stats      *stats.Service
	saleAdmin  *saleadmin.Service
	orders     JobLookup
}

func NewServer(
	addr string,
	authSvc *auth.Service,
	admissionSvc *admission.Service,
	projectionSvc *saleprojection.Service,
	statsSvc *stats.Service,
	saleAdminSvc *saleadmin.Service,
	orders JobLookup,
) *Server {
	s := &Server{
		auth:       authSvc,
		admission:  admissionSvc,
		projection: projectionSvc,
		stats:      statsSvc,
		saleAdmin:  saleAdminSvc,
		orders:     orders,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoverMiddleware)

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/verify", s.handleVerify)
	r.Get("/flash-sale/status", s.handleSaleStatus)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(authSvc))
		r.Post("/purchase", s.handlePurchase)
		r.Get("/purchase/status", s.handlePurchaseStatus)
		r.Get("/purchase/job/{jobId}", s.handlePurchaseJob)
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(authSvc))
		r.Use(requireAdmin)
		r.Post("/admin/flash-sale", s.handleCreateFlashSale)
		r.Get("/admin/flash-sale/{id}", s.handleGetFlashSale)
		r.Get("/admin/flash-sale/{id}/stats", s.handleFlashSaleStats)
	})

	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleHealth)
	r.Get("/health/live", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	return s
}

func (s *Server) Start(ctx context.Context) error {
	// Request contexts carry ctx's logger (but not its cancellation), so
	// handlers and middleware log through logger.FromContext(r.Context()).
	base := logger.WithContext(context.Background(), logger.FromContext(ctx))
	s.httpServer.BaseContext = func(net.Listener) context.Context { return base }

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.FromContext(ctx).Error().Err(err).Msg("http server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// statusFor maps a service-layer error to an HTTP status code using its
// apperr.Kind, per spec.md §6.
func statusFor(err error) (int, string) {
	switch {
	case apperr.IsKind(err, apperr.KindValidation):
		return http.StatusBadRequest, err.Error()
	case apperr.IsKind(err, apperr.KindAuthorization):
		return http.StatusUnauthorized, err.Error()
	case apperr.IsKind(err, apperr.KindBusiness):
		if errors.Is(err, apperr.ErrAlreadyPending) || errors.Is(err, apperr.ErrAlreadyPurchased) {
			return http.StatusConflict, err.Error()
		}
		if errors.Is(err, apperr.ErrTooManyAttempts) {
			return http.StatusTooManyRequests, err.Error()
		}
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, ErrInternalServer
	}
}
