package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flashsale/internal/domain"
)

type purchaseRequest struct {
	ProductID string `json:"productId"`
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		respondWithError(w, http.StatusBadRequest, "invalid productId")
		return
	}

	job, err := s.admission.Submit(r.Context(), claims.UserID, req.ProductID)
	if err != nil {
		status, msg := statusFor(err)
		respondWithJSON(w, status, ErrorResponse{Error: msg})
		return
	}

	respondWithJSON(w, http.StatusAccepted, PurchaseResponse{
		JobID:             job.JobID,
		Status:            string(job.Status),
		EstimatedWaitTime: 5,
	})
}

func (s *Server) handlePurchaseStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	productID := r.URL.Query().Get("productId")
	if productID == "" {
		respondWithError(w, http.StatusBadRequest, "missing productId")
		return
	}

	job, found, err := s.admission.StatusForUserProduct(r.Context(), claims.UserID, productID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServer)
		return
	}
	if !found {
		respondWithJSON(w, http.StatusOK, PurchaseStatusResponse{Status: "none"})
		return
	}

	respondWithJSON(w, http.StatusOK, jobToResponse(job))
}

func (s *Server) handlePurchaseJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	job, err := s.admission.Status(r.Context(), jobID, func(ctx context.Context, jobID string) (domain.PurchaseJob, error) {
		order, err := s.orders.GetByJobID(ctx, jobID)
		if err != nil {
			return domain.PurchaseJob{}, err
		}
		return domain.PurchaseJob{
			JobID:     order.JobID,
			UserID:    order.UserID,
			ProductID: order.ProductID,
			Status:    domain.JobStatusCompleted,
			OrderID:   order.OrderID,
		}, nil
	})
	if err != nil {
		respondWithError(w, http.StatusNotFound, "job not found")
		return
	}

	respondWithJSON(w, http.StatusOK, jobToResponse(job))
}

func jobToResponse(job domain.PurchaseJob) PurchaseStatusResponse {
	resp := PurchaseStatusResponse{
		Status:        string(job.Status),
		JobID:         job.JobID,
		OrderID:       job.OrderID,
		FailureReason: string(job.FailureReason),
	}
	if job.Status == domain.JobStatusQueued || job.Status == domain.JobStatusProcessing {
		resp.EstimatedWaitTime = 5
	}
	if job.Status == domain.JobStatusCompleted {
		purchasedAt := job.EnqueuedAt
		resp.PurchasedAt = &purchasedAt
	}
	return resp
}
