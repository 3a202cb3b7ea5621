package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"flashsale/internal/apperr"
	"flashsale/internal/domain"
)

func (s *Server) handleCreateFlashSale(w http.ResponseWriter, r *http.Request) {
	var req CreateFlashSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.EndTime.After(req.StartTime) {
		respondWithError(w, http.StatusBadRequest, "End time must be after start time")
		return
	}
	if req.ProductID == "" {
		respondWithError(w, http.StatusBadRequest, apperr.ErrInvalidProductID.Error())
		return
	}

	// spec.md §4.6's createOrUpdateSale({saleId?, ...}) contract: a request
	// that names an existing saleId is an update, otherwise it is a create.
	if req.SaleID != "" {
		sale := domain.FlashSale{
			SaleID:    req.SaleID,
			ProductID: req.ProductID,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
		}
		if err := s.saleAdmin.Update(r.Context(), sale); err != nil {
			status, msg := statusFor(err)
			respondWithError(w, status, msg)
			return
		}
		respondWithJSON(w, http.StatusOK, FlashSaleResponse{
			SaleID:    sale.SaleID,
			ProductID: sale.ProductID,
			StartTime: sale.StartTime.Format(timeLayout),
			EndTime:   sale.EndTime.Format(timeLayout),
			Status:    string(sale.Status(time.Now())),
		})
		return
	}

	sale := domain.FlashSale{
		SaleID:    uuid.NewString(),
		ProductID: req.ProductID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}

	if err := s.saleAdmin.Create(r.Context(), sale, req.Quantity); err != nil {
		status, msg := statusFor(err)
		respondWithError(w, status, msg)
		return
	}

	respondWithJSON(w, http.StatusOK, FlashSaleResponse{
		SaleID:    sale.SaleID,
		ProductID: sale.ProductID,
		StartTime: sale.StartTime.Format(timeLayout),
		EndTime:   sale.EndTime.Format(timeLayout),
		Status:    string(sale.Status(time.Now())),
	})
}

func (s *Server) handleGetFlashSale(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "invalid id")
		return
	}

	view, err := s.projection.StatusBySaleID(r.Context(), id)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "flash sale not found")
		return
	}

	respondWithJSON(w, http.StatusOK, SaleStatus{
		SaleID:            view.SaleID,
		ProductID:         view.ProductID,
		ProductName:       view.ProductName,
		ProductPrice:      view.ProductPrice,
		StartTime:         view.StartTime.Format(timeLayout),
		EndTime:           view.EndTime.Format(timeLayout),
		Status:            string(view.Status),
		TotalQuantity:     view.TotalQuantity,
		AvailableQuantity: view.AvailableQuantity,
	})
}

func (s *Server) handleFlashSaleStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := s.projection.StatusBySaleID(r.Context(), id)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "flash sale not found")
		return
	}

	st, err := s.stats.ForProduct(r.Context(), view.ProductID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "flash sale not found")
		return
	}

	respondWithJSON(w, http.StatusOK, StatsResponse{
		TotalOrders:       st.TotalOrders,
		ConfirmedOrders:   st.ConfirmedOrders,
		PendingOrders:     st.PendingOrders,
		FailedOrders:      st.FailedOrders,
		TotalQuantity:     st.TotalQuantity,
		AvailableQuantity: st.AvailableQuantity,
		SoldQuantity:      st.SoldQuantity,
		TotalRevenue:      st.TotalRevenue,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
