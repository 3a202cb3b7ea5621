package http

import (
	"errors"
	"net/http"

	"flashsale/internal/apperr"
)

func (s *Server) handleSaleStatus(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("productId")
	if productID == "" {
		respondWithJSON(w, http.StatusOK, SaleStatusResponse{Data: nil})
		return
	}

	view, err := s.projection.Status(r.Context(), productID)
	if err != nil {
		if errors.Is(err, apperr.ErrNoActiveSale) {
			respondWithJSON(w, http.StatusOK, SaleStatusResponse{Data: nil})
			return
		}
		respondWithError(w, http.StatusInternalServerError, ErrInternalServer)
		return
	}

	respondWithJSON(w, http.StatusOK, SaleStatusResponse{Data: &SaleStatus{
		SaleID:            view.SaleID,
		ProductID:         view.ProductID,
		ProductName:       view.ProductName,
		ProductPrice:      view.ProductPrice,
		StartTime:         view.StartTime.Format(timeLayout),
		EndTime:           view.EndTime.Format(timeLayout),
		Status:            string(view.Status),
		TotalQuantity:     view.TotalQuantity,
		AvailableQuantity: view.AvailableQuantity,
		TimeUntilStart:    view.TimeUntilStart.Milliseconds(),
		TimeUntilEnd:      view.TimeUntilEnd.Milliseconds(),
	}})
}

const timeLayout = "2006-01-02T15:04:05Z07:00"
