package http

import (
	"encoding/json"
	"net/http"

	"flashsale/internal/apperr"
	"flashsale/internal/domain"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		respondWithError(w, http.StatusBadRequest, "invalid email")
		return
	}

	token, user, err := s.auth.Login(r.Context(), req.Email)
	if err != nil {
		status, msg := statusFor(err)
		respondWithError(w, status, msg)
		return
	}

	userType := "regular"
	if user.Role == domain.RoleAdmin {
		userType = "admin"
	}

	respondWithJSON(w, http.StatusOK, LoginResponse{
		Token:    token,
		UserType: userType,
		Email:    user.Email,
		UserID:   user.UserID,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token := header
	if len(header) > 7 && header[:7] == "Bearer " {
		token = header[7:]
	}

	claims, err := s.auth.Verify(r.Context(), token)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, apperr.ErrInvalidToken.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, VerifyResponse{
		Valid:    true,
		UserID:   claims.UserID,
		UserType: string(claims.Role),
	})
}
