package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"pointsmill/internal/calculator"
	"pointsmill/internal/repository"
	"pointsmill/internal/service"
	"pointsmill/internal/validation"
)

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondJSON(w, status, map[string]string{"error": userMsg})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return false
	}
	return true
}

// respondWithServiceError maps service-layer errors onto HTTP statuses.
// Validation and balance problems are the caller's fault; everything
// unrecognized is a 500.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var validationErr validation.ValidationError
	if errors.As(err, &validationErr) {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrZeroDelta),
		errors.Is(err, service.ErrInvalidRates),
		errors.Is(err, calculator.ErrInvalidAmount),
		errors.Is(err, calculator.ErrAmountTooSmall),
		errors.Is(err, calculator.ErrInsufficientBalance),
		errors.Is(err, repository.ErrInsufficientBalance):
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrKidLoginFailed):
		respondWithError(w, http.StatusUnauthorized, err.Error(), "", nil)

	case errors.Is(err, service.ErrNotFamilyMember):
		respondWithError(w, http.StatusForbidden, err.Error(), "", nil)

	case errors.Is(err, repository.ErrKidNotFound),
		errors.Is(err, repository.ErrLogNotFound),
		errors.Is(err, service.ErrFamilyNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), "", nil)

	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrKidNameTaken),
		errors.Is(err, repository.ErrConcurrentUpdate):
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)

	case errors.Is(err, service.ErrInvalidJoinCode),
		errors.Is(err, service.ErrInvitationInvalid),
		errors.Is(err, service.ErrInvitationAccepted):
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)

	default:
		respondWithError(w, http.StatusInternalServerError, "Something went wrong", "Unhandled service error", err)
	}
}
