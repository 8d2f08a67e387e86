package handlers

import (
	"net/http"
	"strconv"

	"pointsmill/internal/calculator"
	"pointsmill/internal/service"
)

// KidHandler handles kid profiles, goals, and the kid-facing dashboard
type KidHandler struct {
	familyService *service.FamilyService
}

// NewKidHandler creates a new kid handler
func NewKidHandler(familyService *service.FamilyService) *KidHandler {
	return &KidHandler{familyService: familyService}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// CreateKid adds a kid to the parent's family
func (h *KidHandler) CreateKid(w http.ResponseWriter, r *http.Request) {
	_, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name"`
		AvatarGlyph string `json:"avatar_glyph"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	kid, err := h.familyService.AddKid(family.ID, req.Name, req.AvatarGlyph)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, kid)
}

// UpdateKid updates a kid's profile fields
func (h *KidHandler) UpdateKid(w http.ResponseWriter, r *http.Request) {
	_, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}
	kidID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid kid id", "", nil)
		return
	}

	var req struct {
		Name         string `json:"name"`
		AvatarGlyph  string `json:"avatar_glyph"`
		PIN          string `json:"pin"`
		SortPosition int    `json:"sort_position"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	kid, err := h.familyService.UpdateKid(family.ID, kidID, req.Name, req.AvatarGlyph, req.PIN, req.SortPosition)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, kid)
}

// DeleteKid removes a kid and their history
func (h *KidHandler) DeleteKid(w http.ResponseWriter, r *http.Request) {
	_, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}
	kidID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid kid id", "", nil)
		return
	}

	if err := h.familyService.DeleteKid(family.ID, kidID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// SaveGoal sets a kid's reward goal, replacing any existing one
func (h *KidHandler) SaveGoal(w http.ResponseWriter, r *http.Request) {
	_, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}
	kidID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid kid id", "", nil)
		return
	}

	var req struct {
		Title        string `json:"title"`
		TargetPoints int    `json:"target_points"`
		ImageRef     string `json:"image_ref"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	goal, err := h.familyService.SaveGoal(family.ID, kidID, req.Title, req.TargetPoints, req.ImageRef)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, goal)
}

// DeleteGoal removes a kid's reward goal
func (h *KidHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	_, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}
	kidID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid kid id", "", nil)
		return
	}

	if err := h.familyService.DeleteGoal(family.ID, kidID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// KidDashboard returns the logged-in kid's balances, goal, and the rates
// that drive the kid-facing displays.
func (h *KidHandler) KidDashboard(w http.ResponseWriter, r *http.Request) {
	kidSession := GetKidSessionFromContext(r.Context())
	if kidSession == nil {
		respondWithError(w, http.StatusUnauthorized, "Not logged in", "", nil)
		return
	}

	kid, err := h.familyService.GetKid(kidSession.FamilyID, kidSession.KidID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	family, err := h.familyService.GetFamily(kidSession.FamilyID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	goal, err := h.familyService.GetKidGoal(kid.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"kid":        kid,
		"goal":       goal,
		"rates":      family.Rates,
		"use_pin":    family.UsePIN,
		"theme":      family.Theme,
		"cash_value": calculator.CashValue(kid.TotalPoints, family.Rates.PointToCash),
	})
}
