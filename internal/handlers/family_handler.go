package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"pointsmill/internal/models"
	"pointsmill/internal/service"
)

// FamilyHandler handles family settings, membership, and invitations
type FamilyHandler struct {
	familyService *service.FamilyService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{familyService: familyService}
}

// requireFamily resolves the logged-in parent's family. Writes the error
// response itself when resolution fails.
func requireFamily(w http.ResponseWriter, r *http.Request, familyService *service.FamilyService) (*models.User, *models.Family, bool) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithError(w, http.StatusUnauthorized, "Not logged in", "", nil)
		return nil, nil, false
	}

	family, err := familyService.GetUserFamily(user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return nil, nil, false
	}
	return user, family, true
}

// GetOverview returns the family, its kids, and their goals
func (h *FamilyHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	_, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}

	overview, err := h.familyService.GetOverview(family.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, overview)
}

type settingsRequest struct {
	Name           string          `json:"name"`
	WeekdayLimit   int             `json:"weekday_limit"`
	HolidayLimit   int             `json:"holiday_limit"`
	PointToMinutes int             `json:"point_to_minutes"`
	PointToCash    decimal.Decimal `json:"point_to_cash"`
	UsePIN         bool            `json:"use_pin"`
	PIN            string          `json:"pin"`
	Theme          string          `json:"theme"`
	AutoAllocate   bool            `json:"auto_allocate"`
}

// UpdateSettings saves the family's name, rate table, guard gate, and theme
func (h *FamilyHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	_, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}

	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rates := models.RateTable{
		WeekdayLimit:   req.WeekdayLimit,
		HolidayLimit:   req.HolidayLimit,
		PointToMinutes: req.PointToMinutes,
		PointToCash:    req.PointToCash,
	}

	updated, err := h.familyService.UpdateSettings(family.ID, req.Name, rates, req.UsePIN, req.PIN, req.Theme, req.AutoAllocate)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// GetMembers returns the family's parents
func (h *FamilyHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	_, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}

	members, users, err := h.familyService.GetMembers(family.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	type memberView struct {
		models.FamilyMember
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	views := make([]memberView, len(members))
	for i := range members {
		views[i] = memberView{FamilyMember: members[i], Name: users[i].Name, Email: users[i].Email}
	}
	respondJSON(w, http.StatusOK, views)
}

// Invite emails a co-parent invitation
func (h *FamilyHandler) Invite(w http.ResponseWriter, r *http.Request) {
	user, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	invitation, err := h.familyService.InviteMember(r.Context(), family.ID, req.Email, user.Name)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, invitation)
}

// Join adds the logged-in parent to a family, by invitation token or by
// join code.
func (h *FamilyHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithError(w, http.StatusUnauthorized, "Not logged in", "", nil)
		return
	}

	var req struct {
		Token    string `json:"token"`
		JoinCode string `json:"join_code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var family *models.Family
	var err error
	switch {
	case req.Token != "":
		family, err = h.familyService.AcceptInvitation(req.Token, user.ID)
	case req.JoinCode != "":
		family, err = h.familyService.JoinByCode(user.ID, req.JoinCode)
	default:
		respondWithError(w, http.StatusBadRequest, "token or join_code is required", "", nil)
		return
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, family)
}
