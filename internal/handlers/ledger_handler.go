package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pointsmill/internal/guard"
	"pointsmill/internal/models"
	"pointsmill/internal/service"
)

// ParentPINHeader carries the guard gate entry on kid-context mutations
const ParentPINHeader = "X-Parent-Pin"

// LedgerHandler handles balance adjustments, redemptions, and log queries
type LedgerHandler struct {
	ledgerService     *service.LedgerService
	familyService     *service.FamilyService
	exportService     *service.ExportService
	allocationService *service.AllocationService
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledgerService *service.LedgerService, familyService *service.FamilyService, exportService *service.ExportService, allocationService *service.AllocationService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService:     ledgerService,
		familyService:     familyService,
		exportService:     exportService,
		allocationService: allocationService,
	}
}

// Adjust applies a single adjustment to a kid as the logged-in parent
func (h *LedgerHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	user, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}
	kidID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid kid id", "", nil)
		return
	}

	var req struct {
		PointsDelta  int    `json:"points_delta"`
		MinutesDelta int    `json:"minutes_delta"`
		Reason       string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	kid, err := h.ledgerService.Adjust(family.ID, service.Adjustment{
		KidID:        kidID,
		PointsDelta:  req.PointsDelta,
		MinutesDelta: req.MinutesDelta,
		Reason:       req.Reason,
		ActorName:    user.Name,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, kid)
}

// BatchAdjust applies the same adjustment to several kids. Failures do not
// stop the batch; the response reports what stuck.
func (h *LedgerHandler) BatchAdjust(w http.ResponseWriter, r *http.Request) {
	user, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}

	var req struct {
		KidIDs       []int64 `json:"kid_ids"`
		PointsDelta  int     `json:"points_delta"`
		MinutesDelta int     `json:"minutes_delta"`
		Reason       string  `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.KidIDs) == 0 {
		respondWithError(w, http.StatusBadRequest, "kid_ids is required", "", nil)
		return
	}

	result, err := h.ledgerService.BatchAdjust(family.ID, req.KidIDs, req.PointsDelta, req.MinutesDelta, req.Reason, user.Name)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondBatchResult(w, result)
}

func respondBatchResult(w http.ResponseWriter, result *service.BatchResult) {
	status := http.StatusOK
	firstError := ""
	if result.Failed > 0 {
		status = http.StatusMultiStatus
		firstError = result.FirstError.Error()
	}
	applied := result.Applied
	if applied == nil {
		applied = []models.Kid{}
	}
	respondJSON(w, status, map[string]interface{}{
		"applied":     applied,
		"failed":      result.Failed,
		"first_error": firstError,
	})
}

// DeleteLog removes a log entry and reverts its deltas
func (h *LedgerHandler) DeleteLog(w http.ResponseWriter, r *http.Request) {
	_, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}
	logID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid log id", "", nil)
		return
	}

	kid, err := h.ledgerService.DeleteLog(family.ID, logID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, kid)
}

// GetLogs returns the family's newest log entries
func (h *LedgerHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	_, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.ledgerService.RecentLogs(family.ID, limit)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if logs == nil {
		logs = []models.PointLogWithKid{}
	}
	respondJSON(w, http.StatusOK, logs)
}

// GetLogsInRange returns the family's log entries within [start, end)
func (h *LedgerHandler) GetLogsInRange(w http.ResponseWriter, r *http.Request) {
	_, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}

	start, end, err := parseTimeRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	logs, err := h.ledgerService.LogsInRange(family.ID, start, end)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if logs == nil {
		logs = []models.PointLogWithKid{}
	}
	respondJSON(w, http.StatusOK, logs)
}

// ExportCSV streams the family's log entries as a CSV download
func (h *LedgerHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	_, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}

	start, end, err := parseTimeRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+service.ExportFilename(start, end))
	if err := h.exportService.WriteCSV(w, family.ID, start, end); err != nil {
		// Headers are out; all we can do is log
		respondWithError(w, http.StatusInternalServerError, "Export failed", "CSV export failed", err)
	}
}

// AllocateNow grants today's minute allotment to every kid in the family
func (h *LedgerHandler) AllocateNow(w http.ResponseWriter, r *http.Request) {
	_, family, ok := requireFamily(w, r, h.familyService)
	if !ok {
		return
	}

	result, err := h.allocationService.AllocateFamily(family, time.Now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondBatchResult(w, result)
}

// KidRedeemMinutes converts part of the logged-in kid's minute balance into
// points. Gated by the family PIN when enabled.
func (h *LedgerHandler) KidRedeemMinutes(w http.ResponseWriter, r *http.Request) {
	kidSession, family, ok := h.requireGuardedKid(w, r)
	if !ok {
		return
	}

	var req struct {
		Minutes int `json:"minutes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	kid, err := h.ledgerService.ConvertMinutesToPoints(family.ID, kidSession.KidID, req.Minutes, kidSession.Name)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, kid)
}

// KidRedeemPoints converts part of the logged-in kid's point balance into
// screen minutes. Gated by the family PIN when enabled.
func (h *LedgerHandler) KidRedeemPoints(w http.ResponseWriter, r *http.Request) {
	kidSession, family, ok := h.requireGuardedKid(w, r)
	if !ok {
		return
	}

	var req struct {
		Points int `json:"points"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	kid, err := h.ledgerService.ConvertPointsToMinutes(family.ID, kidSession.KidID, req.Points, kidSession.Name)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, kid)
}

// requireGuardedKid resolves the kid session and runs the guard gate
// against the X-Parent-Pin header. A missing entry aborts silently with
// 403; a wrong entry gets the distinct verification-failed message.
func (h *LedgerHandler) requireGuardedKid(w http.ResponseWriter, r *http.Request) (*models.KidSession, *models.Family, bool) {
	kidSession := GetKidSessionFromContext(r.Context())
	if kidSession == nil {
		respondWithError(w, http.StatusUnauthorized, "Not logged in", "", nil)
		return nil, nil, false
	}

	family, err := h.familyService.GetFamily(kidSession.FamilyID)
	if err != nil {
		respondWithServiceError(w, err)
		return nil, nil, false
	}

	actor := guard.Actor{Name: kidSession.Name, IsParent: false}
	gate := guard.Gate{Enabled: family.UsePIN, PIN: family.PIN}
	allowed, err := guard.Verify(actor, gate, r.Header.Get(ParentPINHeader))
	if err != nil {
		if errors.Is(err, guard.ErrPINMismatch) {
			respondWithError(w, http.StatusForbidden, err.Error(), "", nil)
			return nil, nil, false
		}
		respondWithServiceError(w, err)
		return nil, nil, false
	}
	if !allowed {
		respondJSON(w, http.StatusForbidden, nil)
		return nil, nil, false
	}
	return kidSession, family, true
}

// parseTimeRange reads start/end query params, accepting RFC3339 or plain
// dates. Defaults to the trailing 30 days.
func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	start := now.AddDate(0, 0, -30)
	end := now

	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := parseTimeParam(raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid start time")
		}
		start = parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := parseTimeParam(raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end time")
		}
		end = parsed
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("end must be after start")
	}
	return start, end, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
