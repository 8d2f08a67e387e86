package service

import (
	"errors"
	"fmt"
	"time"

	"pointsmill/internal/calculator"
	"pointsmill/internal/models"
	"pointsmill/internal/repository"
	"pointsmill/internal/validation"
)

var (
	// ErrZeroDelta means the adjustment would not change either balance.
	// Rejected before any database work.
	ErrZeroDelta = errors.New("adjustment has no effect")
)

// DefaultLogLimit caps recent-log queries when the caller does not say
const DefaultLogLimit = 50

// Adjustment is one requested balance change for one kid
type Adjustment struct {
	KidID        int64  `json:"kid_id"`
	PointsDelta  int    `json:"points_delta"`
	MinutesDelta int    `json:"minutes_delta"`
	Reason       string `json:"reason"`
	ActorName    string `json:"actor_name"`
}

// BatchResult reports a sequential batch of adjustments. Failures do not
// stop the batch; each kid's adjustment stands or falls on its own.
type BatchResult struct {
	Applied    []models.Kid
	Failed     int
	FirstError error
}

// LedgerService handles balance adjustments, conversions, and log queries
type LedgerService struct {
	ledgerRepo *repository.LedgerRepository
	kidRepo    *repository.KidRepository
	familyRepo *repository.FamilyRepository
}

// NewLedgerService creates a new ledger service
func NewLedgerService(ledgerRepo *repository.LedgerRepository, kidRepo *repository.KidRepository, familyRepo *repository.FamilyRepository) *LedgerService {
	return &LedgerService{
		ledgerRepo: ledgerRepo,
		kidRepo:    kidRepo,
		familyRepo: familyRepo,
	}
}

// Adjust validates and atomically applies a single adjustment, returning
// the kid with updated balances.
func (s *LedgerService) Adjust(familyID int64, adj Adjustment) (*models.Kid, error) {
	if adj.PointsDelta == 0 && adj.MinutesDelta == 0 {
		return nil, ErrZeroDelta
	}
	if err := validation.ValidateReason(adj.Reason); err != nil {
		return nil, err
	}
	return s.ledgerRepo.ApplyAdjustment(familyID, adj.KidID, adj.PointsDelta, adj.MinutesDelta, adj.Reason, adj.ActorName)
}

// ConvertMinutesToPoints trades part of a kid's minute balance for points
// at the family's rate. Minutes that do not make a whole point are left
// on the balance.
func (s *LedgerService) ConvertMinutesToPoints(familyID, kidID int64, minutes int, actorName string) (*models.Kid, error) {
	kid, rates, err := s.kidAndRates(familyID, kidID)
	if err != nil {
		return nil, err
	}

	conv, err := calculator.MinutesToPoints(minutes, kid.TotalMinutes, rates.PointToMinutes)
	if err != nil {
		return nil, err
	}

	return s.ledgerRepo.ApplyAdjustment(familyID, kidID, conv.PointsDelta, conv.MinutesDelta,
		"redeemed minutes for points", actorName)
}

// ConvertPointsToMinutes trades part of a kid's point balance for screen
// minutes at the family's rate.
func (s *LedgerService) ConvertPointsToMinutes(familyID, kidID int64, points int, actorName string) (*models.Kid, error) {
	kid, rates, err := s.kidAndRates(familyID, kidID)
	if err != nil {
		return nil, err
	}

	conv, err := calculator.PointsToMinutes(points, kid.TotalPoints, rates.PointToMinutes)
	if err != nil {
		return nil, err
	}

	return s.ledgerRepo.ApplyAdjustment(familyID, kidID, conv.PointsDelta, conv.MinutesDelta,
		"redeemed points for minutes", actorName)
}

// BatchAdjust applies the same delta to each kid in turn. A failure for one
// kid does not undo or block the others; the result carries what stuck.
func (s *LedgerService) BatchAdjust(familyID int64, kidIDs []int64, pointsDelta, minutesDelta int, reason, actorName string) (*BatchResult, error) {
	if pointsDelta == 0 && minutesDelta == 0 {
		return nil, ErrZeroDelta
	}
	if err := validation.ValidateReason(reason); err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, kidID := range kidIDs {
		kid, err := s.ledgerRepo.ApplyAdjustment(familyID, kidID, pointsDelta, minutesDelta, reason, actorName)
		if err != nil {
			result.Failed++
			if result.FirstError == nil {
				result.FirstError = fmt.Errorf("kid %d: %w", kidID, err)
			}
			continue
		}
		result.Applied = append(result.Applied, *kid)
	}
	return result, nil
}

// DeleteLog removes a log entry and reverts its effect on the kid's balances
func (s *LedgerService) DeleteLog(familyID, logID int64) (*models.Kid, error) {
	return s.ledgerRepo.DeleteLogAndRevert(familyID, logID)
}

// RecentLogs retrieves the family's newest log entries
func (s *LedgerService) RecentLogs(familyID int64, limit int) ([]models.PointLogWithKid, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return s.ledgerRepo.GetRecentLogs(familyID, limit)
}

// LogsInRange retrieves the family's log entries within [start, end)
func (s *LedgerService) LogsInRange(familyID int64, start, end time.Time) ([]models.PointLogWithKid, error) {
	return s.ledgerRepo.GetLogsInRange(familyID, start, end)
}

func (s *LedgerService) kidAndRates(familyID, kidID int64) (*models.Kid, models.RateTable, error) {
	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, models.RateTable{}, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, models.RateTable{}, ErrFamilyNotFound
	}

	kid, err := s.kidRepo.GetKidByID(kidID)
	if err != nil {
		return nil, models.RateTable{}, err
	}
	if kid == nil || kid.FamilyID != familyID {
		return nil, models.RateTable{}, repository.ErrKidNotFound
	}
	return kid, family.Rates, nil
}
