package service

import (
	"context"
	"log"
	"time"

	"pointsmill/internal/models"
	"pointsmill/internal/repository"
)

// AllocationActor names the scheduler in log entries
const AllocationActor = "auto"

// AllocationService grants the day's screen-minute allotment to every kid
// of families that enabled automatic allocation.
type AllocationService struct {
	familyRepo    *repository.FamilyRepository
	kidRepo       *repository.KidRepository
	ledgerService *LedgerService
	hour          int
}

// NewAllocationService creates a new allocation service. hour is the local
// hour of day (0-23) at which the daily run fires.
func NewAllocationService(familyRepo *repository.FamilyRepository, kidRepo *repository.KidRepository, ledgerService *LedgerService, hour int) *AllocationService {
	return &AllocationService{
		familyRepo:    familyRepo,
		kidRepo:       kidRepo,
		ledgerService: ledgerService,
		hour:          hour,
	}
}

// DailyAllotment returns the minutes to grant on the given day and the
// reason to record. Weekends count as holidays.
func DailyAllotment(rates models.RateTable, day time.Time) (int, string) {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return rates.HolidayLimit, "holiday allocation"
	default:
		return rates.WeekdayLimit, "weekday allocation"
	}
}

// AllocateFamily grants the day's allotment to every kid in the family.
// Per-kid failures do not block the rest of the family.
func (s *AllocationService) AllocateFamily(family *models.Family, day time.Time) (*BatchResult, error) {
	minutes, reason := DailyAllotment(family.Rates, day)

	kids, err := s.kidRepo.GetFamilyKids(family.ID)
	if err != nil {
		return nil, err
	}
	if len(kids) == 0 {
		return &BatchResult{}, nil
	}

	kidIDs := make([]int64, len(kids))
	for i, kid := range kids {
		kidIDs[i] = kid.ID
	}
	return s.ledgerService.BatchAdjust(family.ID, kidIDs, 0, minutes, reason, AllocationActor)
}

// RunOnce allocates for every auto-allocate family. A family's failure does
// not block the others.
func (s *AllocationService) RunOnce(day time.Time) {
	families, err := s.familyRepo.ListAutoAllocateFamilies()
	if err != nil {
		log.Printf("Allocation run failed to list families: %v", err)
		return
	}

	for i := range families {
		family := &families[i]
		result, err := s.AllocateFamily(family, day)
		if err != nil {
			log.Printf("Allocation failed for family %d: %v", family.ID, err)
			continue
		}
		if result.Failed > 0 {
			log.Printf("Allocation for family %d: %d applied, %d failed, first error: %v",
				family.ID, len(result.Applied), result.Failed, result.FirstError)
		} else {
			log.Printf("Allocation for family %d: %d kids", family.ID, len(result.Applied))
		}
	}
}

// Start runs the daily allocation loop until ctx is cancelled
func (s *AllocationService) Start(ctx context.Context) {
	go func() {
		for {
			next := s.nextRun(time.Now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.RunOnce(next)
			}
		}
	}()
	log.Printf("Allocation scheduler started: daily at %02d:00", s.hour)
}

// nextRun returns the next occurrence of the configured hour after now
func (s *AllocationService) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
