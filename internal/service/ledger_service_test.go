package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointsmill/internal/calculator"
	"pointsmill/internal/database"
	"pointsmill/internal/models"
	"pointsmill/internal/repository"
)

type ledgerFixture struct {
	svc        *LedgerService
	ledgerRepo *repository.LedgerRepository
	kidRepo    *repository.KidRepository
	familyRepo *repository.FamilyRepository
	family     *models.Family
	kid        *models.Kid
}

func setupLedgerTest(t *testing.T) *ledgerFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations("../../migrations"))

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	kidRepo := repository.NewKidRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	user, err := userRepo.CreateUser("parent@example.com", "hash", "Sam")
	require.NoError(t, err)
	family, err := familyRepo.CreateFamily("Testers", "TESTER", user.ID)
	require.NoError(t, err)
	// Reload so defaults applied at row load are present
	family, err = familyRepo.GetFamilyByID(family.ID)
	require.NoError(t, err)
	require.Equal(t, 2, family.Rates.PointToMinutes)

	kid, err := kidRepo.CreateKid(family.ID, "Milo", "fox", "1234", 0)
	require.NoError(t, err)

	return &ledgerFixture{
		svc:        NewLedgerService(ledgerRepo, kidRepo, familyRepo),
		ledgerRepo: ledgerRepo,
		kidRepo:    kidRepo,
		familyRepo: familyRepo,
		family:     family,
		kid:        kid,
	}
}

func (f *ledgerFixture) seed(t *testing.T, points, minutes int) {
	t.Helper()
	_, err := f.svc.Adjust(f.family.ID, Adjustment{
		KidID:        f.kid.ID,
		PointsDelta:  points,
		MinutesDelta: minutes,
		Reason:       "starting balance",
		ActorName:    "Sam",
	})
	require.NoError(t, err)
}

func (f *ledgerFixture) assertInvariant(t *testing.T) {
	t.Helper()
	kid, err := f.kidRepo.GetKidByID(f.kid.ID)
	require.NoError(t, err)
	points, minutes, err := f.ledgerRepo.SumKidDeltas(f.kid.ID)
	require.NoError(t, err)
	assert.Equal(t, kid.TotalPoints, points, "sum of log point deltas must equal live points")
	assert.Equal(t, kid.TotalMinutes, minutes, "sum of log minute deltas must equal live minutes")
}

func TestAdjustUpdatesBalancesAndLog(t *testing.T) {
	f := setupLedgerTest(t)

	kid, err := f.svc.Adjust(f.family.ID, Adjustment{
		KidID:        f.kid.ID,
		PointsDelta:  10,
		MinutesDelta: 0,
		Reason:       "emptied dishwasher",
		ActorName:    "Sam",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, kid.TotalPoints)
	assert.Equal(t, 0, kid.TotalMinutes)

	logs, err := f.svc.RecentLogs(f.family.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 10, logs[0].PointsDelta)
	assert.Equal(t, "emptied dishwasher", logs[0].Reason)
	assert.Equal(t, "Milo", logs[0].KidName)

	f.assertInvariant(t)
}

func TestAdjustZeroDeltaRejectedWithoutLog(t *testing.T) {
	f := setupLedgerTest(t)

	_, err := f.svc.Adjust(f.family.ID, Adjustment{
		KidID:     f.kid.ID,
		Reason:    "nothing",
		ActorName: "Sam",
	})
	assert.ErrorIs(t, err, ErrZeroDelta)

	logs, err := f.svc.RecentLogs(f.family.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestAdjustInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	f := setupLedgerTest(t)
	f.seed(t, 5, 0)

	_, err := f.svc.Adjust(f.family.ID, Adjustment{
		KidID:       f.kid.ID,
		PointsDelta: -10,
		Reason:      "too big",
		ActorName:   "Sam",
	})
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)

	kid, err := f.kidRepo.GetKidByID(f.kid.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, kid.TotalPoints)

	logs, err := f.svc.RecentLogs(f.family.ID, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1, "only the seed entry should exist")
	f.assertInvariant(t)
}

func TestConvertMinutesToPoints(t *testing.T) {
	f := setupLedgerTest(t)
	f.seed(t, 0, 100)

	// 45 minutes at 2 minutes per point: 22 points earned, 44 minutes
	// consumed, the odd minute stays on the balance
	kid, err := f.svc.ConvertMinutesToPoints(f.family.ID, f.kid.ID, 45, "Milo")
	require.NoError(t, err)
	assert.Equal(t, 22, kid.TotalPoints)
	assert.Equal(t, 56, kid.TotalMinutes)

	logs, err := f.svc.RecentLogs(f.family.ID, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 22, logs[0].PointsDelta)
	assert.Equal(t, -44, logs[0].MinutesDelta)
	assert.Equal(t, "Milo", logs[0].ActorName)

	f.assertInvariant(t)
}

func TestConvertMinutesToPointsRejectsTooSmall(t *testing.T) {
	f := setupLedgerTest(t)
	f.seed(t, 0, 100)

	_, err := f.svc.ConvertMinutesToPoints(f.family.ID, f.kid.ID, 1, "Milo")
	assert.ErrorIs(t, err, calculator.ErrAmountTooSmall)

	logs, err := f.svc.RecentLogs(f.family.ID, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestConvertPointsToMinutes(t *testing.T) {
	f := setupLedgerTest(t)
	f.seed(t, 5, 0)

	kid, err := f.svc.ConvertPointsToMinutes(f.family.ID, f.kid.ID, 5, "Milo")
	require.NoError(t, err)
	assert.Equal(t, 0, kid.TotalPoints)
	assert.Equal(t, 10, kid.TotalMinutes)
	f.assertInvariant(t)
}

func TestConvertPointsToMinutesInsufficient(t *testing.T) {
	f := setupLedgerTest(t)
	f.seed(t, 3, 0)

	_, err := f.svc.ConvertPointsToMinutes(f.family.ID, f.kid.ID, 5, "Milo")
	assert.ErrorIs(t, err, calculator.ErrInsufficientBalance)
}

func TestBatchAdjustContinuesPastFailures(t *testing.T) {
	f := setupLedgerTest(t)
	f.seed(t, 50, 0)

	kid2, err := f.kidRepo.CreateKid(f.family.ID, "Ada", "owl", "5678", 1)
	require.NoError(t, err)
	kid3, err := f.kidRepo.CreateKid(f.family.ID, "Finn", "bear", "9012", 2)
	require.NoError(t, err)

	// kid2 and kid3 have zero points, so -10 fails for them
	result, err := f.svc.BatchAdjust(f.family.ID, []int64{f.kid.ID, kid2.ID, kid3.ID}, -10, 0, "lost screen time", "Sam")
	require.NoError(t, err)
	assert.Len(t, result.Applied, 1)
	assert.Equal(t, 2, result.Failed)
	require.Error(t, result.FirstError)
	assert.ErrorIs(t, result.FirstError, repository.ErrInsufficientBalance)
	assert.Equal(t, 40, result.Applied[0].TotalPoints)
}

func TestBatchAdjustAllApplied(t *testing.T) {
	f := setupLedgerTest(t)

	kid2, err := f.kidRepo.CreateKid(f.family.ID, "Ada", "owl", "5678", 1)
	require.NoError(t, err)

	result, err := f.svc.BatchAdjust(f.family.ID, []int64{f.kid.ID, kid2.ID}, 0, 50, "weekday allocation", AllocationActor)
	require.NoError(t, err)
	assert.Len(t, result.Applied, 2)
	assert.Zero(t, result.Failed)
	assert.Nil(t, result.FirstError)
	for _, kid := range result.Applied {
		assert.Equal(t, 50, kid.TotalMinutes)
	}
}

func TestDeleteLogRevertsDeltas(t *testing.T) {
	f := setupLedgerTest(t)
	f.seed(t, 30, 40)

	_, err := f.svc.Adjust(f.family.ID, Adjustment{
		KidID:        f.kid.ID,
		PointsDelta:  10,
		MinutesDelta: -20,
		Reason:       "mistake",
		ActorName:    "Sam",
	})
	require.NoError(t, err)

	logs, err := f.svc.RecentLogs(f.family.ID, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	kid, err := f.svc.DeleteLog(f.family.ID, logs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 30, kid.TotalPoints)
	assert.Equal(t, 40, kid.TotalMinutes)

	remaining, err := f.svc.RecentLogs(f.family.ID, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "only the seed entry should remain")
	f.assertInvariant(t)
}

func TestDeleteLogBlockedWhenRevertWouldGoNegative(t *testing.T) {
	f := setupLedgerTest(t)
	f.seed(t, 0, 60)

	// Earn points from minutes, then spend them
	_, err := f.svc.ConvertMinutesToPoints(f.family.ID, f.kid.ID, 60, "Milo")
	require.NoError(t, err)
	_, err = f.svc.Adjust(f.family.ID, Adjustment{
		KidID:       f.kid.ID,
		PointsDelta: -30,
		Reason:      "toy store",
		ActorName:   "Sam",
	})
	require.NoError(t, err)

	// Deleting the conversion would revert -30 points from a 0 balance
	logs, err := f.svc.RecentLogs(f.family.ID, 10)
	require.NoError(t, err)
	var conversionLogID int64
	for _, entry := range logs {
		if entry.PointsDelta == 30 {
			conversionLogID = entry.ID
		}
	}
	require.NotZero(t, conversionLogID)

	_, err = f.svc.DeleteLog(f.family.ID, conversionLogID)
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)
	f.assertInvariant(t)
}

func TestDeleteLogNotFound(t *testing.T) {
	f := setupLedgerTest(t)

	_, err := f.svc.DeleteLog(f.family.ID, 9999)
	assert.ErrorIs(t, err, repository.ErrLogNotFound)
}

func TestAdjustUnknownKid(t *testing.T) {
	f := setupLedgerTest(t)

	_, err := f.svc.Adjust(f.family.ID, Adjustment{
		KidID:       9999,
		PointsDelta: 5,
		Reason:      "ghost",
		ActorName:   "Sam",
	})
	assert.ErrorIs(t, err, repository.ErrKidNotFound)
}

func TestLogsInRange(t *testing.T) {
	f := setupLedgerTest(t)
	f.seed(t, 10, 0)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)

	logs, err := f.svc.LogsInRange(f.family.ID, start, end)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	past, err := f.svc.LogsInRange(f.family.ID, start.Add(-48*time.Hour), start)
	require.NoError(t, err)
	assert.Empty(t, past)
}
