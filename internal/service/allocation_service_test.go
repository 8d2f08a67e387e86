package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointsmill/internal/models"
)

func TestDailyAllotment(t *testing.T) {
	rates := models.RateTable{WeekdayLimit: 50, HolidayLimit: 90, PointToMinutes: 2}

	tests := []struct {
		name        string
		day         time.Time
		wantMinutes int
		wantReason  string
	}{
		{"monday", time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC), 50, "weekday allocation"},
		{"friday", time.Date(2026, 1, 9, 6, 0, 0, 0, time.UTC), 50, "weekday allocation"},
		{"saturday", time.Date(2026, 1, 10, 6, 0, 0, 0, time.UTC), 90, "holiday allocation"},
		{"sunday", time.Date(2026, 1, 11, 6, 0, 0, 0, time.UTC), 90, "holiday allocation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minutes, reason := DailyAllotment(rates, tt.day)
			assert.Equal(t, tt.wantMinutes, minutes)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestNextRun(t *testing.T) {
	svc := &AllocationService{hour: 6}

	beforeSix := time.Date(2026, 1, 5, 4, 30, 0, 0, time.UTC)
	next := svc.nextRun(beforeSix)
	assert.Equal(t, time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC), next)

	afterSix := time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)
	next = svc.nextRun(afterSix)
	assert.Equal(t, time.Date(2026, 1, 6, 6, 0, 0, 0, time.UTC), next)

	exactlySix := time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC)
	next = svc.nextRun(exactlySix)
	assert.Equal(t, time.Date(2026, 1, 6, 6, 0, 0, 0, time.UTC), next)
}

func TestAllocateFamilyGrantsMinutesToAllKids(t *testing.T) {
	f := setupLedgerTest(t)

	kid2, err := f.kidRepo.CreateKid(f.family.ID, "Ada", "owl", "5678", 1)
	require.NoError(t, err)

	alloc := NewAllocationService(f.familyRepo, f.kidRepo, f.svc, 6)

	saturday := time.Date(2026, 1, 10, 6, 0, 0, 0, time.UTC)
	result, err := alloc.AllocateFamily(f.family, saturday)
	require.NoError(t, err)
	assert.Len(t, result.Applied, 2)
	assert.Zero(t, result.Failed)

	for _, id := range []int64{f.kid.ID, kid2.ID} {
		kid, err := f.kidRepo.GetKidByID(id)
		require.NoError(t, err)
		assert.Equal(t, 90, kid.TotalMinutes)
	}

	logs, err := f.svc.RecentLogs(f.family.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, entry := range logs {
		assert.Equal(t, "holiday allocation", entry.Reason)
		assert.Equal(t, AllocationActor, entry.ActorName)
	}
}

func TestRunOnceSkipsFamiliesWithoutAutoAllocate(t *testing.T) {
	f := setupLedgerTest(t)

	alloc := NewAllocationService(f.familyRepo, f.kidRepo, f.svc, 6)
	alloc.RunOnce(time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC))

	// auto_allocate is off by default, so nothing should be granted
	kid, err := f.kidRepo.GetKidByID(f.kid.ID)
	require.NoError(t, err)
	assert.Zero(t, kid.TotalMinutes)
}

func TestRunOnceAllocatesEnabledFamilies(t *testing.T) {
	f := setupLedgerTest(t)

	err := f.familyRepo.UpdateSettings(f.family.ID, f.family.Name, f.family.Rates, false, "", "", true)
	require.NoError(t, err)

	alloc := NewAllocationService(f.familyRepo, f.kidRepo, f.svc, 6)
	alloc.RunOnce(time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC))

	kid, err := f.kidRepo.GetKidByID(f.kid.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, kid.TotalMinutes)
}
