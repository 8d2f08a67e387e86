package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pointsmill/internal/database"
	"pointsmill/internal/models"
)

var (
	// ErrKidNotFound means the target kid does not exist in the family
	ErrKidNotFound = errors.New("kid not found")
	// ErrLogNotFound means the log entry does not exist
	ErrLogNotFound = errors.New("log entry not found")
	// ErrInsufficientBalance means the adjustment would drive a balance negative
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrConcurrentUpdate means another writer changed the kid's balances
	// between the read and the write; the caller may retry.
	ErrConcurrentUpdate = errors.New("concurrent balance update")
)

// LedgerRepository owns the two operations that must be atomic: applying an
// adjustment (balance mutation + log insert together or not at all) and the
// compensating delete (log removal + delta reversal together or not at
// all). Both run in a single database transaction and enforce the
// non-negative balance invariant, so the sum of remaining log deltas for a
// kid always equals the kid's live balances.
type LedgerRepository struct {
	db *database.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// ApplyAdjustment atomically mutates a kid's balances and appends the log
// entry recording the change. Returns the kid with updated balances.
func (r *LedgerRepository) ApplyAdjustment(familyID, kidID int64, pointsDelta, minutesDelta int, reason, actorName string) (*models.Kid, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	kid, err := kidForUpdate(tx, familyID, kidID)
	if err != nil {
		return nil, err
	}

	newPoints := kid.TotalPoints + pointsDelta
	newMinutes := kid.TotalMinutes + minutesDelta
	if newPoints < 0 || newMinutes < 0 {
		return nil, ErrInsufficientBalance
	}

	if err := writeBalances(tx, kid, newPoints, newMinutes); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO point_logs (family_id, kid_id, points_delta, minutes_delta, reason, actor_name)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.Exec(query, familyID, kidID, pointsDelta, minutesDelta, reason, actorName); err != nil {
		return nil, fmt.Errorf("failed to insert log entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit adjustment: %w", err)
	}

	kid.TotalPoints = newPoints
	kid.TotalMinutes = newMinutes
	kid.UpdatedAt = time.Now()
	return kid, nil
}

// DeleteLogAndRevert atomically deletes a log entry and subtracts its
// recorded deltas back out of the kid's live balances. Returns the kid
// with reverted balances.
func (r *LedgerRepository) DeleteLogAndRevert(familyID, logID int64) (*models.Kid, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var kidID int64
	var pointsDelta, minutesDelta int
	query := "SELECT kid_id, points_delta, minutes_delta FROM point_logs WHERE id = ? AND family_id = ?"
	err = tx.QueryRow(query, logID, familyID).Scan(&kidID, &pointsDelta, &minutesDelta)
	if err == sql.ErrNoRows {
		return nil, ErrLogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get log entry: %w", err)
	}

	kid, err := kidForUpdate(tx, familyID, kidID)
	if err != nil {
		return nil, err
	}

	newPoints := kid.TotalPoints - pointsDelta
	newMinutes := kid.TotalMinutes - minutesDelta
	if newPoints < 0 || newMinutes < 0 {
		return nil, ErrInsufficientBalance
	}

	if err := writeBalances(tx, kid, newPoints, newMinutes); err != nil {
		return nil, err
	}

	if _, err := tx.Exec("DELETE FROM point_logs WHERE id = ?", logID); err != nil {
		return nil, fmt.Errorf("failed to delete log entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit revert: %w", err)
	}

	kid.TotalPoints = newPoints
	kid.TotalMinutes = newMinutes
	kid.UpdatedAt = time.Now()
	return kid, nil
}

// kidForUpdate reads the kid's current balances inside the transaction
func kidForUpdate(tx *database.Tx, familyID, kidID int64) (*models.Kid, error) {
	kid := &models.Kid{}
	query := "SELECT " + kidColumns + " FROM kids WHERE id = ? AND family_id = ?"
	err := scanKid(tx.QueryRow(query, kidID, familyID).Scan, kid)
	if err == sql.ErrNoRows {
		return nil, ErrKidNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}
	return kid, nil
}

// writeBalances applies the new balances with a compare-and-set on the old
// values, so a concurrent writer surfaces as ErrConcurrentUpdate instead of
// a silent lost update.
func writeBalances(tx *database.Tx, kid *models.Kid, newPoints, newMinutes int) error {
	query := `
		UPDATE kids
		SET total_points = ?, total_minutes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND total_points = ? AND total_minutes = ?
	`
	result, err := tx.Exec(query, newPoints, newMinutes, kid.ID, kid.TotalPoints, kid.TotalMinutes)
	if err != nil {
		return fmt.Errorf("failed to update balances: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check balance update: %w", err)
	}
	if affected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

// GetLogByID retrieves a single log entry, or nil if none exists
func (r *LedgerRepository) GetLogByID(logID int64) (*models.PointLog, error) {
	query := `
		SELECT id, family_id, kid_id, points_delta, minutes_delta, reason, actor_name, created_at
		FROM point_logs WHERE id = ?
	`
	entry := &models.PointLog{}
	err := r.db.QueryRow(query, logID).Scan(
		&entry.ID, &entry.FamilyID, &entry.KidID,
		&entry.PointsDelta, &entry.MinutesDelta,
		&entry.Reason, &entry.ActorName, &entry.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get log entry: %w", err)
	}
	return entry, nil
}

// GetRecentLogs retrieves the newest log entries for a family
func (r *LedgerRepository) GetRecentLogs(familyID int64, limit int) ([]models.PointLogWithKid, error) {
	query := `
		SELECT l.id, l.family_id, l.kid_id, l.points_delta, l.minutes_delta, l.reason, l.actor_name, l.created_at,
		       k.name
		FROM point_logs l
		INNER JOIN kids k ON l.kid_id = k.id
		WHERE l.family_id = ?
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT ?
	`
	return r.queryLogs(query, familyID, limit)
}

// GetLogsInRange retrieves log entries within [start, end) for a family,
// oldest first.
func (r *LedgerRepository) GetLogsInRange(familyID int64, start, end time.Time) ([]models.PointLogWithKid, error) {
	query := `
		SELECT l.id, l.family_id, l.kid_id, l.points_delta, l.minutes_delta, l.reason, l.actor_name, l.created_at,
		       k.name
		FROM point_logs l
		INNER JOIN kids k ON l.kid_id = k.id
		WHERE l.family_id = ? AND l.created_at >= ? AND l.created_at < ?
		ORDER BY l.created_at ASC, l.id ASC
	`
	return r.queryLogs(query, familyID, start, end)
}

func (r *LedgerRepository) queryLogs(query string, args ...interface{}) ([]models.PointLogWithKid, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var logs []models.PointLogWithKid
	for rows.Next() {
		var entry models.PointLogWithKid
		if err := rows.Scan(
			&entry.ID, &entry.FamilyID, &entry.KidID,
			&entry.PointsDelta, &entry.MinutesDelta,
			&entry.Reason, &entry.ActorName, &entry.CreatedAt,
			&entry.KidName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// SumKidDeltas returns the summed deltas of all remaining logs for a kid.
// Used to verify the ledger invariant against the live balances.
func (r *LedgerRepository) SumKidDeltas(kidID int64) (points int, minutes int, err error) {
	query := `
		SELECT COALESCE(SUM(points_delta), 0), COALESCE(SUM(minutes_delta), 0)
		FROM point_logs WHERE kid_id = ?
	`
	if err := r.db.QueryRow(query, kidID).Scan(&points, &minutes); err != nil {
		return 0, 0, fmt.Errorf("failed to sum log deltas: %w", err)
	}
	return points, minutes, nil
}
