package repository

import (
	"database/sql"
	"fmt"

	"pointsmill/internal/database"
	"pointsmill/internal/models"
)

// GoalRepository handles database operations for reward goals
type GoalRepository struct {
	db *database.DB
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *database.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

// UpsertGoal saves a kid's goal, replacing any existing one. Each kid has
// at most one active goal.
func (r *GoalRepository) UpsertGoal(kidID int64, title string, targetPoints int, imageRef string) (*models.Goal, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM goals WHERE kid_id = ?", kidID); err != nil {
		return nil, fmt.Errorf("failed to clear existing goal: %w", err)
	}

	query := "INSERT INTO goals (kid_id, title, target_points, image_ref) VALUES (?, ?, ?, ?)"
	goalID, err := tx.ExecReturningID(query, kidID, title, targetPoints, imageRef)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit goal: %w", err)
	}

	return r.GetGoalByID(goalID)
}

// GetGoalByID retrieves a goal by ID, or nil if none exists
func (r *GoalRepository) GetGoalByID(goalID int64) (*models.Goal, error) {
	query := "SELECT id, kid_id, title, target_points, image_ref, created_at, updated_at FROM goals WHERE id = ?"
	return scanGoal(r.db.QueryRow(query, goalID))
}

// GetGoalByKid retrieves a kid's goal, or nil if none is set
func (r *GoalRepository) GetGoalByKid(kidID int64) (*models.Goal, error) {
	query := "SELECT id, kid_id, title, target_points, image_ref, created_at, updated_at FROM goals WHERE kid_id = ?"
	return scanGoal(r.db.QueryRow(query, kidID))
}

// GetFamilyGoals retrieves all goals for a family's kids, keyed by kid ID
func (r *GoalRepository) GetFamilyGoals(familyID int64) (map[int64]models.Goal, error) {
	query := `
		SELECT g.id, g.kid_id, g.title, g.target_points, g.image_ref, g.created_at, g.updated_at
		FROM goals g
		INNER JOIN kids k ON g.kid_id = k.id
		WHERE k.family_id = ?
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	goals := make(map[int64]models.Goal)
	for rows.Next() {
		var goal models.Goal
		var imageRef sql.NullString
		if err := rows.Scan(
			&goal.ID, &goal.KidID, &goal.Title, &goal.TargetPoints,
			&imageRef, &goal.CreatedAt, &goal.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goal.ImageRef = imageRef.String
		goals[goal.KidID] = goal
	}
	return goals, rows.Err()
}

// DeleteGoal removes a kid's goal
func (r *GoalRepository) DeleteGoal(kidID int64) error {
	if _, err := r.db.Exec("DELETE FROM goals WHERE kid_id = ?", kidID); err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return nil
}

func scanGoal(row *sql.Row) (*models.Goal, error) {
	goal := &models.Goal{}
	var imageRef sql.NullString
	err := row.Scan(
		&goal.ID, &goal.KidID, &goal.Title, &goal.TargetPoints,
		&imageRef, &goal.CreatedAt, &goal.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	goal.ImageRef = imageRef.String
	return goal, nil
}
