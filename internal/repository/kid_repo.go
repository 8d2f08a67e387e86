package repository

import (
	"database/sql"
	"fmt"
	"time"

	"pointsmill/internal/database"
	"pointsmill/internal/models"
)

// KidRepository handles database operations for kids
type KidRepository struct {
	db *database.DB
}

// NewKidRepository creates a new kid repository
func NewKidRepository(db *database.DB) *KidRepository {
	return &KidRepository{db: db}
}

const kidColumns = `
	id, family_id, name, avatar_glyph, pin,
	total_points, total_minutes, sort_position, created_at, updated_at
`

// CreateKid creates a new kid profile with zero balances
func (r *KidRepository) CreateKid(familyID int64, name, avatarGlyph, pin string, sortPosition int) (*models.Kid, error) {
	query := "INSERT INTO kids (family_id, name, avatar_glyph, pin, sort_position) VALUES (?, ?, ?, ?, ?)"
	kidID, err := r.db.ExecReturningID(query, familyID, name, avatarGlyph, pin, sortPosition)
	if err != nil {
		return nil, fmt.Errorf("failed to create kid: %w", err)
	}

	return &models.Kid{
		ID:           kidID,
		FamilyID:     familyID,
		Name:         name,
		AvatarGlyph:  avatarGlyph,
		PIN:          pin,
		SortPosition: sortPosition,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}, nil
}

// GetKidByID retrieves a kid by ID, or nil if none exists
func (r *KidRepository) GetKidByID(kidID int64) (*models.Kid, error) {
	row := r.db.QueryRow("SELECT "+kidColumns+" FROM kids WHERE id = ?", kidID)
	kid := &models.Kid{}
	err := scanKid(row.Scan, kid)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}
	return kid, nil
}

// GetFamilyKids retrieves all kids in a family in display order
func (r *KidRepository) GetFamilyKids(familyID int64) ([]models.Kid, error) {
	query := "SELECT " + kidColumns + " FROM kids WHERE family_id = ? ORDER BY sort_position ASC, created_at ASC"
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query kids: %w", err)
	}
	defer rows.Close()

	var kids []models.Kid
	for rows.Next() {
		var kid models.Kid
		if err := scanKid(rows.Scan, &kid); err != nil {
			return nil, fmt.Errorf("failed to scan kid: %w", err)
		}
		kids = append(kids, kid)
	}
	return kids, rows.Err()
}

// GetKidByFamilyAndName retrieves a kid by family and display name, or nil.
// Used for kid self-service login.
func (r *KidRepository) GetKidByFamilyAndName(familyID int64, name string) (*models.Kid, error) {
	row := r.db.QueryRow("SELECT "+kidColumns+" FROM kids WHERE family_id = ? AND name = ?", familyID, name)
	kid := &models.Kid{}
	err := scanKid(row.Scan, kid)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kid by name: %w", err)
	}
	return kid, nil
}

// UpdateKidProfile updates a kid's display fields (not balances)
func (r *KidRepository) UpdateKidProfile(kidID int64, name, avatarGlyph, pin string, sortPosition int) error {
	query := `
		UPDATE kids
		SET name = ?, avatar_glyph = ?, pin = ?, sort_position = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, name, avatarGlyph, pin, sortPosition, kidID); err != nil {
		return fmt.Errorf("failed to update kid: %w", err)
	}
	return nil
}

// DeleteKid deletes a kid profile; logs and goal cascade at the schema level
func (r *KidRepository) DeleteKid(kidID int64) error {
	if _, err := r.db.Exec("DELETE FROM kids WHERE id = ?", kidID); err != nil {
		return fmt.Errorf("failed to delete kid: %w", err)
	}
	return nil
}

// NextSortPosition returns the position after the family's last kid
func (r *KidRepository) NextSortPosition(familyID int64) (int, error) {
	var max sql.NullInt64
	query := "SELECT MAX(sort_position) FROM kids WHERE family_id = ?"
	if err := r.db.QueryRow(query, familyID).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to get sort position: %w", err)
	}
	return int(max.Int64) + 1, nil
}

func scanKid(scan func(...interface{}) error, kid *models.Kid) error {
	return scan(
		&kid.ID,
		&kid.FamilyID,
		&kid.Name,
		&kid.AvatarGlyph,
		&kid.PIN,
		&kid.TotalPoints,
		&kid.TotalMinutes,
		&kid.SortPosition,
		&kid.CreatedAt,
		&kid.UpdatedAt,
	)
}
