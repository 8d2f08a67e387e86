package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pointsmill/internal/database"
	"pointsmill/internal/models"
)

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

const familyColumns = `
	id, name, join_code, admin_user_id,
	weekday_limit, holiday_limit, point_to_minutes, point_to_cash,
	use_pin, pin, theme, auto_allocate, created_at, updated_at
`

// CreateFamily creates a new family and adds the creator as its admin member
func (r *FamilyRepository) CreateFamily(name, joinCode string, adminUserID int64) (*models.Family, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := "INSERT INTO families (name, join_code, admin_user_id) VALUES (?, ?, ?)"
	familyID, err := tx.ExecReturningID(query, name, joinCode, adminUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	query = "INSERT INTO family_members (family_id, user_id, role) VALUES (?, ?, 'admin')"
	if _, err := tx.Exec(query, familyID, adminUserID); err != nil {
		return nil, fmt.Errorf("failed to add family member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.Family{
		ID:          familyID,
		Name:        name,
		JoinCode:    joinCode,
		AdminUserID: adminUserID,
		Rates:       models.RateTableWithDefaults(models.RateTable{}),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}

// GetFamilyByID retrieves a family by ID, or nil if none exists
func (r *FamilyRepository) GetFamilyByID(familyID int64) (*models.Family, error) {
	row := r.db.QueryRow("SELECT "+familyColumns+" FROM families WHERE id = ?", familyID)
	return scanFamily(row)
}

// GetFamilyByJoinCode retrieves a family by its join code (case-insensitive)
func (r *FamilyRepository) GetFamilyByJoinCode(code string) (*models.Family, error) {
	row := r.db.QueryRow("SELECT "+familyColumns+" FROM families WHERE join_code = ?", strings.ToUpper(strings.TrimSpace(code)))
	return scanFamily(row)
}

// GetUserFamily retrieves the family a user belongs to, or nil.
// A user belongs to at most one family in this model.
func (r *FamilyRepository) GetUserFamily(userID int64) (*models.Family, error) {
	query := `
		SELECT f.id, f.name, f.join_code, f.admin_user_id,
		       f.weekday_limit, f.holiday_limit, f.point_to_minutes, f.point_to_cash,
		       f.use_pin, f.pin, f.theme, f.auto_allocate, f.created_at, f.updated_at
		FROM families f
		INNER JOIN family_members fm ON f.id = fm.family_id
		WHERE fm.user_id = ?
		ORDER BY fm.joined_at ASC
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user family: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanFamilyRows(rows)
}

// AddFamilyMember adds a user to a family
func (r *FamilyRepository) AddFamilyMember(familyID, userID int64, role string) error {
	query := "INSERT INTO family_members (family_id, user_id, role) VALUES (?, ?, ?)"
	if _, err := r.db.Exec(query, familyID, userID, role); err != nil {
		return fmt.Errorf("failed to add family member: %w", err)
	}
	return nil
}

// IsFamilyMember checks if a user is a member of a family
func (r *FamilyRepository) IsFamilyMember(userID, familyID int64) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM family_members WHERE user_id = ? AND family_id = ?"
	if err := r.db.QueryRow(query, userID, familyID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check family membership: %w", err)
	}
	return count > 0, nil
}

// GetFamilyMembers retrieves all members of a family with user details
func (r *FamilyRepository) GetFamilyMembers(familyID int64) ([]models.FamilyMember, []models.User, error) {
	query := `
		SELECT fm.id, fm.family_id, fm.user_id, fm.role, fm.joined_at,
		       u.id, u.email, u.name, u.created_at
		FROM family_members fm
		INNER JOIN users u ON fm.user_id = u.id
		WHERE fm.family_id = ?
		ORDER BY fm.joined_at ASC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	var members []models.FamilyMember
	var users []models.User
	for rows.Next() {
		var member models.FamilyMember
		var user models.User
		if err := rows.Scan(
			&member.ID, &member.FamilyID, &member.UserID, &member.Role, &member.JoinedAt,
			&user.ID, &user.Email, &user.Name, &user.CreatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		members = append(members, member)
		users = append(users, user)
	}

	return members, users, rows.Err()
}

// UpdateSettings saves the family's rate table, guard gate, and theme wholesale
func (r *FamilyRepository) UpdateSettings(familyID int64, name string, rates models.RateTable, usePIN bool, pin, theme string, autoAllocate bool) error {
	query := `
		UPDATE families
		SET name = ?, weekday_limit = ?, holiday_limit = ?, point_to_minutes = ?, point_to_cash = ?,
		    use_pin = ?, pin = ?, theme = ?, auto_allocate = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query,
		name, rates.WeekdayLimit, rates.HolidayLimit, rates.PointToMinutes, rates.PointToCash.String(),
		usePIN, pin, theme, autoAllocate, familyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update family settings: %w", err)
	}
	return nil
}

// ListAutoAllocateFamilies retrieves every family with automatic daily
// allocation enabled, for the scheduler.
func (r *FamilyRepository) ListAutoAllocateFamilies() ([]models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families WHERE auto_allocate = ?"
	rows, err := r.db.Query(query, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query auto-allocate families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		family, err := scanFamilyRows(rows)
		if err != nil {
			return nil, err
		}
		families = append(families, *family)
	}
	return families, rows.Err()
}

func scanFamily(row *sql.Row) (*models.Family, error) {
	family := &models.Family{}
	var cash string
	var pin, theme sql.NullString
	err := row.Scan(
		&family.ID, &family.Name, &family.JoinCode, &family.AdminUserID,
		&family.Rates.WeekdayLimit, &family.Rates.HolidayLimit, &family.Rates.PointToMinutes, &cash,
		&family.UsePIN, &pin, &theme, &family.AutoAllocate, &family.CreatedAt, &family.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return finishFamily(family, cash, pin, theme)
}

func scanFamilyRows(rows *sql.Rows) (*models.Family, error) {
	family := &models.Family{}
	var cash string
	var pin, theme sql.NullString
	err := rows.Scan(
		&family.ID, &family.Name, &family.JoinCode, &family.AdminUserID,
		&family.Rates.WeekdayLimit, &family.Rates.HolidayLimit, &family.Rates.PointToMinutes, &cash,
		&family.UsePIN, &pin, &theme, &family.AutoAllocate, &family.CreatedAt, &family.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan family: %w", err)
	}
	return finishFamily(family, cash, pin, theme)
}

func finishFamily(family *models.Family, cash string, pin, theme sql.NullString) (*models.Family, error) {
	parsed, err := decimal.NewFromString(cash)
	if err != nil {
		return nil, fmt.Errorf("invalid point_to_cash value %q: %w", cash, err)
	}
	family.Rates.PointToCash = parsed
	family.PIN = pin.String
	family.Theme = theme.String
	family.Rates = models.RateTableWithDefaults(family.Rates)
	return family, nil
}
