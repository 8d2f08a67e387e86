package repository

import (
	"database/sql"
	"fmt"
	"time"

	"pointsmill/internal/database"
	"pointsmill/internal/models"
)

// InvitationRepository handles database operations for family invitations
type InvitationRepository struct {
	db *database.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *database.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// CreateInvitation persists a pending invitation
func (r *InvitationRepository) CreateInvitation(familyID int64, email, token, invitedByName string, expiresAt time.Time) (*models.Invitation, error) {
	query := "INSERT INTO invitations (family_id, email, token, invited_by_name, expires_at) VALUES (?, ?, ?, ?, ?)"
	invitationID, err := r.db.ExecReturningID(query, familyID, email, token, invitedByName, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return &models.Invitation{
		ID:            invitationID,
		FamilyID:      familyID,
		Email:         email,
		Token:         token,
		InvitedByName: invitedByName,
		ExpiresAt:     expiresAt,
		CreatedAt:     time.Now(),
	}, nil
}

// GetInvitationByToken retrieves an invitation by token, or nil if none exists
func (r *InvitationRepository) GetInvitationByToken(token string) (*models.Invitation, error) {
	query := `
		SELECT id, family_id, email, token, invited_by_name, expires_at, created_at, accepted
		FROM invitations WHERE token = ?
	`
	invitation := &models.Invitation{}
	err := r.db.QueryRow(query, token).Scan(
		&invitation.ID, &invitation.FamilyID, &invitation.Email, &invitation.Token,
		&invitation.InvitedByName, &invitation.ExpiresAt, &invitation.CreatedAt, &invitation.Accepted,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return invitation, nil
}

// MarkAccepted records that an invitation was redeemed
func (r *InvitationRepository) MarkAccepted(invitationID int64) error {
	if _, err := r.db.Exec("UPDATE invitations SET accepted = ? WHERE id = ?", true, invitationID); err != nil {
		return fmt.Errorf("failed to mark invitation accepted: %w", err)
	}
	return nil
}

// DeleteExpiredInvitations removes invitations past their expiry
func (r *InvitationRepository) DeleteExpiredInvitations() error {
	if _, err := r.db.Exec("DELETE FROM invitations WHERE expires_at < ?", time.Now()); err != nil {
		return fmt.Errorf("failed to delete expired invitations: %w", err)
	}
	return nil
}
