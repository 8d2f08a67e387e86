package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pointsmill/internal/credentials"
	"pointsmill/internal/models"
	"pointsmill/internal/repository"
	"pointsmill/internal/validation"
)

var (
	ErrFamilyNotFound     = errors.New("family not found")
	ErrNotFamilyMember    = errors.New("not a member of this family")
	ErrKidNameTaken       = errors.New("a kid with that name already exists")
	ErrInvalidRates       = errors.New("rate values must be positive")
	ErrInvitationInvalid  = errors.New("invitation is invalid or expired")
	ErrInvitationAccepted = errors.New("invitation already used")
)

const invitationTTL = 7 * 24 * time.Hour

// FamilyOverview is the family dashboard payload: the family record, its
// kids in display order, and each kid's goal keyed by kid ID.
type FamilyOverview struct {
	Family *models.Family        `json:"family"`
	Kids   []models.Kid          `json:"kids"`
	Goals  map[int64]models.Goal `json:"goals"`
}

// FamilyService handles family, kid, and goal management
type FamilyService struct {
	familyRepo     *repository.FamilyRepository
	kidRepo        *repository.KidRepository
	goalRepo       *repository.GoalRepository
	invitationRepo *repository.InvitationRepository
	emailService   *EmailService
}

// NewFamilyService creates a new family service
func NewFamilyService(familyRepo *repository.FamilyRepository, kidRepo *repository.KidRepository, goalRepo *repository.GoalRepository, invitationRepo *repository.InvitationRepository, emailService *EmailService) *FamilyService {
	return &FamilyService{
		familyRepo:     familyRepo,
		kidRepo:        kidRepo,
		goalRepo:       goalRepo,
		invitationRepo: invitationRepo,
		emailService:   emailService,
	}
}

// GetUserFamily retrieves the family a parent belongs to
func (s *FamilyService) GetUserFamily(userID int64) (*models.Family, error) {
	family, err := s.familyRepo.GetUserFamily(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// GetOverview retrieves the family with its kids and goals
func (s *FamilyService) GetOverview(familyID int64) (*FamilyOverview, error) {
	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	kids, err := s.kidRepo.GetFamilyKids(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get kids: %w", err)
	}

	goals, err := s.goalRepo.GetFamilyGoals(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}

	return &FamilyOverview{Family: family, Kids: kids, Goals: goals}, nil
}

// GetFamily retrieves a family by ID
func (s *FamilyService) GetFamily(familyID int64) (*models.Family, error) {
	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// GetKid retrieves a kid, checking it belongs to the family
func (s *FamilyService) GetKid(familyID, kidID int64) (*models.Kid, error) {
	return s.getFamilyKid(familyID, kidID)
}

// GetKidGoal retrieves a kid's goal, or nil if none is set
func (s *FamilyService) GetKidGoal(kidID int64) (*models.Goal, error) {
	return s.goalRepo.GetGoalByKid(kidID)
}

// RequireMembership verifies the user belongs to the family
func (s *FamilyService) RequireMembership(userID, familyID int64) error {
	isMember, err := s.familyRepo.IsFamilyMember(userID, familyID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !isMember {
		return ErrNotFamilyMember
	}
	return nil
}

// UpdateSettings validates and saves the family's settings wholesale
func (s *FamilyService) UpdateSettings(familyID int64, name string, rates models.RateTable, usePIN bool, pin, theme string, autoAllocate bool) (*models.Family, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if rates.WeekdayLimit <= 0 || rates.HolidayLimit <= 0 || rates.PointToMinutes <= 0 {
		return nil, ErrInvalidRates
	}
	if rates.PointToCash.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidRates
	}
	if usePIN {
		if err := validation.ValidatePIN(pin); err != nil {
			return nil, err
		}
	} else {
		pin = ""
	}

	if err := s.familyRepo.UpdateSettings(familyID, name, rates, usePIN, pin, theme, autoAllocate); err != nil {
		return nil, err
	}

	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload family: %w", err)
	}
	return family, nil
}

// AddKid creates a kid profile with a generated PIN, placed after the
// family's existing kids.
func (s *FamilyService) AddKid(familyID int64, name, avatarGlyph string) (*models.Kid, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	existing, err := s.kidRepo.GetKidByFamilyAndName(familyID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check kid name: %w", err)
	}
	if existing != nil {
		return nil, ErrKidNameTaken
	}

	pin, err := credentials.GeneratePIN()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PIN: %w", err)
	}

	position, err := s.kidRepo.NextSortPosition(familyID)
	if err != nil {
		return nil, err
	}

	return s.kidRepo.CreateKid(familyID, name, avatarGlyph, pin, position)
}

// UpdateKid updates a kid's display fields. An empty pin keeps the current one.
func (s *FamilyService) UpdateKid(familyID, kidID int64, name, avatarGlyph, pin string, sortPosition int) (*models.Kid, error) {
	kid, err := s.getFamilyKid(familyID, kidID)
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if pin == "" {
		pin = kid.PIN
	} else if err := validation.ValidatePIN(pin); err != nil {
		return nil, err
	}

	if name != kid.Name {
		existing, err := s.kidRepo.GetKidByFamilyAndName(familyID, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check kid name: %w", err)
		}
		if existing != nil {
			return nil, ErrKidNameTaken
		}
	}

	if err := s.kidRepo.UpdateKidProfile(kidID, name, avatarGlyph, pin, sortPosition); err != nil {
		return nil, err
	}
	return s.kidRepo.GetKidByID(kidID)
}

// DeleteKid removes a kid and, via the schema, their logs and goal
func (s *FamilyService) DeleteKid(familyID, kidID int64) error {
	if _, err := s.getFamilyKid(familyID, kidID); err != nil {
		return err
	}
	return s.kidRepo.DeleteKid(kidID)
}

// SaveGoal sets a kid's reward goal, replacing any existing one
func (s *FamilyService) SaveGoal(familyID, kidID int64, title string, targetPoints int, imageRef string) (*models.Goal, error) {
	if _, err := s.getFamilyKid(familyID, kidID); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(title); err != nil {
		return nil, err
	}
	if targetPoints <= 0 {
		return nil, errors.New("goal target must be positive")
	}
	return s.goalRepo.UpsertGoal(kidID, title, targetPoints, imageRef)
}

// DeleteGoal removes a kid's reward goal
func (s *FamilyService) DeleteGoal(familyID, kidID int64) error {
	if _, err := s.getFamilyKid(familyID, kidID); err != nil {
		return err
	}
	return s.goalRepo.DeleteGoal(kidID)
}

// JoinByCode adds a logged-in parent to the family with the given join code
func (s *FamilyService) JoinByCode(userID int64, code string) (*models.Family, error) {
	family, err := s.familyRepo.GetFamilyByJoinCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to check family code: %w", err)
	}
	if family == nil {
		return nil, ErrInvalidJoinCode
	}

	isMember, err := s.familyRepo.IsFamilyMember(userID, family.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !isMember {
		if err := s.familyRepo.AddFamilyMember(family.ID, userID, "parent"); err != nil {
			return nil, fmt.Errorf("failed to join family: %w", err)
		}
	}
	return family, nil
}

// InviteMember creates an invitation and emails the join link
func (s *FamilyService) InviteMember(ctx context.Context, familyID int64, email, invitedByName string) (*models.Invitation, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	token, err := generateInvitationToken()
	if err != nil {
		return nil, err
	}

	invitation, err := s.invitationRepo.CreateInvitation(familyID, email, token, invitedByName, time.Now().Add(invitationTTL))
	if err != nil {
		return nil, err
	}

	if err := s.emailService.SendInvitationEmail(ctx, email, family.Name, invitedByName, token); err != nil {
		return nil, fmt.Errorf("failed to send invitation: %w", err)
	}
	return invitation, nil
}

// AcceptInvitation redeems an invitation token for the given parent
func (s *FamilyService) AcceptInvitation(token string, userID int64) (*models.Family, error) {
	invitation, err := s.invitationRepo.GetInvitationByToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if invitation == nil || invitation.IsExpired() {
		return nil, ErrInvitationInvalid
	}
	if invitation.Accepted {
		return nil, ErrInvitationAccepted
	}

	isMember, err := s.familyRepo.IsFamilyMember(userID, invitation.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !isMember {
		if err := s.familyRepo.AddFamilyMember(invitation.FamilyID, userID, "parent"); err != nil {
			return nil, fmt.Errorf("failed to join family: %w", err)
		}
	}

	if err := s.invitationRepo.MarkAccepted(invitation.ID); err != nil {
		return nil, err
	}
	return s.familyRepo.GetFamilyByID(invitation.FamilyID)
}

// GetMembers retrieves the family's parent members with user details
func (s *FamilyService) GetMembers(familyID int64) ([]models.FamilyMember, []models.User, error) {
	return s.familyRepo.GetFamilyMembers(familyID)
}

func (s *FamilyService) getFamilyKid(familyID, kidID int64) (*models.Kid, error) {
	kid, err := s.kidRepo.GetKidByID(kidID)
	if err != nil {
		return nil, err
	}
	if kid == nil || kid.FamilyID != familyID {
		return nil, repository.ErrKidNotFound
	}
	return kid, nil
}

func generateInvitationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
