package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"pointsmill/internal/credentials"
	"pointsmill/internal/models"
	"pointsmill/internal/repository"
	"pointsmill/internal/security"
	"pointsmill/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidJoinCode    = errors.New("invalid family code")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrKidLoginFailed     = errors.New("unknown kid or wrong PIN")
)

// AuthService handles authentication business logic for parents and kids
type AuthService struct {
	userRepo         *repository.UserRepository
	familyRepo       *repository.FamilyRepository
	kidRepo          *repository.KidRepository
	sessionDuration  time.Duration
	kidTokenSecret   string
	kidTokenDuration time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, familyRepo *repository.FamilyRepository, kidRepo *repository.KidRepository, sessionDuration time.Duration, kidTokenSecret string, kidTokenDuration time.Duration) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		familyRepo:       familyRepo,
		kidRepo:          kidRepo,
		sessionDuration:  sessionDuration,
		kidTokenSecret:   kidTokenSecret,
		kidTokenDuration: kidTokenDuration,
	}
}

// Register creates a new parent account and either joins an existing family
// via its code or creates a new one named familyName.
func (s *AuthService) Register(email, password, name, familyName, joinCode string) (*models.User, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	existingUser, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(email, passwordHash, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if joinCode != "" {
		family, err := s.familyRepo.GetFamilyByJoinCode(joinCode)
		if err != nil {
			return nil, fmt.Errorf("failed to check family code: %w", err)
		}
		if family == nil {
			return nil, ErrInvalidJoinCode
		}
		if err := s.familyRepo.AddFamilyMember(family.ID, user.ID, "parent"); err != nil {
			return nil, fmt.Errorf("failed to join family: %w", err)
		}
	} else {
		if familyName == "" {
			familyName = name + "'s Family"
		}
		if err := s.createFamilyFor(user, familyName); err != nil {
			// Log but don't fail registration - family can be created later
			log.Printf("Warning: failed to create family for user %d: %v", user.ID, err)
		}
	}

	return user, nil
}

// Login authenticates a parent and creates a session
func (s *AuthService) Login(email, password string) (*models.Session, *models.User, error) {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.createSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// LoginWithOAuth finds or creates the parent account backed by an OAuth
// identity and opens a session for it.
func (s *AuthService) LoginWithOAuth(provider, subject, email, name string) (*models.Session, *models.User, error) {
	user, err := s.userRepo.GetUserByOAuth(provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get oauth user: %w", err)
	}

	if user == nil {
		// An existing password account with the same email stays separate;
		// linking accounts is an explicit action, not a login side effect.
		existing, err := s.userRepo.GetUserByEmail(email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil {
			return nil, nil, ErrEmailTaken
		}

		user, err = s.userRepo.CreateOAuthUser(email, name, provider, subject)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create oauth user: %w", err)
		}
		if err := s.createFamilyFor(user, name+"'s Family"); err != nil {
			log.Printf("Warning: failed to create family for user %d: %v", user.ID, err)
		}
	}

	session, err := s.createSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) createFamilyFor(user *models.User, familyName string) error {
	joinCode, err := credentials.GenerateJoinCode()
	if err != nil {
		return fmt.Errorf("failed to generate join code: %w", err)
	}
	if _, err := s.familyRepo.CreateFamily(familyName, joinCode, user.ID); err != nil {
		return fmt.Errorf("failed to create family: %w", err)
	}
	return nil
}

func (s *AuthService) createSession(userID int64) (*models.Session, error) {
	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().Add(s.sessionDuration)

	session, err := s.userRepo.CreateSession(sessionID, userID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Logout deletes a session
func (s *AuthService) Logout(sessionID string) error {
	return s.userRepo.DeleteSession(sessionID)
}

// ValidateSession checks a session and returns the associated user
func (s *AuthService) ValidateSession(sessionID string) (*models.User, error) {
	session, err := s.userRepo.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		if err := s.userRepo.DeleteSession(sessionID); err != nil {
			log.Printf("Warning: failed to delete expired session: %v", err)
		}
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// KidLogin authenticates a kid by family join code, name, and PIN, and
// returns a signed token for the kid-facing views.
func (s *AuthService) KidLogin(joinCode, name, pin string) (string, *models.Kid, error) {
	family, err := s.familyRepo.GetFamilyByJoinCode(joinCode)
	if err != nil {
		return "", nil, fmt.Errorf("failed to check family code: %w", err)
	}
	if family == nil {
		return "", nil, ErrKidLoginFailed
	}

	kid, err := s.kidRepo.GetKidByFamilyAndName(family.ID, name)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get kid: %w", err)
	}
	if kid == nil || kid.PIN != pin {
		return "", nil, ErrKidLoginFailed
	}

	token, err := security.SignKidToken(s.kidTokenSecret, models.KidSession{
		KidID:    kid.ID,
		FamilyID: kid.FamilyID,
		Name:     kid.Name,
	}, s.kidTokenDuration)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign kid token: %w", err)
	}
	return token, kid, nil
}

// ValidateKidToken verifies a kid token and returns the embedded session
func (s *AuthService) ValidateKidToken(token string) (*models.KidSession, error) {
	return security.ParseKidToken(s.kidTokenSecret, token)
}

// CleanupExpiredSessions removes stale parent sessions
func (s *AuthService) CleanupExpiredSessions() error {
	return s.userRepo.DeleteExpiredSessions()
}
