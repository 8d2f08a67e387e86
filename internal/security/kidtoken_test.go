package security

import (
	"testing"
	"time"

	"pointsmill/internal/models"
)

func TestKidTokenRoundTrip(t *testing.T) {
	session := models.KidSession{KidID: 7, FamilyID: 3, Name: "Milo"}

	token, err := SignKidToken("test-secret", session, time.Hour)
	if err != nil {
		t.Fatalf("SignKidToken() error = %v", err)
	}

	parsed, err := ParseKidToken("test-secret", token)
	if err != nil {
		t.Fatalf("ParseKidToken() error = %v", err)
	}
	if parsed.KidID != 7 || parsed.FamilyID != 3 || parsed.Name != "Milo" {
		t.Errorf("ParseKidToken() = %+v, want original session", parsed)
	}
}

func TestKidTokenWrongSecret(t *testing.T) {
	token, err := SignKidToken("secret-a", models.KidSession{KidID: 1, FamilyID: 1, Name: "Ada"}, time.Hour)
	if err != nil {
		t.Fatalf("SignKidToken() error = %v", err)
	}

	if _, err := ParseKidToken("secret-b", token); err != ErrInvalidKidToken {
		t.Errorf("ParseKidToken() error = %v, want ErrInvalidKidToken", err)
	}
}

func TestKidTokenExpired(t *testing.T) {
	token, err := SignKidToken("test-secret", models.KidSession{KidID: 1, FamilyID: 1, Name: "Ada"}, -time.Minute)
	if err != nil {
		t.Fatalf("SignKidToken() error = %v", err)
	}

	if _, err := ParseKidToken("test-secret", token); err != ErrInvalidKidToken {
		t.Errorf("ParseKidToken() error = %v, want ErrInvalidKidToken", err)
	}
}

func TestKidTokenGarbage(t *testing.T) {
	if _, err := ParseKidToken("test-secret", "not.a.token"); err != ErrInvalidKidToken {
		t.Errorf("ParseKidToken() error = %v, want ErrInvalidKidToken", err)
	}
}
