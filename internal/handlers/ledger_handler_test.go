package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pointsmill/internal/database"
	"pointsmill/internal/models"
	"pointsmill/internal/repository"
	"pointsmill/internal/security"
	"pointsmill/internal/service"
)

type handlerFixture struct {
	server        *httptest.Server
	familyService *service.FamilyService
	ledgerService *service.LedgerService
	family        *models.Family
	kid           *models.Kid
	kidToken      string
}

func setupHandlerTest(t *testing.T) *handlerFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	kidRepo := repository.NewKidRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	emailService, err := service.NewEmailService("", "", "", "")
	if err != nil {
		t.Fatalf("Failed to create email service: %v", err)
	}

	authService := service.NewAuthService(userRepo, familyRepo, kidRepo, time.Hour, "test-secret", time.Hour)
	familyService := service.NewFamilyService(familyRepo, kidRepo, goalRepo, invitationRepo, emailService)
	ledgerService := service.NewLedgerService(ledgerRepo, kidRepo, familyRepo)
	exportService := service.NewExportService(ledgerRepo)
	allocationService := service.NewAllocationService(familyRepo, kidRepo, ledgerService, 6)

	middleware := NewMiddleware(authService, security.NewRateLimiter(100, time.Minute))
	ledgerHandler := NewLedgerHandler(ledgerService, familyService, exportService, allocationService)

	user, err := authService.Register("parent@example.com", "password123", "Sam", "Testers", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	family, err := familyService.GetUserFamily(user.ID)
	if err != nil {
		t.Fatalf("GetUserFamily() error = %v", err)
	}
	kid, err := familyService.AddKid(family.ID, "Milo", "fox")
	if err != nil {
		t.Fatalf("AddKid() error = %v", err)
	}
	if _, err := ledgerService.Adjust(family.ID, service.Adjustment{
		KidID:       kid.ID,
		PointsDelta: 20,
		Reason:      "starting balance",
		ActorName:   user.Name,
	}); err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}

	token, _, err := authService.KidLogin(family.JoinCode, kid.Name, kid.PIN)
	if err != nil {
		t.Fatalf("KidLogin() error = %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/kid/redeem/points", middleware.RequireKidAuth(ledgerHandler.KidRedeemPoints))
	mux.HandleFunc("POST /api/kid/redeem/minutes", middleware.RequireKidAuth(ledgerHandler.KidRedeemMinutes))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &handlerFixture{
		server:        server,
		familyService: familyService,
		ledgerService: ledgerService,
		family:        family,
		kid:           kid,
		kidToken:      token,
	}
}

func (f *handlerFixture) redeemPoints(t *testing.T, body, parentPIN string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/kid/redeem/points", strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.kidToken)
	req.Header.Set("Content-Type", "application/json")
	if parentPIN != "" {
		req.Header.Set(ParentPINHeader, parentPIN)
	}

	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *handlerFixture) enableGate(t *testing.T, pin string) {
	t.Helper()
	if _, err := f.familyService.UpdateSettings(f.family.ID, f.family.Name, f.family.Rates, true, pin, "", false); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
}

func TestKidRedeemWithoutGate(t *testing.T) {
	f := setupHandlerTest(t)

	resp := f.redeemPoints(t, `{"points": 5}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var kid models.Kid
	if err := json.NewDecoder(resp.Body).Decode(&kid); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if kid.TotalPoints != 15 || kid.TotalMinutes != 10 {
		t.Errorf("balances = %d points, %d minutes, want 15/10", kid.TotalPoints, kid.TotalMinutes)
	}
}

func TestKidRedeemGateMissingPIN(t *testing.T) {
	f := setupHandlerTest(t)
	f.enableGate(t, "4321")

	resp := f.redeemPoints(t, `{"points": 5}`, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}

	// A cancelled challenge aborts without a visible error message
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body["error"] != "" {
		t.Errorf("body error = %q, want none", body["error"])
	}

	kid, err := f.familyService.GetKid(f.family.ID, f.kid.ID)
	if err != nil {
		t.Fatalf("GetKid() error = %v", err)
	}
	if kid.TotalPoints != 20 {
		t.Errorf("points after blocked redeem = %d, want 20", kid.TotalPoints)
	}
}

func TestKidRedeemGateWrongPIN(t *testing.T) {
	f := setupHandlerTest(t)
	f.enableGate(t, "4321")

	resp := f.redeemPoints(t, `{"points": 5}`, "0000")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if body["error"] != "pin verification failed" {
		t.Errorf("body error = %q, want pin verification failed", body["error"])
	}
}

func TestKidRedeemGateCorrectPIN(t *testing.T) {
	f := setupHandlerTest(t)
	f.enableGate(t, "4321")

	resp := f.redeemPoints(t, `{"points": 5}`, "4321")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var kid models.Kid
	if err := json.NewDecoder(resp.Body).Decode(&kid); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if kid.TotalPoints != 15 {
		t.Errorf("points = %d, want 15", kid.TotalPoints)
	}
}

func TestKidRedeemInsufficientBalance(t *testing.T) {
	f := setupHandlerTest(t)

	resp := f.redeemPoints(t, `{"points": 100}`, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestKidRedeemRequiresToken(t *testing.T) {
	f := setupHandlerTest(t)

	resp, err := f.server.Client().Post(f.server.URL+"/api/kid/redeem/points", "application/json", strings.NewReader(`{"points": 5}`))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}
