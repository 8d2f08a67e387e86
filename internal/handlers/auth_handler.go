package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"pointsmill/internal/models"
	"pointsmill/internal/security"
	"pointsmill/internal/service"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// AuthHandler handles registration, login, and sessions for parents and kids
type AuthHandler struct {
	authService   *service.AuthService
	familyService *service.FamilyService
	emailService  *service.EmailService
	googleOAuth   *oauth2.Config
}

// NewAuthHandler creates a new auth handler. googleOAuth may be nil when the
// provider is not configured.
func NewAuthHandler(authService *service.AuthService, familyService *service.FamilyService, emailService *service.EmailService, googleOAuth *oauth2.Config) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		familyService: familyService,
		emailService:  emailService,
		googleOAuth:   googleOAuth,
	}
}

type userView struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func viewUser(user *models.User) userView {
	return userView{ID: user.ID, Email: user.Email, Name: user.Name}
}

// Register creates a parent account and logs it in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		Name       string `json:"name"`
		FamilyName string `json:"family_name"`
		JoinCode   string `json:"join_code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Register(req.Email, req.Password, req.Name, req.FamilyName, req.JoinCode)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	if err := h.emailService.SendWelcomeEmail(r.Context(), user.Email, user.Name); err != nil {
		// Registration succeeded; the welcome email is best effort
		log.Printf("Failed to send welcome email: %v", err)
	}

	session, _, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	respondJSON(w, http.StatusCreated, viewUser(user))
}

// Login authenticates a parent and sets the session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	session, user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	respondJSON(w, http.StatusOK, viewUser(user))
}

// Logout deletes the parent session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.authService.Logout(cookie.Value); err != nil {
			log.Printf("Failed to delete session: %v", err)
		}
	}
	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me returns the logged-in parent and their family
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithError(w, http.StatusUnauthorized, "Not logged in", "", nil)
		return
	}

	family, err := h.familyService.GetUserFamily(user.ID)
	if err != nil && err != service.ErrFamilyNotFound {
		respondWithServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":   viewUser(user),
		"family": family,
	})
}

// KidLogin authenticates a kid and returns a bearer token
func (h *AuthHandler) KidLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JoinCode string `json:"join_code"`
		Name     string `json:"name"`
		PIN      string `json:"pin"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	token, kid, err := h.authService.KidLogin(req.JoinCode, req.Name, req.PIN)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"kid":   kid,
	})
}

// StartGoogleOAuth redirects to Google's consent screen
func (h *AuthHandler) StartGoogleOAuth(w http.ResponseWriter, r *http.Request) {
	if h.googleOAuth == nil || h.googleOAuth.ClientID == "" {
		respondWithError(w, http.StatusBadRequest, "Google login not configured", "", nil)
		return
	}

	state := security.GenerateSessionID()
	http.SetCookie(w, security.CreateSessionCookie(r, "oauth_state", state, time.Now().Add(10*time.Minute)))

	http.Redirect(w, r, h.googleOAuth.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

// GoogleOAuthCallback completes the Google login and sets the session cookie
func (h *AuthHandler) GoogleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.googleOAuth == nil || h.googleOAuth.ClientID == "" {
		respondWithError(w, http.StatusBadRequest, "Google login not configured", "", nil)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Missing authorization code", "", nil)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		respondWithError(w, http.StatusBadRequest, "Invalid OAuth state", "", nil)
		return
	}
	http.SetCookie(w, security.CreateDeleteCookie(r, "oauth_state"))

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	token, err := h.googleOAuth.Exchange(ctx, code)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to exchange OAuth code", "", err)
		return
	}

	info, err := fetchGoogleUser(ctx, token)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to fetch Google profile", "", err)
		return
	}

	session, _, err := h.authService.LoginWithOAuth("google", info.Subject, info.Email, info.Name)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

func fetchGoogleUser(ctx context.Context, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch Google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch Google user info: status %d", resp.StatusCode)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse Google user info: %w", err)
	}
	if payload.ID == "" || payload.Email == "" {
		return oauthUserInfo{}, fmt.Errorf("incomplete Google user info")
	}
	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}
