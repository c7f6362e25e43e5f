package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/nitipat21/linkly/pkg/config"
	"github.com/nitipat21/linkly/pkg/core/domain"
	"github.com/nitipat21/linkly/pkg/ports"
)

const (
	authCookieName = "auth_token"
	sessionTTL     = 24 * time.Hour
)

type AuthHandler struct {
	users        ports.UserService
	oauthConfig  *oauth2.Config
	jwtSecret    []byte
	frontendURL  string
	isProduction bool
	logger       *slog.Logger
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func NewAuthHandler(cfg *config.Config, users ports.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users: users,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		jwtSecret:    []byte(cfg.JWTSecret),
		frontendURL:  cfg.FrontendURL,
		isProduction: cfg.AppEnv == "production",
		logger:       logger,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case domain.IsValidation(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrEmailExists):
			writeError(w, http.StatusBadRequest, "user already exists, please login")
		default:
			h.logger.Error("register failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, genericErrorMessage)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "user registered successfully",
		"user":    user,
	})
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case domain.IsValidation(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "invalid credentials")
		default:
			h.logger.Error("login failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, genericErrorMessage)
		}
		return
	}

	if err := h.setAuthCookie(w, user.ID); err != nil {
		h.logger.Error("signing session token failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "user logged in successfully",
		"user":    user,
	})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "user logged out successfully"})
}

// GET /api/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	requester, _ := RequesterFrom(r.Context())

	user, err := h.users.Profile(r.Context(), requester)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("profile lookup failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": user})
}

// GET /auth/google/login
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := h.generateStateOauthCookie(w)
	url := h.oauthConfig.AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GET /auth/google/callback
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, err := r.Cookie("oauthstate")
	if err != nil {
		h.logger.Warn("callback missing oauthstate cookie", slog.Any("error", err))
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		h.logger.Warn("callback with invalid oauth state")
		writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		h.logger.Error("oauth code exchange failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}

	response, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken)
	if err != nil {
		h.logger.Error("fetching user info failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}
	defer response.Body.Close()

	var gu googleUser
	if err := json.NewDecoder(response.Body).Decode(&gu); err != nil {
		h.logger.Error("decoding user info failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}

	user, err := h.users.FindOrCreateByEmail(r.Context(), gu.Name, gu.Email)
	if err != nil {
		h.logger.Error("oauth sign-in failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}

	if err := h.setAuthCookie(w, user.ID); err != nil {
		h.logger.Error("signing session token failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}

	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, userID string) error {
	expirationTime := time.Now().Add(sessionTTL)
	claims := &jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(expirationTime),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    tokenString,
		Expires:  expirationTime,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *AuthHandler) generateStateOauthCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     "oauthstate",
		Value:    state,
		Expires:  time.Now().Add(20 * time.Minute),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}
