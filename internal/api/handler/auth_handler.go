package handler

import (
	"context"
	"net/http"
	"time"

	"codegrade/internal/api/middleware"
	"codegrade/internal/app/service"
	"codegrade/internal/common"
	"codegrade/internal/common/security"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

type authService interface {
	Signup(ctx context.Context, req service.SignupRequest) (*service.AuthResponse, error)
	RegisterAdmin(ctx context.Context, req service.SignupRequest) (*service.AuthResponse, error)
	Login(ctx context.Context, req service.LoginRequest) (*service.AuthResponse, error)
	Logout(ctx context.Context, token string, expiresAt time.Time) error
}

type AuthHandler struct {
	authService authService
	tokenTTL    time.Duration
	guards      Guards
	log         *zap.Logger
}

func NewAuthHandler(authService authService, tokenTTL time.Duration, guards Guards, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, tokenTTL: tokenTTL, guards: guards, log: orNop(log)}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.signup)
	r.Post("/login", h.login)

	r.Group(func(authed chi.Router) {
		authed.Use(h.guards.Authenticate)
		authed.Post("/logout", h.logout)
		authed.With(middleware.AdminOnly).Post("/admin/register", h.registerAdmin)
	})
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     security.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     security.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	h.setTokenCookie(w, r, resp.Token)
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) registerAdmin(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.RegisterAdmin(r.Context(), req)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	// the calling admin keeps their own session
	common.RespondWithJSON(w, http.StatusCreated, resp.User)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	h.setTokenCookie(w, r, resp.Token)
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	raw, _ := middleware.GetTokenFromContext(r.Context())
	expiresAt := time.Now().Add(h.tokenTTL)
	if token, _, err := jwtauth.FromContext(r.Context()); err == nil && token != nil && !token.Expiration().IsZero() {
		expiresAt = token.Expiration()
	}

	if err := h.authService.Logout(r.Context(), raw, expiresAt); err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	clearTokenCookie(w)
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
