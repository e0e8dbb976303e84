package handler

import (
	"net/http"
	"strings"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/service"
)

// timezoneHeader lets clients send the browser's IANA zone instead of a body field.
const timezoneHeader = "X-Timezone"

// AuthHandler serves account creation and sign-in for Direction users.
type AuthHandler struct {
	accounts *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts *service.AuthService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Register handles POST /auth/register. The user's timezone comes from the
// body, or from the X-Timezone header when the body leaves it out.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}
	if err := requireCredentials(input.Email, input.Password); err != nil {
		RespondError(w, err)
		return
	}
	input.Timezone = registrationTimezone(r, input.Timezone)

	result, err := h.accounts.Register(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, result)
}

// Login handles POST /auth/login. Failed attempts count against the email
// and the client IP.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}
	// Empty credentials are not attempts and never reach the lockout.
	if err := requireCredentials(input.Email, input.Password); err != nil {
		RespondError(w, err)
		return
	}

	result, err := h.accounts.Login(r.Context(), input, ClientIP(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

func requireCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return domain.ErrValidation("email and password are required")
	}
	return nil
}

func registrationTimezone(r *http.Request, fromBody string) string {
	if tz := strings.TrimSpace(fromBody); tz != "" {
		return tz
	}
	return strings.TrimSpace(r.Header.Get(timezoneHeader))
}
