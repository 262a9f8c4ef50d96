package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/types"
)

const (
	defaultTokenTTL   = 24 * time.Hour
	maxEmailLength    = 180
	minPasswordLength = 8
	maxPasswordLength = 4096
)

// AuthHandler provides JWT authentication endpoints.
type AuthHandler struct {
	users    *services.UserService
	secret   []byte
	tokenTTL time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(users *services.UserService, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthHandler{
		users:    users,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, h *AuthHandler) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.With(h.RequireAuth).Get("/me", h.Me)
}

// RequireAuth enforces JWT authentication and stores the signed-in user in
// the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		subject, err := parseTokenSubject(tokenString, h.secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID, err := strconv.Atoi(subject)
		if err != nil || userID < 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		actor, ok, err := h.users.FindByID(r.Context(), userID)
		if err != nil {
			serverError(w, r, "failed to load user", err)
			return
		}
		if !ok {
			// The account was deleted after the token was issued.
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

// Register creates a new ROLE_USER account and returns a JWT.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	user, err := h.users.Register(r.Context(), types.User{Email: req.Email}, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeValidation(w, fieldErrors{"email": "is already registered"})
			return
		}
		serverError(w, r, "failed to create user", err)
		return
	}

	token, err := issueToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		serverError(w, r, "failed to create token", err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login verifies credentials and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		serverError(w, r, "failed to authenticate", err)
		return
	}

	token, err := issueToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		serverError(w, r, "failed to create token", err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actorFromContext(r.Context()))
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *CredentialsRequest) validate() fieldErrors {
	fields := fieldErrors{}
	req.Email = strings.TrimSpace(req.Email)
	validateEmail(fields, req.Email)
	validatePassword(fields, req.Password)
	return fields
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

func validateEmail(fields fieldErrors, email string) {
	fields.requireText("email", email, maxEmailLength)
	if _, bad := fields["email"]; bad {
		return
	}
	at := strings.IndexByte(email, '@')
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		fields["email"] = "is not a valid email address"
	}
}

func validatePassword(fields fieldErrors, password string) {
	switch {
	case password == "":
		fields["password"] = "is required"
	case len(password) < minPasswordLength:
		fields["password"] = "must be at least " + strconv.Itoa(minPasswordLength) + " characters"
	case len(password) > maxPasswordLength:
		fields["password"] = "is too long"
	}
}

func issueToken(userID int, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
