package services

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/walletapi/backend/internal/auth"
	"github.com/walletapi/backend/internal/ledger"
	"github.com/walletapi/backend/internal/middleware"
	"github.com/walletapi/backend/internal/models"
	"github.com/walletapi/backend/internal/repository"
)

type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenManager
	engine    *ledger.Engine
	validator *ValidationHelper
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"maria@example.com"` // User email
	Password string `json:"password" validate:"required,min=6" example:"password123"`    // User password
}

// AddressRequest is the postal address supplied at registration
// @Description Address structure
type AddressRequest struct {
	Street       string `json:"street" validate:"required" example:"Rua das Flores"`
	Number       string `json:"number" validate:"required" example:"100"`
	Neighborhood string `json:"neighborhood" validate:"required" example:"Centro"`
	City         string `json:"city" validate:"required" example:"São Paulo"`
	State        string `json:"state" validate:"required,len=2" example:"SP"`
	Zipcode      string `json:"zipcode" validate:"required,numeric,len=8" example:"01001000"`
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Name     string         `json:"name" validate:"required,min=2" example:"Maria Silva"`                     // Full name
	Email    string         `json:"email" validate:"required,email" example:"maria@example.com"`              // User email address
	CPFCNPJ  string         `json:"cpf_cnpj" validate:"required,numeric,min=11,max=14" example:"12345678901"` // Tax identifier
	Password string         `json:"password" validate:"required,min=6" example:"password123"`                 // User password
	Address  AddressRequest `json:"address" validate:"required"`                                              // Postal address
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token string       `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	User  *models.User `json:"user"`                                                    // User information
}

// AccountResponse is the authenticated user with their balance
// @Description Account details structure
type AccountResponse struct {
	User    *models.User    `json:"user"`
	Balance decimal.Decimal `json:"balance" swaggertype:"string" example:"250.00"`
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, engine *ledger.Engine) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		engine:    engine,
		validator: NewValidationHelper(),
	}
}

// Register handles user registration
// @Summary Register a new user
// @Description Create the user, their address and a zero-balance account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 201 {object} AuthResponse "Registration successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 409 {object} ErrorResponse "Email or CPF/CNPJ already exists"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		log.Printf("[AUTH] Registration failed - invalid request: %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		log.Printf("[AUTH] Registration validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	user := &models.User{
		Name:     req.Name,
		Email:    strings.ToLower(req.Email),
		CPFCNPJ:  req.CPFCNPJ,
		Password: hashedPassword,
		Address: &models.Address{
			Street:       req.Address.Street,
			Number:       req.Address.Number,
			Neighborhood: req.Address.Neighborhood,
			City:         req.Address.City,
			State:        strings.ToUpper(req.Address.State),
			Zipcode:      req.Address.Zipcode,
		},
	}

	if err := s.users.Register(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			SendErrorResponse(w, "Email or CPF/CNPJ Already Exists", http.StatusConflict, nil)
			return
		}
		log.Printf("[AUTH] User creation failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", user.ID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Registration successful for user %d", user.ID)
	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login handles user authentication
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		log.Printf("[AUTH] Login failed - invalid request: %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	user, err := s.users.FindByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("[AUTH] User lookup failed for %s: %v", req.Email, err)
			SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
			return
		}
		log.Printf("[AUTH] User not found for email: %s", req.Email)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !auth.VerifyPassword(req.Password, user.Password) {
		log.Printf("[AUTH] Invalid password for user: %d", user.ID)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", user.ID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for user %d", user.ID)
	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Logout handles user logout
// @Summary Logout user
// @Description Blacklist the caller's token until it expires
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Logout successful"
// @Failure 503 {object} ErrorResponse "Token blacklist unavailable"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	if err := s.tokens.Revoke(r.Context(), claims); err != nil {
		log.Printf("[AUTH] Failed to blacklist token: %v", err)
		SendErrorResponse(w, "Logout unavailable, try again later", http.StatusServiceUnavailable, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// GetUserAccount retrieves user account details from auth token
// @Summary Get user account details
// @Description Get authenticated user's profile and balance
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AccountResponse "User account details"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /auth/account [get]
func (s *AuthService) GetUserAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromRequest(r)
	if !ok {
		log.Printf("[AUTH] Unauthorized account request - no user ID in context")
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	user, err := s.users.FindByID(r.Context(), actor.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[AUTH] Failed to fetch user details for ID %d: %v", actor.AccountID, err)
		SendErrorResponse(w, "Failed to fetch user details", http.StatusInternalServerError, nil)
		return
	}

	balance, err := s.engine.Balance(r.Context(), actor)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{User: user, Balance: balance})
}
