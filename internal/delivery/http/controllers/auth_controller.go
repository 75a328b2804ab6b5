package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"talkregistration/internal/delivery/http/helpers"
	"talkregistration/internal/domain"
)

// SignUpRequest is the request body for POST /auth/signup. display_name is
// optional and defaults to the local part of the email.
type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyTokenRequest is the request body for POST /auth/verify-token.
type VerifyTokenRequest struct {
	Token string `json:"token"`
}

// Validate implements Validator.
func (v VerifyTokenRequest) Validate() []string {
	if strings.TrimSpace(v.Token) == "" {
		return []string{"token is required"}
	}
	return nil
}

// VerifyTokenResponse is the data payload of POST /auth/verify-token.
type VerifyTokenResponse struct {
	Valid bool         `json:"valid"`
	User  *domain.User `json:"user"`
}

// AuthResponse is the data payload of sign-up and login.
type AuthResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int64        `json:"expires_in"`
	User      *domain.User `json:"user"`
}

// AuthSuccessResponse is the success response envelope for POST /auth/signup (201) and POST /auth/login (200).
type AuthSuccessResponse struct {
	Data  AuthResponse      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type AuthController struct {
	Logger      *slog.Logger
	Service     domain.AuthService
	TokenExpiry time.Duration
}

func NewAuthController(logger *slog.Logger, svc domain.AuthService, tokenExpiry time.Duration) *AuthController {
	return &AuthController{
		Logger:      logger,
		Service:     svc,
		TokenExpiry: tokenExpiry,
	}
}

func (c *AuthController) respond(w http.ResponseWriter, status int, token string, user *domain.User) {
	helpers.WriteJSONSuccess(w, status, AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(c.TokenExpiry.Seconds()),
		User:      user,
	})
}

// SignUp godoc
// @Summary Sign up a new user
// @Description Create an account. The password needs at least 8 characters with an uppercase letter, a lowercase letter and a number. Returns a JWT and the user.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body SignUpRequest true "Sign-up data"
// @Success 201 {object} controllers.AuthSuccessResponse "data contains token, token_type, expires_in and user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request, error.details lists problems"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (email already in use)"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/signup [post]
func (c *AuthController) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	token, user, err := c.Service.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "user not found")
		return
	}
	c.respond(w, http.StatusCreated, token, user)
}

// Login godoc
// @Summary Log in
// @Description Authenticate with email and password. Returns a JWT carrying the user id, email and role.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} controllers.AuthSuccessResponse "data contains token, token_type, expires_in and user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	token, user, err := c.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "user not found")
		return
	}
	c.respond(w, http.StatusOK, token, user)
}

// VerifyToken godoc
// @Summary Verify a token
// @Description Check that a JWT is valid and unexpired and return the account it belongs to.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body VerifyTokenRequest true "Token to verify"
// @Success 200 {object} helpers.APIResponse{data=controllers.VerifyTokenResponse}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/verify-token [post]
func (c *AuthController) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req VerifyTokenRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.VerifyToken(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "user not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, VerifyTokenResponse{Valid: true, User: user})
}
