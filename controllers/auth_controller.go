package controllers

import (
	"net/http"

	"sortashort_server/helpers"
	"sortashort_server/models"
	"sortashort_server/services"
)

// AuthController passes credentials through to the identity provider
type AuthController struct {
	AuthService *services.AuthService
}

func NewAuthController(authService *services.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type confirmRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

func normalizeCredentials(req *credentialsRequest) {
	req.Email = models.NormalizeEmail(req.Email)
}

// HandleSignUp registers a new account
func (ac *AuthController) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAndValidate(w, r, normalizeCredentials)
	if !ok {
		return
	}
	if err := ac.AuthService.SignUp(r.Context(), req.Email, req.Password); err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "created"})
}

// HandleConfirm confirms an account with the mailed code
func (ac *AuthController) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAndValidate(w, r, func(req *confirmRequest) {
		req.Email = models.NormalizeEmail(req.Email)
	})
	if !ok {
		return
	}
	if err := ac.AuthService.Confirm(r.Context(), req.Email, req.Code); err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "confirmed"})
}

// HandleSignIn exchanges credentials for an access token
func (ac *AuthController) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAndValidate(w, r, normalizeCredentials)
	if !ok {
		return
	}
	result, err := ac.AuthService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, result)
}
