package controllers

import (
	"net/http"

	"sortashort_server/helpers"
	"sortashort_server/models"
	"sortashort_server/services"
)

// UserProfileController handles requests related to user profiles
type UserProfileController struct {
	UserProfileService *services.UserProfileService
}

// NewUserProfileController creates a new instance of UserProfileController
func NewUserProfileController(userProfileService *services.UserProfileService) *UserProfileController {
	return &UserProfileController{UserProfileService: userProfileService}
}

type profileRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Username *string `json:"username"`
	Avatar   *int    `json:"avatar" validate:"omitempty,gte=0"`
	Color    *string `json:"color"`
}

type usernameRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,username"`
}

// UpdateUserProfile edits username, avatar and color. A new username is reserved first.
func (c *UserProfileController) UpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAndValidate(w, r, func(req *profileRequest) {
		req.Email = models.NormalizeEmail(req.Email)
	})
	if !ok {
		return
	}

	summary, err := c.UserProfileService.UpdateProfile(r.Context(), req.Email, services.ProfileUpdate{
		Username: req.Username,
		Avatar:   req.Avatar,
		Color:    req.Color,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]any{"status": "ok", "profile": summary})
}

// SaveUsername is the username-only variant of UpdateUserProfile
func (c *UserProfileController) SaveUsername(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAndValidate(w, r, func(req *usernameRequest) {
		req.Email = models.NormalizeEmail(req.Email)
	})
	if !ok {
		return
	}

	summary, err := c.UserProfileService.UpdateProfile(r.Context(), req.Email, services.ProfileUpdate{Username: &req.Username})
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]any{"status": "ok", "username": summary.Username})
}

// SearchUsers matches reserved usernames. Queries shorter than two characters return [].
func (c *UserProfileController) SearchUsers(w http.ResponseWriter, r *http.Request) {
	results, err := c.UserProfileService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, results)
}
