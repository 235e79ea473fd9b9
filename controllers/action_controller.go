package controllers

import (
	"net/http"

	"sortashort_server/helpers"
	"sortashort_server/models"
	"sortashort_server/services"
)

// ActionController handles follow actions and the social feed
type ActionController struct {
	ActionService *services.ActionService
}

// NewActionController creates a new ActionController instance
func NewActionController(actionService *services.ActionService) *ActionController {
	return &ActionController{ActionService: actionService}
}

type followRequest struct {
	Email       string     `json:"email" validate:"required,email"`
	TargetEmail string     `json:"target_email" validate:"omitempty,email"`
	FriendCode  FlexibleID `json:"friend_code"`
	Action      string     `json:"action" validate:"omitempty,oneof=follow unfollow"`
}

type addFriendRequest struct {
	Email       string     `json:"email" validate:"required,email"`
	FriendEmail string     `json:"friend_email" validate:"omitempty,email"`
	FriendCode  FlexibleID `json:"friend_code"`
}

type feedQuery struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleFollow follows or unfollows a user by email or friend code
func (ac *ActionController) HandleFollow(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAndValidate(w, r, func(req *followRequest) {
		req.Email = models.NormalizeEmail(req.Email)
		req.TargetEmail = models.NormalizeEmail(req.TargetEmail)
	})
	if !ok {
		return
	}

	target := services.FollowTarget{Email: req.TargetEmail, FriendCode: req.FriendCode.String()}
	ac.processAction(w, r, req.Email, target, req.Action)
}

// HandleAddFriend is the older follow-only endpoint keyed by friend_email
func (ac *ActionController) HandleAddFriend(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAndValidate(w, r, func(req *addFriendRequest) {
		req.Email = models.NormalizeEmail(req.Email)
		req.FriendEmail = models.NormalizeEmail(req.FriendEmail)
	})
	if !ok {
		return
	}

	target := services.FollowTarget{Email: req.FriendEmail, FriendCode: req.FriendCode.String()}
	ac.processAction(w, r, req.Email, target, models.ActionFollow)
}

func (ac *ActionController) processAction(w http.ResponseWriter, r *http.Request, email string, target services.FollowTarget, action string) {
	result, err := ac.ActionService.ProcessAction(r.Context(), email, target, action)
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, result)
}

// HandleFeed returns the reviews of followed users, newest first
func (ac *ActionController) HandleFeed(w http.ResponseWriter, r *http.Request) {
	req := feedQuery{Email: queryEmail(r)}
	if !validateQuery(w, r, req) {
		return
	}

	feed, err := ac.ActionService.Feed(r.Context(), req.Email)
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, feed)
}
