package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"sortashort_server/logging"
	"sortashort_server/models"
	"sortashort_server/store"
	"sortashort_server/validation"
)

// minSearchLength is the shortest query the user search answers.
const minSearchLength = 2

// UserProfileService edits display attributes and owns username reservations.
type UserProfileService struct {
	Store store.Store
}

func NewUserProfileService(s store.Store) *UserProfileService {
	return &UserProfileService{Store: s}
}

// ProfileUpdate is a partial edit; nil fields keep their stored value.
type ProfileUpdate struct {
	Username *string
	Avatar   *int
	Color    *string
}

// UpdateProfile applies u to the profile of email. A new username is reserved
// first; the previous reservation is released afterwards on a best-effort basis.
func (ups *UserProfileService) UpdateProfile(ctx context.Context, email string, u ProfileUpdate) (*models.UserSummary, error) {
	p, err := loadProfile(ctx, ups.Store, email)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &models.UserProfile{Email: email}
	}

	attrs := models.ProfileAttributes{Avatar: p.Avatar, Color: p.DisplayColor()}
	if u.Avatar != nil {
		if *u.Avatar < 0 {
			return nil, invalid("avatar must be greater than or equal to 0")
		}
		attrs.Avatar = *u.Avatar
	}
	if u.Color != nil && strings.TrimSpace(*u.Color) != "" {
		attrs.Color = strings.TrimSpace(*u.Color)
	}

	name := ""
	if u.Username != nil {
		name = strings.TrimSpace(*u.Username)
	}
	oldName := p.Username

	if name != "" && name != oldName {
		if err := ups.Reserve(ctx, email, name, attrs); err != nil {
			return nil, err
		}
		attrs.Username = name
	}

	if err := ups.Store.SetProfileAttributes(ctx, email, attrs); err != nil {
		return nil, fmt.Errorf("failed to update profile %s: %w", email, err)
	}

	current := oldName
	if attrs.Username != "" {
		current = attrs.Username
		if oldName != "" {
			ups.releaseReservation(ctx, oldName, email)
		}
	} else if oldName != "" {
		ups.refreshReservation(ctx, oldName, email, attrs)
	}

	logging.Ctx(ctx).Info().Str("email", email).Str("username", current).Msg("profile updated")
	return &models.UserSummary{
		Username: current,
		Email:    email,
		Avatar:   attrs.Avatar,
		Color:    attrs.Color,
	}, nil
}

// Reserve claims name for email. A reservation already held by the same email
// (left over from an interrupted update) is reclaimed instead of refused.
func (ups *UserProfileService) Reserve(ctx context.Context, email, name string, attrs models.ProfileAttributes) error {
	if !validation.UsernamePattern.MatchString(name) {
		return invalid("username must be 3-15 characters of a-z, 0-9 or _")
	}

	err := ups.Store.CreateReservation(ctx, models.UsernameReservation{
		Username: name,
		Email:    email,
		Avatar:   attrs.Avatar,
		Color:    attrs.Color,
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("failed to reserve username %s: %w", name, err)
	}

	existing, getErr := ups.Store.GetReservation(ctx, name)
	if getErr == nil && existing.Email == email {
		ups.refreshReservation(ctx, name, email, attrs)
		return nil
	}
	return &ConflictError{Message: fmt.Sprintf("username %q is already taken", name)}
}

func (ups *UserProfileService) releaseReservation(ctx context.Context, name, email string) {
	if err := ups.Store.DeleteReservation(ctx, name, email); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("username", name).Str("email", email).Msg("failed to release old username reservation")
	}
}

func (ups *UserProfileService) refreshReservation(ctx context.Context, name, email string, attrs models.ProfileAttributes) {
	if err := ups.Store.UpdateReservationDisplay(ctx, name, email, attrs.Avatar, attrs.Color); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("username", name).Msg("failed to refresh reservation display attributes")
	}
}

// Search returns reserved usernames containing query, case-insensitively,
// sorted by username. Queries shorter than two characters match nothing.
func (ups *UserProfileService) Search(ctx context.Context, query string) ([]models.UserSummary, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if len([]rune(query)) < minSearchLength {
		return []models.UserSummary{}, nil
	}

	reservations, err := ups.Store.ListReservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list usernames: %w", err)
	}

	results := []models.UserSummary{}
	for _, r := range reservations {
		if !strings.Contains(strings.ToLower(r.Username), query) {
			continue
		}
		color := r.Color
		if color == "" {
			color = models.DefaultColor
		}
		results = append(results, models.UserSummary{
			Username: r.Username,
			Email:    r.Email,
			Avatar:   r.Avatar,
			Color:    color,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Username < results[j].Username })
	return results, nil
}
