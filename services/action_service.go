package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"

	"sortashort_server/logging"
	"sortashort_server/models"
	"sortashort_server/store"

	"golang.org/x/sync/errgroup"
)

const (
	// FeedLimit caps the number of entries returned by Feed.
	FeedLimit = 50
	// feedFanOut bounds concurrent profile reads while building a feed.
	feedFanOut = 8
)

var friendCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// ActionService handles follow actions and the feed built from them.
type ActionService struct {
	Store store.Store
}

func NewActionService(s store.Store) *ActionService {
	return &ActionService{Store: s}
}

// FollowTarget names the other user by email or by friend code.
type FollowTarget struct {
	Email      string
	FriendCode string
}

// FollowResult describes the relationship after an action
type FollowResult struct {
	Status string             `json:"status"` // following or unfollowed
	Target models.UserSummary `json:"target"`
}

// ProcessAction dispatches a follow or unfollow from email to target.
func (as *ActionService) ProcessAction(ctx context.Context, email string, target FollowTarget, action string) (*FollowResult, error) {
	if action == "" {
		action = models.ActionFollow
	}
	if action != models.ActionFollow && action != models.ActionUnfollow {
		return nil, invalid("action must be one of: follow unfollow")
	}

	other, err := as.resolveTarget(ctx, target, action)
	if err != nil {
		return nil, err
	}
	if other.Email == email {
		return nil, invalid("you cannot follow yourself")
	}

	switch action {
	case models.ActionFollow:
		err = as.follow(ctx, email, other.Email)
	default:
		err = as.unfollow(ctx, email, other.Email)
	}
	if err != nil {
		return nil, err
	}

	status := "following"
	if action == models.ActionUnfollow {
		status = "unfollowed"
	}
	logging.Ctx(ctx).Info().Str("email", email).Str("target", other.Email).Str("action", action).Msg("follow action applied")
	return &FollowResult{Status: status, Target: *other}, nil
}

func (as *ActionService) resolveTarget(ctx context.Context, target FollowTarget, action string) (*models.UserSummary, error) {
	if target.Email == "" && target.FriendCode == "" {
		return nil, invalid("target_email or friend_code is required")
	}

	var (
		p   *models.UserProfile
		err error
	)
	if target.Email != "" {
		p, err = as.Store.GetProfile(ctx, target.Email)
		if errors.Is(err, store.ErrNotFound) && action == models.ActionUnfollow {
			// unfollowing a deleted user still cleans up our own list
			return &models.UserSummary{Email: target.Email, Username: models.EmailLocalPart(target.Email), Color: models.DefaultColor}, nil
		}
	} else {
		if !friendCodePattern.MatchString(target.FriendCode) {
			return nil, invalid("friend_code must be 6 digits")
		}
		p, err = as.Store.FindProfileByFriendCode(ctx, target.FriendCode)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Message: "user not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve follow target: %w", err)
	}
	return summarize(p), nil
}

func summarize(p *models.UserProfile) *models.UserSummary {
	return &models.UserSummary{
		Username: p.DisplayName(),
		Email:    p.Email,
		Avatar:   p.Avatar,
		Color:    p.DisplayColor(),
	}
}

func (as *ActionService) follow(ctx context.Context, email, target string) error {
	if err := as.Store.AppendUnique(ctx, email, store.AttrFollowing, target); err != nil {
		return fmt.Errorf("failed to update following list for %s: %w", email, err)
	}
	if err := as.Store.AppendUnique(ctx, target, store.AttrFollowers, email); err != nil {
		return fmt.Errorf("failed to update followers list for %s: %w", target, err)
	}
	return nil
}

func (as *ActionService) unfollow(ctx context.Context, email, target string) error {
	if err := as.RemoveFromList(ctx, email, store.AttrFollowing, target); err != nil {
		return err
	}
	return as.RemoveFromList(ctx, target, store.AttrFollowers, email)
}

// RemoveFromList drops every occurrence of value from a list attribute,
// rewriting the list only if it still equals the one read.
func (as *ActionService) RemoveFromList(ctx context.Context, email, attr, value string) error {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p, err := loadProfile(ctx, as.Store, email)
		if err != nil {
			return err
		}
		if p == nil {
			return nil
		}

		current := profileList(p, attr)
		kept := slices.DeleteFunc(slices.Clone(current), func(v string) bool { return v == value })
		if len(kept) == len(current) {
			return nil
		}

		err = as.Store.SetList(ctx, email, attr, current, kept)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to remove %s from %s of %s: %w", value, attr, email, err)
		}
		return nil
	}
	return &ConflictError{Message: "list is being updated concurrently, try again"}
}

func profileList(p *models.UserProfile, attr string) []string {
	switch attr {
	case store.AttrFollowing:
		return p.Following
	case store.AttrFollowers:
		return p.Followers
	default:
		return p.Watched
	}
}

// Feed returns the reviews of every user email follows, newest first, capped
// at FeedLimit. Followed users without a profile are skipped.
func (as *ActionService) Feed(ctx context.Context, email string) ([]models.FeedEntry, error) {
	p, err := loadProfile(ctx, as.Store, email)
	if err != nil {
		return nil, err
	}
	if p == nil || len(p.Following) == 0 {
		return []models.FeedEntry{}, nil
	}

	perUser := make([][]models.FeedEntry, len(p.Following))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(feedFanOut)
	for i, followed := range p.Following {
		g.Go(func() error {
			friend, err := as.Store.GetProfile(gctx, followed)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to load followed profile %s: %w", followed, err)
			}
			perUser[i] = annotate(friend)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return MergeFeed(perUser...), nil
}

func annotate(friend *models.UserProfile) []models.FeedEntry {
	entries := make([]models.FeedEntry, 0, len(friend.Reviews))
	for _, r := range friend.Reviews {
		entries = append(entries, models.FeedEntry{
			MovieID:     r.MovieID,
			Rating:      r.Rating,
			Review:      r.Review,
			Timestamp:   r.Timestamp,
			FriendEmail: friend.Email,
			Username:    friend.DisplayName(),
			Avatar:      friend.Avatar,
			Color:       friend.DisplayColor(),
		})
	}
	return entries
}

// MergeFeed concatenates the groups, orders them by timestamp descending
// (stable for equal timestamps) and truncates to FeedLimit.
func MergeFeed(groups ...[]models.FeedEntry) []models.FeedEntry {
	merged := []models.FeedEntry{}
	for _, g := range groups {
		merged = append(merged, g...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Timestamp > merged[j].Timestamp })
	if len(merged) > FeedLimit {
		merged = merged[:FeedLimit]
	}
	return merged
}
