package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sortashort_server/energy"
	"sortashort_server/logging"
	"sortashort_server/metrics"
	"sortashort_server/models"
	"sortashort_server/store"
)

// maxWriteAttempts bounds the optimistic retries of guarded writes.
const maxWriteAttempts = 3

// HistoryService owns the watched list and the energy gate in front of it.
type HistoryService struct {
	Store store.Store
	Now   func() time.Time
}

func NewHistoryService(s store.Store) *HistoryService {
	return &HistoryService{Store: s, Now: time.Now}
}

// loadProfile returns the stored profile or nil when the user has none yet.
func loadProfile(ctx context.Context, s store.Store, email string) (*models.UserProfile, error) {
	p, err := s.GetProfile(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", email, err)
	}
	return p, nil
}

// currentEnergy recharges the stored energy up to now. A profile without an
// energy attribute counts as full.
func currentEnergy(p *models.UserProfile, now int64) models.EnergyState {
	if p == nil || p.Energy == nil {
		return models.EnergyState{Energy: energy.MaxEnergy, EnergyTS: now}
	}
	var last int64
	if p.EnergyTS != nil {
		last = *p.EnergyTS
	}
	e, ts := energy.Recharge(*p.Energy, last, now)
	return models.EnergyState{Energy: e, EnergyTS: ts}
}

// energyChanged reports whether state must be written back. While full the
// timestamp is irrelevant, so a full user is not rewritten on every read.
func energyChanged(p *models.UserProfile, state models.EnergyState) bool {
	if p.Energy == nil || p.EnergyTS == nil {
		return true
	}
	if *p.Energy != state.Energy {
		return true
	}
	return state.Energy < energy.MaxEnergy && *p.EnergyTS != state.EnergyTS
}

// Snapshot returns the profile with recharged energy, persisting the recharge
// when it changed anything. Unknown users get the defaults and nothing is written.
func (hs *HistoryService) Snapshot(ctx context.Context, email string) (*models.HistorySnapshot, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p, err := loadProfile(ctx, hs.Store, email)
		if err != nil {
			return nil, err
		}
		state := currentEnergy(p, hs.Now().Unix())
		if p == nil {
			return buildSnapshot(&models.UserProfile{Email: email}, state), nil
		}
		if !energyChanged(p, state) {
			return buildSnapshot(p, state), nil
		}

		err = hs.Store.SaveEnergy(ctx, email, p.Guard(), state)
		if errors.Is(err, store.ErrConflict) {
			logging.Ctx(ctx).Debug().Str("email", email).Int("attempt", attempt+1).Msg("energy write-back raced, reloading")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to persist recharge for %s: %w", email, err)
		}
		return buildSnapshot(p, state), nil
	}
	return nil, &ConflictError{Message: "profile is being updated concurrently, try again"}
}

func buildSnapshot(p *models.UserProfile, state models.EnergyState) *models.HistorySnapshot {
	snap := &models.HistorySnapshot{
		Email:          p.Email,
		Avatar:         p.Avatar,
		Color:          p.DisplayColor(),
		FriendCode:     p.FriendCode,
		Watched:        nonNil(p.Watched),
		Reviews:        nonNil(p.Reviews),
		Following:      nonNil(p.Following),
		Followers:      nonNil(p.Followers),
		Energy:         state.Energy,
		EnergyTS:       state.EnergyTS,
		NextRechargeAt: energy.NextRecharge(state.EnergyTS),
	}
	if p.Username != "" {
		name := p.Username
		snap.Username = &name
	}
	return snap
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// MarkWatched consumes one unit of energy and appends movieID to the watched
// list in a single guarded write. With no energy left nothing is written.
func (hs *HistoryService) MarkWatched(ctx context.Context, email, movieID string) (*models.WatchResult, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p, err := loadProfile(ctx, hs.Store, email)
		if err != nil {
			return nil, err
		}

		state := currentEnergy(p, hs.Now().Unix())
		if state.Energy <= 0 {
			metrics.EnergyRejections.Inc()
			return nil, &ResourceExhaustedError{
				Energy:         0,
				EnergyTS:       state.EnergyTS,
				NextRechargeAt: energy.NextRecharge(state.EnergyTS),
			}
		}

		next := models.EnergyState{Energy: state.Energy - 1, EnergyTS: state.EnergyTS}
		err = hs.Store.ConsumeEnergy(ctx, email, p.Guard(), next, movieID)
		if errors.Is(err, store.ErrConflict) {
			logging.Ctx(ctx).Debug().Str("email", email).Int("attempt", attempt+1).Msg("energy consume raced, reloading")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to record watched %s for %s: %w", movieID, email, err)
		}

		logging.Ctx(ctx).Info().Str("email", email).Str("movie_id", movieID).Int("energy", next.Energy).Msg("watched recorded")
		return &models.WatchResult{
			Status:         "saved",
			MovieID:        movieID,
			Energy:         next.Energy,
			EnergyTS:       next.EnergyTS,
			NextRechargeAt: energy.NextRecharge(next.EnergyTS),
		}, nil
	}
	return nil, &ConflictError{Message: "profile is being updated concurrently, try again"}
}

// Refill restores full energy. Only wired when the dev refill route is enabled.
func (hs *HistoryService) Refill(ctx context.Context, email string) (*models.EnergyState, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p, err := loadProfile(ctx, hs.Store, email)
		if err != nil {
			return nil, err
		}
		state := models.EnergyState{Energy: energy.MaxEnergy, EnergyTS: hs.Now().Unix()}
		err = hs.Store.SaveEnergy(ctx, email, p.Guard(), state)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to refill energy for %s: %w", email, err)
		}
		return &state, nil
	}
	return nil, &ConflictError{Message: "profile is being updated concurrently, try again"}
}
