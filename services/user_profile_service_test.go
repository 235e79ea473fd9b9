package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"sortashort_server/models"
	"sortashort_server/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfile_BobConflict(t *testing.T) {
	s := storetest.NewMemoryStore()
	ups := NewUserProfileService(s)
	ctx := context.Background()

	_, err := ups.UpdateProfile(ctx, "a@example.com", ProfileUpdate{Username: strPtr("bob")})
	require.NoError(t, err)

	_, err = ups.UpdateProfile(ctx, "b@example.com", ProfileUpdate{Username: strPtr("bob")})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	assert.Equal(t, "bob", s.Profile("a@example.com").Username)
	assert.Equal(t, "a@example.com", s.Reservation("bob").Email)
	assert.Nil(t, s.Profile("b@example.com"))
}

func TestReserve_ConcurrentSingleWinner(t *testing.T) {
	s := storetest.NewMemoryStore()
	ups := NewUserProfileService(s)
	ctx := context.Background()

	const contenders = 10
	errs := make([]error, contenders)
	var wg sync.WaitGroup
	for i := range contenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			email := string(rune('a'+i)) + "@example.com"
			errs[i] = ups.Reserve(ctx, email, "dana", models.ProfileAttributes{})
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var conflict *ConflictError
		assert.ErrorAs(t, err, &conflict)
	}
	assert.Equal(t, 1, wins)
}

func TestReserve_InvalidNames(t *testing.T) {
	ups := NewUserProfileService(storetest.NewMemoryStore())

	for _, name := range []string{"Bob", "ab", "this_is_way_too_long", "bad-name", "spa ce"} {
		err := ups.Reserve(context.Background(), "a@example.com", name, models.ProfileAttributes{})
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve, name)
	}
}

func TestReserve_ReclaimsOwnReservation(t *testing.T) {
	s := storetest.NewMemoryStore()
	require.NoError(t, s.CreateReservation(context.Background(), models.UsernameReservation{Username: "carol", Email: "c@example.com"}))
	ups := NewUserProfileService(s)

	err := ups.Reserve(context.Background(), "c@example.com", "carol", models.ProfileAttributes{Avatar: 2, Color: "#f00"})
	require.NoError(t, err)

	r := s.Reservation("carol")
	assert.Equal(t, 2, r.Avatar)
	assert.Equal(t, "#f00", r.Color)
}

func TestUpdateProfile_RenameReleasesOldReservation(t *testing.T) {
	s := storetest.NewMemoryStore()
	ups := NewUserProfileService(s)
	ctx := context.Background()

	_, err := ups.UpdateProfile(ctx, "a@example.com", ProfileUpdate{Username: strPtr("alpha")})
	require.NoError(t, err)
	summary, err := ups.UpdateProfile(ctx, "a@example.com", ProfileUpdate{Username: strPtr("beta")})
	require.NoError(t, err)

	assert.Equal(t, "beta", summary.Username)
	assert.Nil(t, s.Reservation("alpha"))
	assert.NotNil(t, s.Reservation("beta"))
	assert.Equal(t, "beta", s.Profile("a@example.com").Username)
}

func TestUpdateProfile_ReleaseFailureIsSwallowed(t *testing.T) {
	s := storetest.NewMemoryStore()
	ups := NewUserProfileService(s)
	ctx := context.Background()

	_, err := ups.UpdateProfile(ctx, "a@example.com", ProfileUpdate{Username: strPtr("alpha")})
	require.NoError(t, err)
	s.FailNext("DeleteReservation", errors.New("throttled"))

	summary, err := ups.UpdateProfile(ctx, "a@example.com", ProfileUpdate{Username: strPtr("beta")})
	require.NoError(t, err)

	assert.Equal(t, "beta", summary.Username)
	assert.NotNil(t, s.Reservation("alpha"))
}

func TestUpdateProfile_DisplayOnlyRefreshesReservation(t *testing.T) {
	s := storetest.NewMemoryStore()
	ups := NewUserProfileService(s)
	ctx := context.Background()

	_, err := ups.UpdateProfile(ctx, "a@example.com", ProfileUpdate{Username: strPtr("alpha")})
	require.NoError(t, err)
	summary, err := ups.UpdateProfile(ctx, "a@example.com", ProfileUpdate{Avatar: intPtr(4), Color: strPtr("#0af")})
	require.NoError(t, err)

	assert.Equal(t, &models.UserSummary{Username: "alpha", Email: "a@example.com", Avatar: 4, Color: "#0af"}, summary)
	r := s.Reservation("alpha")
	assert.Equal(t, 4, r.Avatar)
	assert.Equal(t, "#0af", r.Color)
	assert.Equal(t, 1, s.Calls("CreateReservation"))
}

func TestUpdateProfile_NegativeAvatar(t *testing.T) {
	s := storetest.NewMemoryStore()
	ups := NewUserProfileService(s)

	_, err := ups.UpdateProfile(context.Background(), "a@example.com", ProfileUpdate{Avatar: intPtr(-1)})

	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, s.Calls("SetProfileAttributes"))
}

func TestSearch(t *testing.T) {
	s := storetest.NewMemoryStore()
	ups := NewUserProfileService(s)
	ctx := context.Background()
	for email, name := range map[string]string{
		"1@example.com": "danny",
		"2@example.com": "anna",
		"3@example.com": "bob",
		"4@example.com": "joan_",
	} {
		require.NoError(t, ups.Reserve(ctx, email, name, models.ProfileAttributes{}))
	}

	hits, err := ups.Search(ctx, "AN")
	require.NoError(t, err)
	names := make([]string, 0, len(hits))
	for _, h := range hits {
		names = append(names, h.Username)
		assert.Equal(t, models.DefaultColor, h.Color)
	}
	assert.Equal(t, []string{"anna", "danny", "joan_"}, names)

	short, err := ups.Search(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, short)
	assert.NotNil(t, short)
	assert.Equal(t, 1, s.Calls("ListReservations"))
}
