package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"sortashort_server/logging"
	"sortashort_server/models"
	"sortashort_server/store"
)

// RatingService keeps the rating rows and the owner's profile reviews in step.
// A user has at most one review per movie; a new rating replaces the old one.
type RatingService struct {
	Store store.Store
	Now   func() time.Time
}

func NewRatingService(s store.Store) *RatingService {
	return &RatingService{Store: s, Now: time.Now}
}

// RatingSummary is the aggregate of every rating of a movie
type RatingSummary struct {
	Average float64 `json:"average_rating"`
	Count   int     `json:"count"`
}

// Rate stores the rating of email for movieID and returns the new average.
func (rs *RatingService) Rate(ctx context.Context, email, movieID string, rating float64, review string) (float64, error) {
	rec := models.RatingRecord{
		MovieID:   movieID,
		Email:     email,
		Rating:    rating,
		Review:    review,
		Timestamp: rs.Now().UTC().Format(models.TimestampLayout),
	}
	if err := rs.Store.PutRating(ctx, rec); err != nil {
		return 0, fmt.Errorf("failed to save rating: %w", err)
	}

	err := rs.updateReviews(ctx, email, func(reviews []models.Review) ([]models.Review, bool) {
		return append(withoutMovie(reviews, movieID), rec.AsReview()), true
	})
	if err != nil {
		return 0, err
	}

	summary, err := rs.Summary(ctx, movieID)
	if err != nil {
		return 0, err
	}
	logging.Ctx(ctx).Info().Str("email", email).Str("movie_id", movieID).Float64("rating", rating).Msg("rating saved")
	return summary.Average, nil
}

// Retract deletes the rating of email for movieID and returns the new average.
func (rs *RatingService) Retract(ctx context.Context, email, movieID string) (float64, error) {
	if err := rs.Store.DeleteRating(ctx, movieID, email); err != nil {
		return 0, fmt.Errorf("failed to delete rating: %w", err)
	}

	err := rs.updateReviews(ctx, email, func(reviews []models.Review) ([]models.Review, bool) {
		kept := withoutMovie(reviews, movieID)
		return kept, len(kept) != len(reviews)
	})
	if err != nil {
		return 0, err
	}

	summary, err := rs.Summary(ctx, movieID)
	if err != nil {
		return 0, err
	}
	return summary.Average, nil
}

// Summary averages every rating of movieID. No ratings averages to 0.
func (rs *RatingService) Summary(ctx context.Context, movieID string) (*RatingSummary, error) {
	records, err := rs.Store.ListRatings(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	if len(records) == 0 {
		return &RatingSummary{}, nil
	}
	var sum float64
	for _, r := range records {
		sum += r.Rating
	}
	return &RatingSummary{Average: sum / float64(len(records)), Count: len(records)}, nil
}

// updateReviews applies edit to the stored reviews, guarded on the list it
// read, retrying when a concurrent writer changed it in between. edit returns false to skip the write.
func (rs *RatingService) updateReviews(ctx context.Context, email string, edit func([]models.Review) ([]models.Review, bool)) error {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p, err := loadProfile(ctx, rs.Store, email)
		if err != nil {
			return err
		}
		var current []models.Review
		if p != nil {
			current = p.Reviews
		}

		next, write := edit(slices.Clone(current))
		if !write {
			return nil
		}
		err = rs.Store.SetReviews(ctx, email, current, next)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to update reviews of %s: %w", email, err)
		}
		return nil
	}
	return &ConflictError{Message: "reviews are being updated concurrently, try again"}
}

func withoutMovie(reviews []models.Review, movieID string) []models.Review {
	return slices.DeleteFunc(reviews, func(r models.Review) bool { return r.MovieID == movieID })
}
