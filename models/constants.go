package models

import (
	"fmt"
	"strings"
)

// DefaultTableName is the single DynamoDB table holding every entity
const DefaultTableName = "sort-a-short-db"

// Key prefixes and fixed sort keys of the single table design
const (
	UserPrefix       = "USER#"
	RatingPrefix     = "RATING#"
	UsernamePrefix   = "USERNAME#"
	FriendCodePrefix = "FRIENDCODE#"

	ProfileSK     = "PROFILE"
	ReservationSK = "RESERVED"
)

// Follow actions
const (
	ActionFollow   = "follow"
	ActionUnfollow = "unfollow"
)

// TimestampLayout is a fixed width UTC layout, so string order is time order
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Display defaults for profiles that never set them
const (
	DefaultColor = "#333"
	DefaultTitle = "Sort a Short"
)

// UserPK returns the partition key of a user's profile.
func UserPK(email string) string { return fmt.Sprintf("%s%s", UserPrefix, email) }

// RatingPK returns the partition key holding every rating of a movie.
func RatingPK(movieID string) string { return fmt.Sprintf("%s%s", RatingPrefix, movieID) }

// RatingSK returns the sort key of a user's rating row.
func RatingSK(email string) string { return UserPK(email) }

// UsernamePK returns the partition key of a username reservation.
func UsernamePK(name string) string { return fmt.Sprintf("%s%s", UsernamePrefix, name) }

// FriendCodePK returns the partition key of a friend code reservation.
func FriendCodePK(code string) string { return fmt.Sprintf("%s%s", FriendCodePrefix, code) }

// EmailFromKey strips the USER# prefix.
func EmailFromKey(key string) string { return strings.TrimPrefix(key, UserPrefix) }

// MovieFromKey strips the RATING# prefix.
func MovieFromKey(key string) string { return strings.TrimPrefix(key, RatingPrefix) }

// UsernameFromKey strips the USERNAME# prefix.
func UsernameFromKey(key string) string { return strings.TrimPrefix(key, UsernamePrefix) }

// NormalizeEmail trims and lowercases an email before it is used in a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailLocalPart returns the part of an email before the @.
func EmailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
