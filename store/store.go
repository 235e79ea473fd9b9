// Package store persists profiles, ratings and username reservations in the
// single DynamoDB table.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"sortashort_server/logging"
	"sortashort_server/models"
	"sortashort_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Profile list attributes.
const (
	AttrWatched   = "watched"
	AttrFollowing = "following"
	AttrFollowers = "followers"
)

// Store is the persistence surface used by the services.
//
// Every write that can create a profile row also assigns a friend code when
// the row does not have one yet. Codes are reserved in their own rows so no
// two profiles share one.
type Store interface {
	GetProfile(ctx context.Context, email string) (*models.UserProfile, error)
	FindProfileByFriendCode(ctx context.Context, code string) (*models.UserProfile, error)
	ListProfiles(ctx context.Context) ([]models.UserProfile, error)

	// SaveEnergy writes next if the stored energy still matches guard.
	SaveEnergy(ctx context.Context, email string, guard models.EnergyGuard, next models.EnergyState) error
	// ConsumeEnergy writes next and appends movieID to watched if the stored energy still matches guard.
	ConsumeEnergy(ctx context.Context, email string, guard models.EnergyGuard, next models.EnergyState, movieID string) error

	SetProfileAttributes(ctx context.Context, email string, attrs models.ProfileAttributes) error
	// SetReviews replaces the reviews list if it still equals previous.
	SetReviews(ctx context.Context, email string, previous, reviews []models.Review) error
	// AppendUnique appends value to a list attribute unless already present.
	AppendUnique(ctx context.Context, email, attr, value string) error
	// SetList replaces a list attribute if it still equals previous.
	SetList(ctx context.Context, email, attr string, previous, values []string) error

	PutRating(ctx context.Context, rec models.RatingRecord) error
	DeleteRating(ctx context.Context, movieID, email string) error
	ListRatings(ctx context.Context, movieID string) ([]models.RatingRecord, error)

	// CreateReservation fails with ErrConflict when the username is taken.
	CreateReservation(ctx context.Context, r models.UsernameReservation) error
	GetReservation(ctx context.Context, username string) (*models.UsernameReservation, error)
	// UpdateReservationDisplay refreshes avatar and color of a reservation owned by email.
	UpdateReservationDisplay(ctx context.Context, username, email string, avatar int, color string) error
	// DeleteReservation removes a reservation owned by email.
	DeleteReservation(ctx context.Context, username, email string) error
	ListReservations(ctx context.Context) ([]models.UsernameReservation, error)

	// DeleteAll wipes the table and returns the number of rows removed.
	DeleteAll(ctx context.Context) (int, error)
}

// CodeGenerator returns a new friend code.
type CodeGenerator func() string

// friendCodeAttempts bounds the draws per assignment. A profile left without
// a code gets another try on its next write.
const friendCodeAttempts = 5

// ErrFriendCodesExhausted is returned when every drawn code was taken.
var ErrFriendCodesExhausted = errors.New("no free friend code found")

// RandomFriendCode returns a 6 digit numeric code.
func RandomFriendCode() string {
	return fmt.Sprintf("%06d", rand.IntN(1_000_000))
}

// DynamoStore implements Store on top of DynamoService.
type DynamoStore struct {
	Dynamo  *DynamoService
	NewCode CodeGenerator
}

// NewDynamoStore returns a DynamoStore for table.
func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{
		Dynamo:  &DynamoService{Client: client, Table: table},
		NewCode: RandomFriendCode,
	}
}

func profileKey(email string) Item { return Key(models.UserPK(email), models.ProfileSK) }

func str(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func num(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", v)}
}

func strList(values []string) *types.AttributeValueMemberL {
	l := make([]types.AttributeValue, len(values))
	for i, v := range values {
		l[i] = str(v)
	}
	return &types.AttributeValueMemberL{Value: l}
}

func profileUpdate(set ...string) Update {
	return Update{
		Expression: "SET " + strings.Join(set, ", "),
		Names:      map[string]string{},
		Values:     map[string]types.AttributeValue{},
	}
}

// writeProfile applies u to the profile of email and assigns a friend code
// when the updated row comes back without one.
func (s *DynamoStore) writeProfile(ctx context.Context, email string, u Update) error {
	item, err := s.Dynamo.UpdateItem(ctx, profileKey(email), u)
	if err != nil {
		return err
	}
	if _, ok := item["friend_code"]; ok {
		return nil
	}
	if err := s.assignFriendCode(ctx, email); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("email", email).Msg("friend code not assigned, retrying on the next write")
	}
	return nil
}

// assignFriendCode reserves a fresh code and stores it on the profile. The
// profile write only succeeds while the row has no code, so a concurrent
// assignment wins and the spare reservation is released.
func (s *DynamoStore) assignFriendCode(ctx context.Context, email string) error {
	for attempt := 0; attempt < friendCodeAttempts; attempt++ {
		code := s.NewCode()
		err := s.Dynamo.PutItem(ctx, models.FriendCodeReservation{
			PK:    models.FriendCodePK(code),
			SK:    models.ReservationSK,
			Email: email,
		}, "attribute_not_exists(pk)")
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return err
		}

		_, err = s.Dynamo.UpdateItem(ctx, profileKey(email), Update{
			Expression: "SET #fc = :fc",
			Condition:  "attribute_not_exists(#fc)",
			Names:      map[string]string{"#fc": "friend_code"},
			Values:     map[string]types.AttributeValue{":fc": str(code)},
		})
		if err == nil {
			return nil
		}
		if relErr := s.releaseFriendCode(ctx, code, email); relErr != nil {
			logging.Ctx(ctx).Warn().Err(relErr).Str("code", code).Msg("failed to release unused friend code")
		}
		if errors.Is(err, ErrConflict) {
			return nil
		}
		return err
	}
	return ErrFriendCodesExhausted
}

func (s *DynamoStore) releaseFriendCode(ctx context.Context, code, email string) error {
	return s.Dynamo.DeleteItem(ctx,
		Key(models.FriendCodePK(code), models.ReservationSK),
		"#em = :em",
		map[string]string{"#em": "email"},
		map[string]types.AttributeValue{":em": str(email)},
	)
}

func decodeProfile(item Item) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := attributevalue.UnmarshalMap(item, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	p.Email = models.EmailFromKey(p.PK)
	return &p, nil
}

func (s *DynamoStore) GetProfile(ctx context.Context, email string) (*models.UserProfile, error) {
	item, err := s.Dynamo.GetItem(ctx, profileKey(email))
	if err != nil {
		return nil, err
	}
	return decodeProfile(item)
}

func (s *DynamoStore) FindProfileByFriendCode(ctx context.Context, code string) (*models.UserProfile, error) {
	item, err := s.Dynamo.GetItem(ctx, Key(models.FriendCodePK(code), models.ReservationSK))
	if err != nil {
		return nil, err
	}
	var r models.FriendCodeReservation
	if err := attributevalue.UnmarshalMap(item, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal friend code: %w", err)
	}
	return s.GetProfile(ctx, r.Email)
}

func (s *DynamoStore) ListProfiles(ctx context.Context) ([]models.UserProfile, error) {
	items, err := s.Dynamo.ScanWithFilter(ctx,
		"#sk = :sk",
		map[string]string{"#sk": "sk"},
		map[string]types.AttributeValue{":sk": str(models.ProfileSK)},
		"",
	)
	if err != nil {
		return nil, err
	}
	profiles := make([]models.UserProfile, 0, len(items))
	for _, item := range items {
		p, err := decodeProfile(item)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

// energyCondition requires the stored energy attributes to equal guard.
func energyCondition(u *Update, guard models.EnergyGuard) string {
	u.Names["#e"] = "energy"
	u.Names["#ets"] = "energy_ts"
	var parts []string
	if guard.Energy == nil {
		parts = append(parts, "attribute_not_exists(#e)")
	} else {
		u.Values[":prev_e"] = num(int64(*guard.Energy))
		parts = append(parts, "#e = :prev_e")
	}
	if guard.EnergyTS == nil {
		parts = append(parts, "attribute_not_exists(#ets)")
	} else {
		u.Values[":prev_ts"] = num(*guard.EnergyTS)
		parts = append(parts, "#ets = :prev_ts")
	}
	return strings.Join(parts, " AND ")
}

func (s *DynamoStore) SaveEnergy(ctx context.Context, email string, guard models.EnergyGuard, next models.EnergyState) error {
	u := profileUpdate("#e = :e", "#ets = :ts")
	u.Condition = energyCondition(&u, guard)
	u.Values[":e"] = num(int64(next.Energy))
	u.Values[":ts"] = num(next.EnergyTS)

	return s.writeProfile(ctx, email, u)
}

func (s *DynamoStore) ConsumeEnergy(ctx context.Context, email string, guard models.EnergyGuard, next models.EnergyState, movieID string) error {
	u := profileUpdate("#e = :e", "#ets = :ts", "#w = list_append(if_not_exists(#w, :empty), :movie)")
	u.Condition = energyCondition(&u, guard)
	u.Names["#w"] = AttrWatched
	u.Values[":e"] = num(int64(next.Energy))
	u.Values[":ts"] = num(next.EnergyTS)
	u.Values[":empty"] = strList(nil)
	u.Values[":movie"] = strList([]string{movieID})

	return s.writeProfile(ctx, email, u)
}

func (s *DynamoStore) SetProfileAttributes(ctx context.Context, email string, attrs models.ProfileAttributes) error {
	set := []string{"#av = :av", "#col = :col"}
	if attrs.Username != "" {
		set = append(set, "#un = :un")
	}
	u := profileUpdate(set...)
	u.Names["#av"] = "avatar"
	u.Names["#col"] = "color"
	u.Values[":av"] = num(int64(attrs.Avatar))
	u.Values[":col"] = str(attrs.Color)
	if attrs.Username != "" {
		u.Names["#un"] = "username"
		u.Values[":un"] = str(attrs.Username)
	}

	return s.writeProfile(ctx, email, u)
}

// unchangedCondition requires list attribute name to still equal prev. An
// empty prev also matches an absent attribute.
func unchangedCondition(u *Update, name string, prev *types.AttributeValueMemberL) string {
	u.Values[":prev"] = prev
	if len(prev.Value) == 0 {
		return fmt.Sprintf("attribute_not_exists(%s) OR %s = :prev", name, name)
	}
	return fmt.Sprintf("%s = :prev", name)
}

func reviewList(reviews []models.Review) (*types.AttributeValueMemberL, error) {
	l := &types.AttributeValueMemberL{Value: make([]types.AttributeValue, 0, len(reviews))}
	for _, r := range reviews {
		av, err := attributevalue.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal reviews: %w", err)
		}
		l.Value = append(l.Value, av)
	}
	return l, nil
}

func (s *DynamoStore) SetReviews(ctx context.Context, email string, previous, reviews []models.Review) error {
	prev, err := reviewList(previous)
	if err != nil {
		return err
	}
	next, err := reviewList(reviews)
	if err != nil {
		return err
	}

	u := profileUpdate("#rv = :rv")
	u.Names["#rv"] = "reviews"
	u.Values[":rv"] = next
	u.Condition = unchangedCondition(&u, "#rv", prev)

	return s.writeProfile(ctx, email, u)
}

func (s *DynamoStore) AppendUnique(ctx context.Context, email, attr, value string) error {
	u := profileUpdate("#l = list_append(if_not_exists(#l, :empty), :v)")
	u.Names["#l"] = attr
	u.Values[":empty"] = strList(nil)
	u.Values[":v"] = strList([]string{value})
	u.Values[":s"] = str(value)
	u.Condition = "attribute_not_exists(#l) OR NOT contains(#l, :s)"

	err := s.writeProfile(ctx, email, u)
	if errors.Is(err, ErrConflict) {
		return nil
	}
	return err
}

func (s *DynamoStore) SetList(ctx context.Context, email, attr string, previous, values []string) error {
	u := profileUpdate("#l = :l")
	u.Names["#l"] = attr
	u.Values[":l"] = strList(values)
	u.Condition = unchangedCondition(&u, "#l", strList(previous))

	return s.writeProfile(ctx, email, u)
}

func (s *DynamoStore) PutRating(ctx context.Context, rec models.RatingRecord) error {
	rec.PK = models.RatingPK(rec.MovieID)
	rec.SK = models.RatingSK(rec.Email)
	return s.Dynamo.PutItem(ctx, rec, "")
}

func (s *DynamoStore) DeleteRating(ctx context.Context, movieID, email string) error {
	return s.Dynamo.DeleteItem(ctx, Key(models.RatingPK(movieID), models.RatingSK(email)), "", nil, nil)
}

func (s *DynamoStore) ListRatings(ctx context.Context, movieID string) ([]models.RatingRecord, error) {
	items, err := s.Dynamo.QueryPartition(ctx, models.RatingPK(movieID))
	if err != nil {
		return nil, err
	}
	var records []models.RatingRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ratings: %w", err)
	}
	for i := range records {
		records[i].MovieID = movieID
		records[i].Email = models.EmailFromKey(records[i].SK)
	}
	return records, nil
}

func (s *DynamoStore) CreateReservation(ctx context.Context, r models.UsernameReservation) error {
	r.PK = models.UsernamePK(r.Username)
	r.SK = models.ReservationSK
	return s.Dynamo.PutItem(ctx, r, "attribute_not_exists(pk)")
}

func (s *DynamoStore) GetReservation(ctx context.Context, username string) (*models.UsernameReservation, error) {
	item, err := s.Dynamo.GetItem(ctx, Key(models.UsernamePK(username), models.ReservationSK))
	if err != nil {
		return nil, err
	}
	var r models.UsernameReservation
	if err := attributevalue.UnmarshalMap(item, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reservation: %w", err)
	}
	r.Username = username
	return &r, nil
}

func (s *DynamoStore) UpdateReservationDisplay(ctx context.Context, username, email string, avatar int, color string) error {
	_, err := s.Dynamo.UpdateItem(ctx, Key(models.UsernamePK(username), models.ReservationSK), Update{
		Expression: "SET #av = :av, #col = :col",
		Condition:  "#em = :em",
		Names:      map[string]string{"#av": "avatar", "#col": "color", "#em": "email"},
		Values: map[string]types.AttributeValue{
			":av":  num(int64(avatar)),
			":col": str(color),
			":em":  str(email),
		},
	})
	return err
}

func (s *DynamoStore) DeleteReservation(ctx context.Context, username, email string) error {
	return s.Dynamo.DeleteItem(ctx,
		Key(models.UsernamePK(username), models.ReservationSK),
		"#em = :em",
		map[string]string{"#em": "email"},
		map[string]types.AttributeValue{":em": str(email)},
	)
}

func (s *DynamoStore) ListReservations(ctx context.Context) ([]models.UsernameReservation, error) {
	items, err := s.Dynamo.ScanWithFilter(ctx,
		"begins_with(#pk, :prefix)",
		map[string]string{"#pk": "pk"},
		map[string]types.AttributeValue{":prefix": str(models.UsernamePrefix)},
		"",
	)
	if err != nil {
		return nil, err
	}
	var reservations []models.UsernameReservation
	if err := attributevalue.UnmarshalListOfMaps(items, &reservations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reservations: %w", err)
	}
	for i := range reservations {
		reservations[i].Username = models.UsernameFromKey(reservations[i].PK)
	}
	return reservations, nil
}

func (s *DynamoStore) DeleteAll(ctx context.Context) (int, error) {
	items, err := s.Dynamo.ScanWithFilter(ctx, "", map[string]string{"#pk": "pk", "#sk": "sk"}, nil, "#pk, #sk")
	if err != nil {
		return 0, err
	}
	requests := make([]types.WriteRequest, 0, len(items))
	for _, item := range items {
		key, err := utils.ProjectKey(item, "pk", "sk")
		if err != nil {
			return 0, err
		}
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
	}
	if err := s.Dynamo.BatchWriteItems(ctx, requests); err != nil {
		return 0, err
	}
	return len(requests), nil
}
