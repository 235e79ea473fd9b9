// Package storetest provides an in-memory store.Store for service and router tests.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"sortashort_server/models"
	"sortashort_server/store"
)

// MemoryStore is a mutex guarded store.Store with the same conditional
// semantics as the DynamoDB implementation.
type MemoryStore struct {
	mu           sync.Mutex
	profiles     map[string]*models.UserProfile
	ratings      map[string]map[string]models.RatingRecord // movie id -> email -> record
	reservations map[string]models.UsernameReservation
	codes        map[string]string // friend code -> email
	failures     map[string][]error
	calls        map[string]int
	nextCode     int

	// NewCode draws friend codes; sequential codes when nil.
	NewCode store.CodeGenerator
}

var _ store.Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:     map[string]*models.UserProfile{},
		ratings:      map[string]map[string]models.RatingRecord{},
		reservations: map[string]models.UsernameReservation{},
		codes:        map[string]string{},
		failures:     map[string][]error{},
		calls:        map[string]int{},
	}
}

// FailNext makes the next call of op (a Store method name) return err.
func (m *MemoryStore) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], err)
}

// Calls returns how many times op was invoked.
func (m *MemoryStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// PutProfile seeds a profile row.
func (m *MemoryStore) PutProfile(p models.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.PK = models.UserPK(p.Email)
	p.SK = models.ProfileSK
	m.profiles[p.Email] = copyProfile(&p)
	if p.FriendCode != "" {
		m.codes[p.FriendCode] = p.Email
	}
}

// Profile returns a copy of a stored profile, or nil.
func (m *MemoryStore) Profile(email string) *models.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[email]; ok {
		return copyProfile(p)
	}
	return nil
}

// Reservation returns a stored reservation, or nil.
func (m *MemoryStore) Reservation(username string) *models.UsernameReservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reservations[username]; ok {
		return &r
	}
	return nil
}

// begin records the call and pops an injected failure. Caller holds mu.
func (m *MemoryStore) begin(op string) error {
	m.calls[op]++
	if errs := m.failures[op]; len(errs) > 0 {
		m.failures[op] = errs[1:]
		return errs[0]
	}
	return nil
}

func copyProfile(p *models.UserProfile) *models.UserProfile {
	c := *p
	c.Watched = slices.Clone(p.Watched)
	c.Reviews = slices.Clone(p.Reviews)
	c.Following = slices.Clone(p.Following)
	c.Followers = slices.Clone(p.Followers)
	if p.Energy != nil {
		e := *p.Energy
		c.Energy = &e
	}
	if p.EnergyTS != nil {
		ts := *p.EnergyTS
		c.EnergyTS = &ts
	}
	return &c
}

// upsert returns the mutable profile row, creating it with a friend code.
func (m *MemoryStore) upsert(email string) *models.UserProfile {
	p, ok := m.profiles[email]
	if !ok {
		p = &models.UserProfile{PK: models.UserPK(email), SK: models.ProfileSK, Email: email}
		m.profiles[email] = p
	}
	if p.FriendCode == "" {
		m.assignFriendCode(p)
	}
	return p
}

// assignFriendCode gives p an unused code, leaving it empty when every draw
// was taken. Caller holds mu.
func (m *MemoryStore) assignFriendCode(p *models.UserProfile) {
	for range 5 {
		code := m.drawCode()
		if _, taken := m.codes[code]; taken {
			continue
		}
		m.codes[code] = p.Email
		p.FriendCode = code
		return
	}
}

func (m *MemoryStore) drawCode() string {
	if m.NewCode != nil {
		return m.NewCode()
	}
	m.nextCode++
	return fmt.Sprintf("%06d", m.nextCode)
}

func guardMatches(p *models.UserProfile, g models.EnergyGuard) bool {
	var cur models.EnergyGuard
	if p != nil {
		cur = p.Guard()
	}
	if (cur.Energy == nil) != (g.Energy == nil) || (cur.EnergyTS == nil) != (g.EnergyTS == nil) {
		return false
	}
	if g.Energy != nil && *g.Energy != *cur.Energy {
		return false
	}
	if g.EnergyTS != nil && *g.EnergyTS != *cur.EnergyTS {
		return false
	}
	return true
}

func (m *MemoryStore) list(p *models.UserProfile, attr string) *[]string {
	switch attr {
	case store.AttrWatched:
		return &p.Watched
	case store.AttrFollowing:
		return &p.Following
	case store.AttrFollowers:
		return &p.Followers
	default:
		panic("storetest: unknown list attribute " + attr)
	}
}

func (m *MemoryStore) GetProfile(_ context.Context, email string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("GetProfile"); err != nil {
		return nil, err
	}
	p, ok := m.profiles[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyProfile(p), nil
}

func (m *MemoryStore) FindProfileByFriendCode(_ context.Context, code string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("FindProfileByFriendCode"); err != nil {
		return nil, err
	}
	p, ok := m.profiles[m.codes[code]]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyProfile(p), nil
}

func (m *MemoryStore) ListProfiles(_ context.Context) ([]models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("ListProfiles"); err != nil {
		return nil, err
	}
	out := make([]models.UserProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, *copyProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *MemoryStore) SaveEnergy(_ context.Context, email string, guard models.EnergyGuard, next models.EnergyState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("SaveEnergy"); err != nil {
		return err
	}
	if !guardMatches(m.profiles[email], guard) {
		return store.ErrConflict
	}
	p := m.upsert(email)
	p.Energy, p.EnergyTS = &next.Energy, &next.EnergyTS
	return nil
}

func (m *MemoryStore) ConsumeEnergy(_ context.Context, email string, guard models.EnergyGuard, next models.EnergyState, movieID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("ConsumeEnergy"); err != nil {
		return err
	}
	if !guardMatches(m.profiles[email], guard) {
		return store.ErrConflict
	}
	p := m.upsert(email)
	p.Energy, p.EnergyTS = &next.Energy, &next.EnergyTS
	p.Watched = append(p.Watched, movieID)
	return nil
}

func (m *MemoryStore) SetProfileAttributes(_ context.Context, email string, attrs models.ProfileAttributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("SetProfileAttributes"); err != nil {
		return err
	}
	p := m.upsert(email)
	p.Avatar, p.Color = attrs.Avatar, attrs.Color
	if attrs.Username != "" {
		p.Username = attrs.Username
	}
	return nil
}

func (m *MemoryStore) SetReviews(_ context.Context, email string, previous, reviews []models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("SetReviews"); err != nil {
		return err
	}
	var current []models.Review
	if p, ok := m.profiles[email]; ok {
		current = p.Reviews
	}
	if !slices.Equal(current, previous) {
		return store.ErrConflict
	}
	m.upsert(email).Reviews = slices.Clone(reviews)
	return nil
}

func (m *MemoryStore) AppendUnique(_ context.Context, email, attr, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("AppendUnique"); err != nil {
		return err
	}
	l := m.list(m.upsert(email), attr)
	if !slices.Contains(*l, value) {
		*l = append(*l, value)
	}
	return nil
}

func (m *MemoryStore) SetList(_ context.Context, email, attr string, previous, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("SetList"); err != nil {
		return err
	}
	var current []string
	if p, ok := m.profiles[email]; ok {
		current = *m.list(p, attr)
	}
	if !slices.Equal(current, previous) {
		return store.ErrConflict
	}
	*m.list(m.upsert(email), attr) = slices.Clone(values)
	return nil
}

func (m *MemoryStore) PutRating(_ context.Context, rec models.RatingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("PutRating"); err != nil {
		return err
	}
	rec.PK, rec.SK = models.RatingPK(rec.MovieID), models.RatingSK(rec.Email)
	if m.ratings[rec.MovieID] == nil {
		m.ratings[rec.MovieID] = map[string]models.RatingRecord{}
	}
	m.ratings[rec.MovieID][rec.Email] = rec
	return nil
}

func (m *MemoryStore) DeleteRating(_ context.Context, movieID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("DeleteRating"); err != nil {
		return err
	}
	delete(m.ratings[movieID], email)
	return nil
}

func (m *MemoryStore) ListRatings(_ context.Context, movieID string) ([]models.RatingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("ListRatings"); err != nil {
		return nil, err
	}
	var out []models.RatingRecord
	for _, rec := range m.ratings[movieID] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *MemoryStore) CreateReservation(_ context.Context, r models.UsernameReservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("CreateReservation"); err != nil {
		return err
	}
	if _, taken := m.reservations[r.Username]; taken {
		return store.ErrConflict
	}
	r.PK, r.SK = models.UsernamePK(r.Username), models.ReservationSK
	m.reservations[r.Username] = r
	return nil
}

func (m *MemoryStore) GetReservation(_ context.Context, username string) (*models.UsernameReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("GetReservation"); err != nil {
		return nil, err
	}
	r, ok := m.reservations[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) UpdateReservationDisplay(_ context.Context, username, email string, avatar int, color string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("UpdateReservationDisplay"); err != nil {
		return err
	}
	r, ok := m.reservations[username]
	if !ok || r.Email != email {
		return store.ErrConflict
	}
	r.Avatar, r.Color = avatar, color
	m.reservations[username] = r
	return nil
}

func (m *MemoryStore) DeleteReservation(_ context.Context, username, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("DeleteReservation"); err != nil {
		return err
	}
	r, ok := m.reservations[username]
	if !ok || r.Email != email {
		return store.ErrConflict
	}
	delete(m.reservations, username)
	return nil
}

func (m *MemoryStore) ListReservations(_ context.Context) ([]models.UsernameReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("ListReservations"); err != nil {
		return nil, err
	}
	out := make([]models.UsernameReservation, 0, len(m.reservations))
	for _, r := range m.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *MemoryStore) DeleteAll(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("DeleteAll"); err != nil {
		return 0, err
	}
	n := len(m.profiles) + len(m.reservations) + len(m.codes)
	for _, byEmail := range m.ratings {
		n += len(byEmail)
	}
	m.profiles = map[string]*models.UserProfile{}
	m.ratings = map[string]map[string]models.RatingRecord{}
	m.reservations = map[string]models.UsernameReservation{}
	m.codes = map[string]string{}
	return n, nil
}
