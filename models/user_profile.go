package models

// UserProfile is the profile row of a user (pk USER#<email>, sk PROFILE)
type UserProfile struct {
	PK         string   `dynamodbav:"pk" json:"-"`                                    // USER#<email>
	SK         string   `dynamodbav:"sk" json:"-"`                                    // PROFILE
	Email      string   `dynamodbav:"-" json:"email"`                                 // Derived from PK
	Username   string   `dynamodbav:"username,omitempty" json:"username"`             // Reserved display name
	Avatar     int      `dynamodbav:"avatar,omitempty" json:"avatar"`                 // Avatar index
	Color      string   `dynamodbav:"color,omitempty" json:"color"`                   // Avatar background color
	Watched    []string `dynamodbav:"watched,omitempty" json:"watched"`               // Movie ids, append only
	Reviews    []Review `dynamodbav:"reviews,omitempty" json:"reviews"`               // One entry per movie id
	Following  []string `dynamodbav:"following,omitempty" json:"following"`           // Emails this user follows
	Followers  []string `dynamodbav:"followers,omitempty" json:"followers"`           // Emails following this user
	FriendCode string   `dynamodbav:"friend_code,omitempty" json:"friend_code"`       // 6 digit numeric code
	Energy     *int     `dynamodbav:"energy,omitempty" json:"energy,omitempty"`       // Nil until the first recharge write
	EnergyTS   *int64   `dynamodbav:"energy_ts,omitempty" json:"energy_ts,omitempty"` // Epoch seconds of the last recharge
}

// Review is the copy of a rating kept on the owner's profile
type Review struct {
	MovieID   string  `dynamodbav:"movie_id" json:"movie_id"`
	Rating    float64 `dynamodbav:"rating" json:"rating"`
	Review    string  `dynamodbav:"review" json:"review"`
	Timestamp string  `dynamodbav:"timestamp" json:"timestamp"`
}

// DisplayName returns the username, falling back to the local part of the email.
func (p *UserProfile) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	return EmailLocalPart(p.Email)
}

// DisplayColor returns the avatar color, falling back to DefaultColor.
func (p *UserProfile) DisplayColor() string {
	if p.Color != "" {
		return p.Color
	}
	return DefaultColor
}

// EnergyGuard captures the stored energy attributes a conditional write expects.
// A nil field means the attribute must still be absent.
type EnergyGuard struct {
	Energy   *int
	EnergyTS *int64
}

// Guard returns the energy expectation for a conditional write against this profile.
func (p *UserProfile) Guard() EnergyGuard {
	if p == nil {
		return EnergyGuard{}
	}
	return EnergyGuard{Energy: p.Energy, EnergyTS: p.EnergyTS}
}

// EnergyState is a computed energy value ready to be persisted
type EnergyState struct {
	Energy   int   `json:"energy"`
	EnergyTS int64 `json:"energy_ts"`
}

// ProfileAttributes are the user editable display attributes
type ProfileAttributes struct {
	Username string
	Avatar   int
	Color    string
}
