package models

// RatingRecord is one user's rating of a movie (pk RATING#<movie_id>, sk USER#<email>)
type RatingRecord struct {
	PK        string  `dynamodbav:"pk" json:"-"`
	SK        string  `dynamodbav:"sk" json:"-"`
	MovieID   string  `dynamodbav:"-" json:"movie_id"`
	Email     string  `dynamodbav:"-" json:"email"`
	Rating    float64 `dynamodbav:"rating" json:"rating"`
	Review    string  `dynamodbav:"review" json:"review"`
	Timestamp string  `dynamodbav:"timestamp" json:"timestamp"`
}

// AsReview returns the profile copy of the rating.
func (r RatingRecord) AsReview() Review {
	return Review{MovieID: r.MovieID, Rating: r.Rating, Review: r.Review, Timestamp: r.Timestamp}
}

// FeedEntry is a followed user's review annotated with their display attributes
type FeedEntry struct {
	MovieID     string  `json:"movie_id"`
	Rating      float64 `json:"rating"`
	Review      string  `json:"review"`
	Timestamp   string  `json:"timestamp"`
	FriendEmail string  `json:"friend_email"`
	Username    string  `json:"username"`
	Avatar      int     `json:"avatar"`
	Color       string  `json:"color"`
}

// CatalogEntry is one movie of the catalog document stored in the bucket
type CatalogEntry struct {
	Title    string `json:"titulo"`
	Year     any    `json:"ano"`
	Director string `json:"diretor"`
}
