package models

// UsernameReservation makes a username globally unique (pk USERNAME#<name>, sk RESERVED)
type UsernameReservation struct {
	PK       string `dynamodbav:"pk" json:"-"`
	SK       string `dynamodbav:"sk" json:"-"`
	Username string `dynamodbav:"-" json:"username"`
	Email    string `dynamodbav:"email" json:"email"`
	Avatar   int    `dynamodbav:"avatar" json:"avatar"`
	Color    string `dynamodbav:"color" json:"color"`
}

// FriendCodeReservation makes a friend code unique and resolves it to its
// owner (pk FRIENDCODE#<code>, sk RESERVED)
type FriendCodeReservation struct {
	PK    string `dynamodbav:"pk"`
	SK    string `dynamodbav:"sk"`
	Email string `dynamodbav:"email"`
}
