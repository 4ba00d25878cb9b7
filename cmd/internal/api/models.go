package api

import (
	"time"

	"loom/cmd/internal/session"
)

// LoginRequest is the credential pair for POST /auth/login.
type LoginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the identity it belongs to.
type LoginResponse struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	UserName  string `json:"userName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	BirthDate string `json:"birthDate"`
	Gender    string `json:"gender"`
}

// ForgotPasswordRequest is the payload for POST /auth/forget-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// sendMessageRequest is the payload for POST /chat.
// The deployed backend spells the body field "messsage"; the wire name must
// match it, so do not "fix" the tag.
type sendMessageRequest struct {
	ChatID   int64  `json:"chatId"`
	Messsage string `json:"messsage"`
}

// sendMessageResponse is the application-level result of a send. A 2xx reply
// with Status=false is a failure and Message carries the reason.
type sendMessageResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// messageBody is the generic error/info body shape of the backend.
type messageBody struct {
	Message string `json:"message"`
}

// Post is one entry of a user's post grid.
type Post struct {
	ID            int64     `json:"id"`
	ImageURL      string    `json:"imageUrl"`
	Caption       string    `json:"caption"`
	LikesCount    int       `json:"likesCount"`
	CommentsCount int       `json:"commentsCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// UserProfile is the full profile returned by GET /user/profile.
type UserProfile struct {
	ID             int64     `json:"id"`
	UserName       string    `json:"userName"`
	FirstName      *string   `json:"firstName"`
	LastName       *string   `json:"lastName"`
	Email          string    `json:"email"`
	Bio            *string   `json:"bio"`
	ProfilePicture *string   `json:"profilePicture"`
	FollowerCount  int       `json:"followerCount"`
	FollowedCount  int       `json:"followedCount"`
	IsPrivate      bool      `json:"isPrivate"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// SearchUserResult is one row of GET /user/search.
type SearchUserResult struct {
	ID             int64   `json:"id"`
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	UserName       string  `json:"userName"`
	IsPrivate      bool    `json:"isPrivate"`
	ProfilePicture *string `json:"profilePicture"`
	FollowStatus   string  `json:"followStatus"`
}
