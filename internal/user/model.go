package user

import "time"

type User struct {
	ID          string    `json:"id"`
	ExternalKey string    `json:"-"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	AvatarURL   string    `json:"avatar_url"`
	IsOnline    bool      `json:"is_online"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// Profile is the public fragment other features embed (conversation
// previews, message senders, typing indicators).
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	IsOnline  bool   `json:"is_online"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		IsOnline:  u.IsOnline,
	}
}

// Presence is advisory: it reports the last signal received, nothing more.
type Presence struct {
	IsOnline   bool      `json:"is_online"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
