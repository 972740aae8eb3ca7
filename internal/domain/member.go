package domain

import "time"

// Member is the relational member row. ProfileRef is generated before the
// row is inserted and equals the _id of the member's profile document.
type Member struct {
	ID           int64     `json:"member_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfileRef   string    `json:"profile_ref"`
	CreatedAt    time.Time `json:"created_at"`
}

// Preferences are member-editable settings kept in the profile document.
type Preferences struct {
	Language           string   `json:"language"`
	EmailNotifications bool     `json:"email_notifications"`
	FavoriteCategories []string `json:"favorite_categories"`
}

// DefaultPreferences returns the preferences given to new and repaired profiles.
func DefaultPreferences() Preferences {
	return Preferences{
		Language:           "en",
		EmailNotifications: true,
		FavoriteCategories: []string{},
	}
}

// MemberProfile is the document companion of a Member.
type MemberProfile struct {
	ID          string      `json:"_id"`
	DisplayName string      `json:"display_name"`
	Preferences Preferences `json:"preferences"`
	Placeholder bool        `json:"placeholder,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
