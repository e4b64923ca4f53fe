// README: Rider profile and the interest topic catalogue.
package profile

import (
	"errors"
	"time"

	"maroonline/internal/types"
)

// Topics is the catalogue offered during onboarding.
var Topics = []string{
	"Food", "Sports", "Music", "Tech", "Art",
	"Movies", "Books", "Travel", "Fitness", "Gaming",
	"Photography", "Science", "Politics", "History", "Comedy",
}

type Profile struct {
	ID        types.ID  `json:"id"`
	Email     string    `json:"email"`
	Interests []string  `json:"interests"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNotFound   = errors.New("profile not found")
	ErrValidation = errors.New("invalid profile")
)
