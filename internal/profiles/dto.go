package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
)

// ProfileDTO is the transport shape that omits credentials.
type ProfileDTO struct {
	ID              uuid.UUID         `json:"id"`
	Email           string            `json:"email"`
	FullName        string            `json:"full_name"`
	Phone           *string           `json:"phone,omitempty"`
	TelegramHandle  *string           `json:"telegram_handle,omitempty"`
	Role            enums.ProfileRole `json:"role"`
	IsAdmin         bool              `json:"is_admin"`
	Bio             *string           `json:"bio,omitempty"`
	Specializations []string          `json:"specializations,omitempty"`
	BonusBalance    int64             `json:"bonus_balance"`
	ReferralCode    *string           `json:"referral_code,omitempty"`
	LastLoginAt     *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// UpdateProfileInput carries the self-service editable fields. Bonus balance
// and referral code are server-managed and cannot be patched here.
type UpdateProfileInput struct {
	FullName        *string   `json:"full_name,omitempty" validate:"omitempty,min=1"`
	Phone           *string   `json:"phone,omitempty"`
	TelegramHandle  *string   `json:"telegram_handle,omitempty"`
	Bio             *string   `json:"bio,omitempty"`
	Specializations *[]string `json:"specializations,omitempty" validate:"omitempty,dive,min=1,max=100"`
}

// ListProfilesInput scopes the admin profile listing.
type ListProfilesInput struct {
	Role   *enums.ProfileRole
	Limit  int
	Cursor string
}

// ProfileList wraps paginated profiles plus the next page cursor.
type ProfileList struct {
	Profiles   []ProfileDTO `json:"profiles"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// FromModel converts a profile row into its transport shape.
func FromModel(p *models.Profile) *ProfileDTO {
	if p == nil {
		return nil
	}
	return &ProfileDTO{
		ID:              p.ID,
		Email:           p.Email,
		FullName:        p.FullName,
		Phone:           p.Phone,
		TelegramHandle:  p.TelegramHandle,
		Role:            p.Role,
		IsAdmin:         p.IsAdmin,
		Bio:             p.Bio,
		Specializations: p.Specializations,
		BonusBalance:    p.BonusBalance,
		ReferralCode:    p.ReferralCode,
		LastLoginAt:     p.LastLoginAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
