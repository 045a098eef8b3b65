package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/studyassist/studyassist-backend/pkg/enums"
)

// Profile is an account on the platform. Students place orders, authors
// fulfill them, and IsAdmin grants access to the admin surface.
type Profile struct {
	ID              uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email           string            `gorm:"type:text;not null;uniqueIndex" json:"email"`
	PasswordHash    string            `gorm:"type:text;not null" json:"-"`
	FullName        string            `gorm:"type:text;not null" json:"full_name"`
	Phone           *string           `gorm:"type:text" json:"phone,omitempty"`
	TelegramHandle  *string           `gorm:"type:text" json:"telegram_handle,omitempty"`
	Role            enums.ProfileRole `gorm:"type:profile_role;not null" json:"role"`
	IsAdmin         bool              `gorm:"not null;default:false" json:"is_admin"`
	Bio             *string           `gorm:"type:text" json:"bio,omitempty"`
	Specializations pq.StringArray    `gorm:"type:text[]" json:"specializations,omitempty"`
	BonusBalance    int64             `gorm:"not null;default:0" json:"bonus_balance"`
	ReferralCode    *string           `gorm:"type:text;uniqueIndex" json:"referral_code,omitempty"`
	LastLoginAt     *time.Time        `gorm:"type:timestamptz" json:"last_login_at,omitempty"`
	CreatedAt       time.Time         `gorm:"type:timestamptz;default:now()" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"type:timestamptz;default:now()" json:"updated_at"`
}
