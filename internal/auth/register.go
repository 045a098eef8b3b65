package auth

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/studyassist/studyassist-backend/internal/notifications"
	"github.com/studyassist/studyassist-backend/internal/profiles"
	"github.com/studyassist/studyassist-backend/pkg/config"
	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
	"github.com/studyassist/studyassist-backend/pkg/security"
)

// RegisterRequest contains the payload required to open an account.
type RegisterRequest struct {
	Email          string            `json:"email" validate:"required,email"`
	Password       string            `json:"password" validate:"required,min=8"`
	FullName       string            `json:"full_name" validate:"required"`
	Phone          *string           `json:"phone,omitempty"`
	TelegramHandle *string           `json:"telegram_handle,omitempty"`
	Role           enums.ProfileRole `json:"role" validate:"required"`
}

// RegisterService handles the onboarding transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registerProfileRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
}

type registerNotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
// The repo factories default to the real GORM-backed repositories.
type RegisterServiceParams struct {
	TxRunner                txRunner
	ProfileRepoFactory      func(tx *gorm.DB) registerProfileRepository
	NotificationRepoFactory func(tx *gorm.DB) registerNotificationRepository
	PasswordConfig          config.PasswordConfig
}

type registerService struct {
	tx               txRunner
	profileRepo      func(tx *gorm.DB) registerProfileRepository
	notificationRepo func(tx *gorm.DB) registerNotificationRepository
	passwordCfg      config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.ProfileRepoFactory == nil {
		params.ProfileRepoFactory = func(tx *gorm.DB) registerProfileRepository {
			return profiles.NewRepository(tx)
		}
	}
	if params.NotificationRepoFactory == nil {
		params.NotificationRepoFactory = func(tx *gorm.DB) registerNotificationRepository {
			return notifications.NewRepository(tx)
		}
	}
	return &registerService{
		tx:               params.TxRunner,
		profileRepo:      params.ProfileRepoFactory,
		notificationRepo: params.NotificationRepoFactory,
		passwordCfg:      params.PasswordConfig,
	}, nil
}

// Register provisions the account and its welcome notification in a single
// transaction, so a half-created account never becomes visible.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !req.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "role must be student or author")
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		profileRepo := s.profileRepo(tx)
		notificationRepo := s.notificationRepo(tx)

		existing, err := profileRepo.FindByEmail(ctx, email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check profile email")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}

		profile := &models.Profile{
			Email:          email,
			PasswordHash:   passwordHash,
			FullName:       fullName,
			Phone:          req.Phone,
			TelegramHandle: req.TelegramHandle,
			Role:           req.Role,
		}
		if err := profileRepo.Create(ctx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
		}

		welcome := &models.Notification{
			ProfileID: profile.ID,
			Type:      enums.NotificationTypeSystem,
			Title:     "Welcome to StudyAssist",
			Message:   welcomeMessage(req.Role),
		}
		if err := notificationRepo.Create(ctx, welcome); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create welcome notification")
		}
		return nil
	})
}

func welcomeMessage(role enums.ProfileRole) string {
	if role == enums.ProfileRoleAuthor {
		return "Your author account is ready. Browse available orders to pick up your first job."
	}
	return "Your account is ready. Place your first order to get matched with an author."
}
