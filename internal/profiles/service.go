package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/studyassist/studyassist-backend/pkg/enums"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
	"github.com/studyassist/studyassist-backend/pkg/pagination"
)

// Service defines profile self-service and admin operations.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*ProfileDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error)
	List(ctx context.Context, input ListProfilesInput) (*ProfileList, error)
	SetAdmin(ctx context.Context, actorID, targetID uuid.UUID, isAdmin bool) error
	SetRole(ctx context.Context, targetID uuid.UUID, role enums.ProfileRole) error
	Delete(ctx context.Context, actorID, targetID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService wires the profiles service dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProfileDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id required")
	}
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return FromModel(profile), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id required")
	}

	updates := map[string]any{}
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name cannot be empty")
		}
		updates["full_name"] = name
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.TelegramHandle != nil {
		updates["telegram_handle"] = strings.TrimPrefix(strings.TrimSpace(*input.TelegramHandle), "@")
	}
	if input.Bio != nil {
		updates["bio"] = *input.Bio
	}
	if input.Specializations != nil {
		updates["specializations"] = pq.StringArray(*input.Specializations)
	}
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return s.Get(ctx, id)
}

func (s *service) List(ctx context.Context, input ListProfilesInput) (*ProfileList, error) {
	params := listProfilesParams{
		Role:  input.Role,
		Limit: input.Limit,
	}
	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list profiles")
	}

	list := &ProfileList{Profiles: make([]ProfileDTO, 0, len(rows))}
	for i := range rows {
		list.Profiles = append(list.Profiles, *FromModel(&rows[i]))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// SetAdmin flips the admin flag. Admins cannot demote themselves, which
// keeps the platform from locking out its last administrator.
func (s *service) SetAdmin(ctx context.Context, actorID, targetID uuid.UUID, isAdmin bool) error {
	if targetID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "profile id required")
	}
	if actorID == targetID && !isAdmin {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot revoke your own admin access")
	}

	updated, err := s.repo.SetAdmin(ctx, targetID, isAdmin)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set admin flag")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return nil
}

func (s *service) SetRole(ctx context.Context, targetID uuid.UUID, role enums.ProfileRole) error {
	if targetID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "profile id required")
	}
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown role").
			WithDetails(map[string]any{"role": string(role)})
	}

	updated, err := s.repo.SetRole(ctx, targetID, role)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set role")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return nil
}

// Delete removes an account entirely. Admins cannot delete themselves;
// everything else, including order history, survives the deletion.
func (s *service) Delete(ctx context.Context, actorID, targetID uuid.UUID) error {
	if targetID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "profile id required")
	}
	if actorID == targetID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot delete your own account")
	}

	deleted, err := s.repo.Delete(ctx, targetID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete profile")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return nil
}
