package files

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/studyassist/studyassist-backend/internal/orders"
	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
)

// Service manages file references attached to orders.
type Service interface {
	Attach(ctx context.Context, input AttachFileInput) (*models.OrderFile, error)
	List(ctx context.Context, actor orders.Actor, orderID uuid.UUID) ([]models.OrderFile, error)
	Remove(ctx context.Context, actor orders.Actor, orderID, fileID uuid.UUID) error
}

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type service struct {
	repo      Repository
	orderRepo orderLoader
}

// AttachFileInput references an uploaded object to link to an order.
type AttachFileInput struct {
	Actor     orders.Actor
	OrderID   uuid.UUID
	Name      string
	URL       string
	SizeBytes *int64
}

// NewService wires the files service dependencies.
func NewService(repo Repository, orderRepo orderLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("files repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	return &service{repo: repo, orderRepo: orderRepo}, nil
}

// Attach links an uploaded object to the order. Students attach task
// material, authors attach deliverables; the kind follows the uploader's
// relationship to the order.
func (s *service) Attach(ctx context.Context, input AttachFileInput) (*models.OrderFile, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name required")
	}
	parsed, err := url.Parse(input.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file url must be absolute")
	}
	if input.SizeBytes != nil && *input.SizeBytes < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file size cannot be negative")
	}

	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	kind, err := kindFor(input.Actor, order)
	if err != nil {
		return nil, err
	}

	file := &models.OrderFile{
		OrderID:    order.ID,
		UploaderID: input.Actor.ID,
		Kind:       kind,
		Name:       name,
		URL:        input.URL,
		SizeBytes:  input.SizeBytes,
	}
	if err := s.repo.Create(ctx, file); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store file reference")
	}
	return file, nil
}

func (s *service) List(ctx context.Context, actor orders.Actor, orderID uuid.UUID) ([]models.OrderFile, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to you")
	}

	files, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list files")
	}

	// browsing authors only see the task material until they accept
	if !isParticipant(actor, order) {
		tasks := files[:0]
		for _, file := range files {
			if file.Kind == enums.FileKindTask {
				tasks = append(tasks, file)
			}
		}
		files = tasks
	}
	return files, nil
}

func (s *service) Remove(ctx context.Context, actor orders.Actor, orderID, fileID uuid.UUID) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin {
		files, err := s.repo.ListByOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list files")
		}
		var owned bool
		for _, file := range files {
			if file.ID == fileID && file.UploaderID == actor.ID {
				owned = true
				break
			}
		}
		if !owned || !isParticipant(actor, order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you can only remove your own files")
		}
	}

	deleted, err := s.repo.Delete(ctx, fileID, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete file reference")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "file not found")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func kindFor(actor orders.Actor, order *models.Order) (enums.FileKind, error) {
	switch {
	case actor.ID == order.StudentID:
		return enums.FileKindTask, nil
	case order.AuthorID != nil && actor.ID == *order.AuthorID:
		return enums.FileKindWork, nil
	case actor.IsAdmin:
		return enums.FileKindTask, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to you")
	}
}

func isParticipant(actor orders.Actor, order *models.Order) bool {
	if actor.IsAdmin {
		return true
	}
	if actor.ID == order.StudentID {
		return true
	}
	return order.AuthorID != nil && actor.ID == *order.AuthorID
}

func canView(actor orders.Actor, order *models.Order) bool {
	if isParticipant(actor, order) {
		return true
	}
	return actor.Role == enums.ProfileRoleAuthor &&
		order.Status == enums.OrderStatusPaid &&
		order.AuthorID == nil
}
