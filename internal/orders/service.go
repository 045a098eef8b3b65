package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyassist/studyassist-backend/internal/notifications"
	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
	"github.com/studyassist/studyassist-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notificationEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, input notifications.EmitInput) error
}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, input ListOrdersInput) (*OrderList, error)
	Accept(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	Submit(ctx context.Context, actor Actor, orderID uuid.UUID) error
	Approve(ctx context.Context, input ApproveInput) error
	RequestRevision(ctx context.Context, input RevisionInput) error
	Dispute(ctx context.Context, actor Actor, orderID uuid.UUID) error
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) error
	MarkPaid(ctx context.Context, ref PaymentRef) (*models.Order, error)
	MarkPaymentCancelled(ctx context.Context, ref PaymentRef) (*models.Order, error)
	AdminSetStatus(ctx context.Context, input AdminStatusInput) error
	Stats(ctx context.Context, authorID uuid.UUID) (*AuthorStats, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	notifier notificationEmitter
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, notifier notificationEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notification emitter required")
	}
	return &service{repo: repo, tx: tx, notifier: notifier}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.StudentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Topic == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "topic required")
	}
	if input.Pages != nil && *input.Pages <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pages must be positive")
	}

	quote, err := CalculatePrice(input.WorkType, input.Subject, input.DeadlineDays)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		StudentID:    input.StudentID,
		WorkType:     input.WorkType,
		Subject:      input.Subject,
		Topic:        input.Topic,
		Description:  input.Description,
		Pages:        input.Pages,
		Status:       enums.OrderStatusPendingPayment,
		DeadlineDays: input.DeadlineDays,
		Price:        quote.Price,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to you")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	params := listOrdersParams{
		Status: input.Status,
		Limit:  input.Limit,
	}
	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = cursor
	}

	switch {
	case input.Available:
		if input.Actor.Role != enums.ProfileRoleAuthor && !input.Actor.IsAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only authors can browse available orders")
		}
		params.UnassignedPaid = true
		params.Status = nil
	case input.Actor.IsAdmin:
		// admins see everything, optionally filtered by status
	case input.Actor.Role == enums.ProfileRoleAuthor:
		authorID := input.Actor.ID
		params.AuthorID = &authorID
	default:
		studentID := input.Actor.ID
		params.StudentID = &studentID
	}

	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows))}
	for _, row := range rows {
		list.Orders = append(list.Orders, toOrderSummary(row))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// Accept assigns a paid order to the calling author. The repository performs
// a compare-and-set, so when two authors race only one claim succeeds and the
// loser sees a state conflict.
func (s *service) Accept(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if actor.Role != enums.ProfileRoleAuthor {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only authors can accept orders")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var accepted *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		now := time.Now().UTC()
		deadline := now.Add(time.Duration(order.DeadlineDays) * 24 * time.Hour)
		claimed, err := repo.Accept(ctx, orderID, actor.ID, now, deadline)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept order")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer available")
		}

		order.AuthorID = &actor.ID
		order.Status = enums.OrderStatusInProgress
		order.AcceptedAt = &now
		order.DeadlineDate = &deadline
		accepted = order

		return s.notifier.Emit(ctx, tx, notifications.EmitInput{
			ProfileID: order.StudentID,
			OrderID:   &order.ID,
			Type:      enums.NotificationTypeStatus,
			Title:     "Author assigned",
			Message:   "An author accepted your order and started working on it.",
		})
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// Submit moves the author's work into review. SubmittedAt is refreshed on
// every pass, so a resubmission after revision carries the latest hand-in
// time.
func (s *service) Submit(ctx context.Context, actor Actor, orderID uuid.UUID) error {
	updates := map[string]any{"submitted_at": time.Now().UTC()}
	return s.transition(ctx, actor, orderID, enums.OrderStatusReview, updates, func(order *models.Order) notifications.EmitInput {
		return notifications.EmitInput{
			ProfileID: order.StudentID,
			OrderID:   &order.ID,
			Type:      enums.NotificationTypeStatus,
			Title:     "Work submitted",
			Message:   "The author submitted the work for your review.",
		}
	})
}

// Approve closes out a reviewed order. The rating is mandatory: completion
// without author feedback would leave the author's stats permanently
// understated.
func (s *service) Approve(ctx context.Context, input ApproveInput) error {
	if input.Rating == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating required to approve")
	}
	if *input.Rating < 1 || *input.Rating > 5 {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	updates := map[string]any{
		"rating":       *input.Rating,
		"completed_at": time.Now().UTC(),
	}
	if input.Review != nil && *input.Review != "" {
		updates["student_review"] = *input.Review
	}

	return s.transition(ctx, input.Actor, input.OrderID, enums.OrderStatusCompleted, updates, func(order *models.Order) notifications.EmitInput {
		target := order.StudentID
		if order.AuthorID != nil {
			target = *order.AuthorID
		}
		return notifications.EmitInput{
			ProfileID: target,
			OrderID:   &order.ID,
			Type:      enums.NotificationTypeStatus,
			Title:     "Order completed",
			Message:   "The student approved the work. The order is complete.",
		}
	})
}

func (s *service) RequestRevision(ctx context.Context, input RevisionInput) error {
	if input.Comment == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "revision comment required")
	}

	updates := map[string]any{"revision_comment": input.Comment}
	return s.transition(ctx, input.Actor, input.OrderID, enums.OrderStatusRevision, updates, func(order *models.Order) notifications.EmitInput {
		target := order.StudentID
		if order.AuthorID != nil {
			target = *order.AuthorID
		}
		return notifications.EmitInput{
			ProfileID: target,
			OrderID:   &order.ID,
			Type:      enums.NotificationTypeRevision,
			Title:     "Revision requested",
			Message:   input.Comment,
		}
	})
}

func (s *service) Dispute(ctx context.Context, actor Actor, orderID uuid.UUID) error {
	return s.transition(ctx, actor, orderID, enums.OrderStatusDisputed, nil, func(order *models.Order) notifications.EmitInput {
		target := order.StudentID
		if actor.ID == order.StudentID && order.AuthorID != nil {
			target = *order.AuthorID
		}
		return notifications.EmitInput{
			ProfileID: target,
			OrderID:   &order.ID,
			Type:      enums.NotificationTypeSystem,
			Title:     "Order disputed",
			Message:   "The order was escalated to a dispute. Support will review it.",
		}
	})
}

func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) error {
	return s.transition(ctx, actor, orderID, enums.OrderStatusCancelled, nil, nil)
}

// MarkPaid is invoked by the payment webhook once the gateway confirms the
// charge. The order id carried in the payment metadata takes precedence;
// the stored payment id covers events whose metadata got lost in transit.
func (s *service) MarkPaid(ctx context.Context, ref PaymentRef) (*models.Order, error) {
	return s.resolvePayment(ctx, ref, enums.OrderStatusPaid, "succeeded", func(order *models.Order) notifications.EmitInput {
		return notifications.EmitInput{
			ProfileID: order.StudentID,
			OrderID:   &order.ID,
			Type:      enums.NotificationTypePayment,
			Title:     "Payment received",
			Message:   "Your payment went through. The order is now visible to authors.",
		}
	})
}

func (s *service) MarkPaymentCancelled(ctx context.Context, ref PaymentRef) (*models.Order, error) {
	return s.resolvePayment(ctx, ref, enums.OrderStatusCancelled, "canceled", nil)
}

func (s *service) resolvePayment(ctx context.Context, ref PaymentRef, to enums.OrderStatus, gatewayStatus string, notify func(order *models.Order) notifications.EmitInput) (*models.Order, error) {
	if ref.PaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	var resolved *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.findPaymentOrder(ctx, repo, ref)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment")
		}

		if order.Status == to {
			resolved = order
			return nil
		}

		updates := map[string]any{"payment_status": gatewayStatus}
		if order.PaymentID == nil || *order.PaymentID != ref.PaymentID {
			// Resolved through metadata; adopt the payment id the session
			// write never recorded.
			updates["payment_id"] = ref.PaymentID
		}

		updated, err := repo.UpdateStatus(ctx, order.ID, []enums.OrderStatus{enums.OrderStatusPendingPayment}, to, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
		}

		order.Status = to
		resolved = order
		if notify == nil {
			return nil
		}
		return s.notifier.Emit(ctx, tx, notify(order))
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func (s *service) findPaymentOrder(ctx context.Context, repo Repository, ref PaymentRef) (*models.Order, error) {
	if ref.OrderID != uuid.Nil {
		order, err := repo.FindByID(ctx, ref.OrderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by metadata id")
		}
		if order != nil {
			return order, nil
		}
	}
	order, err := repo.FindByPaymentID(ctx, ref.PaymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by payment")
	}
	return order, nil
}

// AdminSetStatus force-moves an order to the requested status, bypassing the
// transition table. Same-status no-ops are still rejected.
func (s *service) AdminSetStatus(ctx context.Context, input AdminStatusInput) error {
	if !input.Actor.IsAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	if !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status == input.Status {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already in requested status")
		}

		updated, err := repo.UpdateStatus(ctx, order.ID, []enums.OrderStatus{order.Status}, input.Status, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}

		order.Status = input.Status
		if err := s.notifier.Emit(ctx, tx, notifications.EmitInput{
			ProfileID: order.StudentID,
			OrderID:   &order.ID,
			Type:      enums.NotificationTypeSystem,
			Title:     "Order updated by support",
			Message:   fmt.Sprintf("Support changed your order status to %s.", input.Status),
		}); err != nil {
			return err
		}
		if order.AuthorID != nil {
			return s.notifier.Emit(ctx, tx, notifications.EmitInput{
				ProfileID: *order.AuthorID,
				OrderID:   &order.ID,
				Type:      enums.NotificationTypeSystem,
				Title:     "Order updated by support",
				Message:   fmt.Sprintf("Support changed the order status to %s.", input.Status),
			})
		}
		return nil
	})
}

func (s *service) Stats(ctx context.Context, authorID uuid.UUID) (*AuthorStats, error) {
	if authorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author id required")
	}
	stats, err := s.repo.AuthorStats(ctx, authorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load author stats")
	}
	return stats, nil
}

// transition runs the common guarded status change: load, authorize, check
// the lifecycle table, then apply a conditional UPDATE from the observed
// status.
func (s *service) transition(ctx context.Context, actor Actor, orderID uuid.UUID, to enums.OrderStatus, updates map[string]any, notify func(order *models.Order) notifications.EmitInput) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.ID == uuid.Nil && !actor.System {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !s.isParticipant(actor, order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to you")
		}
		if !CanTransition(order.Status, to, actor) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", order.Status, to))
		}

		updated, err := repo.UpdateStatus(ctx, order.ID, []enums.OrderStatus{order.Status}, to, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}

		order.Status = to
		if notify == nil {
			return nil
		}
		return s.notifier.Emit(ctx, tx, notify(order))
	})
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// canView covers reads: participants and admins always, plus any author
// browsing a paid order that has no assignee yet.
func (s *service) canView(actor Actor, order *models.Order) bool {
	if s.isParticipant(actor, order) {
		return true
	}
	if actor.Role == enums.ProfileRoleAuthor && order.Status == enums.OrderStatusPaid && order.AuthorID == nil {
		return true
	}
	return false
}

func (s *service) isParticipant(actor Actor, order *models.Order) bool {
	if actor.IsAdmin || actor.System {
		return true
	}
	if actor.ID == order.StudentID {
		return true
	}
	if order.AuthorID != nil && actor.ID == *order.AuthorID {
		return true
	}
	return false
}
