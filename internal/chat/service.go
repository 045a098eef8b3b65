package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/studyassist/studyassist-backend/internal/orders"
	"github.com/studyassist/studyassist-backend/pkg/config"
	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
	"github.com/studyassist/studyassist-backend/pkg/pagination"
)

// Service defines order chat operations.
type Service interface {
	List(ctx context.Context, input ListMessagesInput) (*MessageList, error)
	Send(ctx context.Context, input SendMessageInput) (*models.OrderMessage, error)
	Subscribe(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*redislib.PubSub, error)
}

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type publisher interface {
	ChatChannel(orderID string) string
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channels ...string) (*redislib.PubSub, error)
}

type service struct {
	repo      Repository
	orderRepo orderLoader
	pub       publisher
	cfg       config.ChatConfig
}

// ListMessagesInput scopes a chat history read.
type ListMessagesInput struct {
	Actor   orders.Actor
	OrderID uuid.UUID
	Limit   int
	Cursor  string
}

// SendMessageInput carries a new chat message.
type SendMessageInput struct {
	Actor   orders.Actor
	OrderID uuid.UUID
	Body    string
}

// MessageList wraps a page of messages plus the cursor for older history.
type MessageList struct {
	Messages   []models.OrderMessage `json:"messages"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

// MessageEvent is the payload published to the order's chat channel.
type MessageEvent struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// NewService wires the chat service dependencies.
func NewService(repo Repository, orderRepo orderLoader, pub publisher, cfg config.ChatConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("chat repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}
	return &service{repo: repo, orderRepo: orderRepo, pub: pub, cfg: cfg}, nil
}

func (s *service) List(ctx context.Context, input ListMessagesInput) (*MessageList, error) {
	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !canRead(input.Actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "chat is not available for this order")
	}

	params := listMessagesParams{OrderID: input.OrderID, Limit: input.Limit}
	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}

	// The repository walks history newest-first for the cursor; the thread
	// itself always reads oldest-first.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	// Fetching the thread counts as reading it. Browsing authors evaluating
	// an unassigned order must not consume the participants' unread state.
	if isParticipant(input.Actor, order) && !input.Actor.IsAdmin {
		if err := s.repo.MarkRead(ctx, input.OrderID, input.Actor.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark messages read")
		}
	}

	list := &MessageList{Messages: rows}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) Send(ctx context.Context, input SendMessageInput) (*models.OrderMessage, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body required")
	}
	if s.cfg.MaxMessageChars > 0 && len([]rune(body)) > s.cfg.MaxMessageChars {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("message exceeds %d characters", s.cfg.MaxMessageChars))
	}

	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !canSend(input.Actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "chat is not available for this order")
	}

	message := &models.OrderMessage{
		OrderID:  input.OrderID,
		SenderID: input.Actor.ID,
		Body:     body,
	}
	if err := s.repo.Create(ctx, message); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store message")
	}

	event := MessageEvent{
		ID:        message.ID,
		OrderID:   message.OrderID,
		SenderID:  message.SenderID,
		Body:      message.Body,
		CreatedAt: message.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode message event")
	}
	// delivery to live subscribers is best effort; the row is the source of truth
	if err := s.pub.Publish(ctx, s.pub.ChatChannel(input.OrderID.String()), payload); err != nil {
		return message, nil
	}
	return message, nil
}

func (s *service) Subscribe(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*redislib.PubSub, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canRead(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "chat is not available for this order")
	}
	sub, err := s.pub.Subscribe(ctx, s.pub.ChatChannel(orderID.String()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to chat channel")
	}
	return sub, nil
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

func isParticipant(actor orders.Actor, order *models.Order) bool {
	if actor.IsAdmin {
		return true
	}
	if actor.ID == order.StudentID {
		return true
	}
	return order.AuthorID != nil && actor.ID == *order.AuthorID
}

// canRead additionally lets any author inspect the thread of a paid,
// unassigned order before deciding to accept it.
func canRead(actor orders.Actor, order *models.Order) bool {
	if isParticipant(actor, order) {
		return true
	}
	return actor.Role == enums.ProfileRoleAuthor &&
		order.Status == enums.OrderStatusPaid &&
		order.AuthorID == nil
}

func canSend(actor orders.Actor, order *models.Order) bool {
	return isParticipant(actor, order)
}
