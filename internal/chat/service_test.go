package chat

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/studyassist/studyassist-backend/internal/orders"
	"github.com/studyassist/studyassist-backend/pkg/config"
	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
	"github.com/studyassist/studyassist-backend/pkg/pagination"
)

type stubChatRepo struct {
	created     []*models.OrderMessage
	messages    []models.OrderMessage
	readMarks   []uuid.UUID
	markReadErr error
}

func (s *stubChatRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubChatRepo) Create(ctx context.Context, message *models.OrderMessage) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	s.created = append(s.created, message)
	return nil
}

func (s *stubChatRepo) List(ctx context.Context, params listMessagesParams) ([]models.OrderMessage, *pagination.Cursor, error) {
	return s.messages, nil, nil
}

func (s *stubChatRepo) MarkRead(ctx context.Context, orderID, readerID uuid.UUID) error {
	if s.markReadErr != nil {
		return s.markReadErr
	}
	s.readMarks = append(s.readMarks, readerID)
	return nil
}

type stubOrderLoader struct {
	order *models.Order
}

func (s *stubOrderLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order != nil && s.order.ID == id {
		return s.order, nil
	}
	return nil, nil
}

type stubPublisher struct {
	published map[string][]any
}

func newStubPublisher() *stubPublisher {
	return &stubPublisher{published: map[string][]any{}}
}

func (s *stubPublisher) ChatChannel(orderID string) string {
	return "sa:chat:order:" + orderID
}

func (s *stubPublisher) Publish(ctx context.Context, channel string, payload any) error {
	s.published[channel] = append(s.published[channel], payload)
	return nil
}

func (s *stubPublisher) Subscribe(ctx context.Context, channels ...string) (*redislib.PubSub, error) {
	return &redislib.PubSub{}, nil
}

func chatTestSetup(t *testing.T, order *models.Order) (Service, *stubChatRepo, *stubPublisher) {
	t.Helper()
	repo := &stubChatRepo{}
	pub := newStubPublisher()
	svc, err := NewService(repo, &stubOrderLoader{order: order}, pub, config.ChatConfig{MaxMessageChars: 100})
	if err != nil {
		t.Fatalf("build chat service: %v", err)
	}
	return svc, repo, pub
}

func paidOrder(author *uuid.UUID) *models.Order {
	order := &models.Order{
		ID:        uuid.New(),
		StudentID: uuid.New(),
		Status:    enums.OrderStatusPaid,
	}
	if author != nil {
		order.AuthorID = author
		order.Status = enums.OrderStatusInProgress
	}
	return order
}

func TestSendPublishesEvent(t *testing.T) {
	author := uuid.New()
	order := paidOrder(&author)
	svc, repo, pub := chatTestSetup(t, order)

	message, err := svc.Send(context.Background(), SendMessageInput{
		Actor:   orders.Actor{ID: author, Role: enums.ProfileRoleAuthor},
		OrderID: order.ID,
		Body:    "  Draft uploaded, please review.  ",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if message.Body != "Draft uploaded, please review." {
		t.Fatalf("expected trimmed body, got %q", message.Body)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected stored message, got %d", len(repo.created))
	}

	channel := "sa:chat:order:" + order.ID.String()
	events := pub.published[channel]
	if len(events) != 1 {
		t.Fatalf("expected one published event, got %d", len(events))
	}
	var event MessageEvent
	if err := json.Unmarshal(events[0].([]byte), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.SenderID != author || event.OrderID != order.ID {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestSendRejectsOversizedMessage(t *testing.T) {
	order := paidOrder(nil)
	svc, _, _ := chatTestSetup(t, order)

	_, err := svc.Send(context.Background(), SendMessageInput{
		Actor:   orders.Actor{ID: order.StudentID, Role: enums.ProfileRoleStudent},
		OrderID: order.ID,
		Body:    strings.Repeat("a", 101),
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSendRestrictedToParticipants(t *testing.T) {
	order := paidOrder(nil)
	svc, _, _ := chatTestSetup(t, order)

	// an unassigned author may read but not write
	_, err := svc.Send(context.Background(), SendMessageInput{
		Actor:   orders.Actor{ID: uuid.New(), Role: enums.ProfileRoleAuthor},
		OrderID: order.ID,
		Body:    "hello",
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListVisibility(t *testing.T) {
	order := paidOrder(nil)
	svc, repo, _ := chatTestSetup(t, order)
	repo.messages = []models.OrderMessage{{ID: uuid.New(), OrderID: order.ID, Body: "hi"}}

	// browsing author can read the thread of an unassigned paid order
	list, err := svc.List(context.Background(), ListMessagesInput{
		Actor:   orders.Actor{ID: uuid.New(), Role: enums.ProfileRoleAuthor},
		OrderID: order.ID,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(list.Messages))
	}

	// a stranger student cannot
	_, err = svc.List(context.Background(), ListMessagesInput{
		Actor:   orders.Actor{ID: uuid.New(), Role: enums.ProfileRoleStudent},
		OrderID: order.ID,
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListReturnsChronologicalOrder(t *testing.T) {
	student := uuid.New()
	order := paidOrder(nil)
	order.StudentID = student
	svc, repo, _ := chatTestSetup(t, order)

	base := time.Now().UTC()
	first := models.OrderMessage{ID: uuid.New(), OrderID: order.ID, Body: "first", CreatedAt: base}
	second := models.OrderMessage{ID: uuid.New(), OrderID: order.ID, Body: "second", CreatedAt: base.Add(time.Minute)}
	// repository pages walk newest-first
	repo.messages = []models.OrderMessage{second, first}

	list, err := svc.List(context.Background(), ListMessagesInput{
		Actor:   orders.Actor{ID: student, Role: enums.ProfileRoleStudent},
		OrderID: order.ID,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(list.Messages))
	}
	if list.Messages[0].Body != "first" || list.Messages[1].Body != "second" {
		t.Fatalf("expected chronological order, got [%s, %s]", list.Messages[0].Body, list.Messages[1].Body)
	}
}

func TestListMarksThreadReadForParticipants(t *testing.T) {
	student := uuid.New()
	order := paidOrder(nil)
	order.StudentID = student
	svc, repo, _ := chatTestSetup(t, order)

	if _, err := svc.List(context.Background(), ListMessagesInput{
		Actor:   orders.Actor{ID: student, Role: enums.ProfileRoleStudent},
		OrderID: order.ID,
	}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(repo.readMarks) != 1 || repo.readMarks[0] != student {
		t.Fatalf("expected read mark for student, got %v", repo.readMarks)
	}

	// a browsing author evaluating the order must not touch read state
	if _, err := svc.List(context.Background(), ListMessagesInput{
		Actor:   orders.Actor{ID: uuid.New(), Role: enums.ProfileRoleAuthor},
		OrderID: order.ID,
	}); err != nil {
		t.Fatalf("list as browsing author: %v", err)
	}
	if len(repo.readMarks) != 1 {
		t.Fatalf("expected no additional read marks, got %v", repo.readMarks)
	}
}

func TestListUnknownOrder(t *testing.T) {
	svc, _, _ := chatTestSetup(t, nil)

	_, err := svc.List(context.Background(), ListMessagesInput{
		Actor:   orders.Actor{ID: uuid.New(), Role: enums.ProfileRoleStudent},
		OrderID: uuid.New(),
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
