package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyassist/studyassist-backend/api/middleware"
	"github.com/studyassist/studyassist-backend/internal/notifications"
	"github.com/studyassist/studyassist-backend/pkg/db/models"
)

type testNotificationsService struct {
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
	unreadFn      func(ctx context.Context, profileID uuid.UUID) (int64, error)
	markReadFn    func(ctx context.Context, profileID, notificationID uuid.UUID) error
	markAllReadFn func(ctx context.Context, profileID uuid.UUID) (int64, error)
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &notifications.ListResult{}, nil
}

func (s *testNotificationsService) UnreadCount(ctx context.Context, profileID uuid.UUID) (int64, error) {
	if s.unreadFn != nil {
		return s.unreadFn(ctx, profileID)
	}
	return 0, nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, profileID, notificationID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, profileID, notificationID)
	}
	return nil
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context, profileID uuid.UUID) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx, profileID)
	}
	return 0, nil
}

func (s *testNotificationsService) Emit(ctx context.Context, tx *gorm.DB, input notifications.EmitInput) error {
	return nil
}

func authedRequest(method, target string, profileID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(middleware.WithUserID(req.Context(), profileID.String()))
}

func TestListNotificationsScopesToCaller(t *testing.T) {
	profileID := uuid.New()
	var got notifications.ListParams
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			got = params
			return &notifications.ListResult{Items: []models.Notification{{ID: uuid.New(), ProfileID: profileID}}}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/notifications?limit=5&unreadOnly=true", profileID)
	rec := httptest.NewRecorder()
	ListNotifications(svc, testControllerLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if got.ProfileID != profileID {
		t.Fatalf("expected list scoped to %s, got %s", profileID, got.ProfileID)
	}
	if got.Limit != 5 || !got.UnreadOnly {
		t.Fatalf("unexpected params %+v", got)
	}
}

func TestListNotificationsRejectsBadLimit(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/notifications?limit=zero", uuid.New())
	rec := httptest.NewRecorder()
	ListNotifications(&testNotificationsService{}, testControllerLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestListNotificationsRequiresIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	ListNotifications(&testNotificationsService{}, testControllerLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestUnreadNotificationCount(t *testing.T) {
	svc := &testNotificationsService{
		unreadFn: func(ctx context.Context, profileID uuid.UUID) (int64, error) { return 4, nil },
	}

	req := authedRequest(http.MethodGet, "/api/v1/notifications/unread-count", uuid.New())
	rec := httptest.NewRecorder()
	UnreadNotificationCount(svc, testControllerLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["unread"] != 4 {
		t.Fatalf("expected unread 4, got %+v", envelope.Data)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	profileID := uuid.New()
	notificationID := uuid.New()
	var gotProfile, gotNotification uuid.UUID
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, p, n uuid.UUID) error {
			gotProfile, gotNotification = p, n
			return nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", profileID)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("notificationId", notificationID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	MarkNotificationRead(svc, testControllerLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if gotProfile != profileID || gotNotification != notificationID {
		t.Fatalf("expected mark read of %s for %s, got %s for %s", notificationID, profileID, gotNotification, gotProfile)
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	svc := &testNotificationsService{
		markAllReadFn: func(ctx context.Context, profileID uuid.UUID) (int64, error) { return 7, nil },
	}

	req := authedRequest(http.MethodPost, "/api/v1/notifications/read-all", uuid.New())
	rec := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testControllerLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["marked"] != 7 {
		t.Fatalf("expected marked 7, got %+v", envelope.Data)
	}
}
