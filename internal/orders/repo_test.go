package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  author_id TEXT,
  work_type TEXT NOT NULL,
  subject TEXT NOT NULL,
  topic TEXT NOT NULL,
  description TEXT,
  pages INTEGER,
  status TEXT NOT NULL DEFAULT 'pending_payment',
  deadline_days INTEGER NOT NULL,
  deadline_date DATETIME,
  accepted_at DATETIME,
  submitted_at DATETIME,
  completed_at DATETIME,
  price TEXT NOT NULL,
  payment_id TEXT,
  payment_status TEXT,
  rating INTEGER,
  student_review TEXT,
  revision_comment TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	require.NoError(t, db.Exec("DELETE FROM orders").Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, mutate func(order *models.Order)) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:           uuid.New(),
		StudentID:    uuid.New(),
		WorkType:     enums.WorkTypeEssay,
		Subject:      enums.SubjectLaw,
		Topic:        "Contract formation under duress",
		Status:       enums.OrderStatusPendingPayment,
		DeadlineDays: 7,
		Price:        decimal.NewFromInt(960),
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepository_CreateAndFind(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedOrder(t, db, nil)

	found, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, seeded.Topic, found.Topic)
	assert.True(t, seeded.Price.Equal(found.Price))

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_FindByPaymentID(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	paymentID := "2e8b3c1d-payment"
	seeded := seedOrder(t, db, func(order *models.Order) {
		order.PaymentID = &paymentID
	})

	found, err := repo.FindByPaymentID(ctx, paymentID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, seeded.ID, found.ID)

	missing, err := repo.FindByPaymentID(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_ListScoping(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	student := uuid.New()
	author := uuid.New()

	seedOrder(t, db, func(order *models.Order) {
		order.StudentID = student
	})
	seedOrder(t, db, func(order *models.Order) {
		order.Status = enums.OrderStatusPaid
	})
	seedOrder(t, db, func(order *models.Order) {
		order.Status = enums.OrderStatusInProgress
		order.AuthorID = &author
	})

	byStudent, _, err := repo.List(ctx, listOrdersParams{StudentID: &student})
	require.NoError(t, err)
	assert.Len(t, byStudent, 1)

	byAuthor, _, err := repo.List(ctx, listOrdersParams{AuthorID: &author})
	require.NoError(t, err)
	assert.Len(t, byAuthor, 1)

	available, _, err := repo.List(ctx, listOrdersParams{UnassignedPaid: true})
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, enums.OrderStatusPaid, available[0].Status)
}

func TestRepository_ListPagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		seedOrder(t, db, func(order *models.Order) {
			order.CreatedAt = created
			order.UpdatedAt = created
		})
	}

	first, next, err := repo.List(ctx, listOrdersParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, next)

	second, last, err := repo.List(ctx, listOrdersParams{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Nil(t, last)
}

func TestRepository_AcceptClaimsOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, func(order *models.Order) {
		order.Status = enums.OrderStatusPaid
	})

	now := time.Now().UTC()
	deadline := now.Add(7 * 24 * time.Hour)

	first := uuid.New()
	claimed, err := repo.Accept(ctx, order.ID, first, now, deadline)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.Accept(ctx, order.ID, uuid.New(), now, deadline)
	require.NoError(t, err)
	assert.False(t, claimed, "second accept must lose the race")

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found.AuthorID)
	assert.Equal(t, first, *found.AuthorID)
	assert.Equal(t, enums.OrderStatusInProgress, found.Status)
	require.NotNil(t, found.DeadlineDate)
}

func TestRepository_UpdateStatusGuarded(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, func(order *models.Order) {
		order.Status = enums.OrderStatusReview
	})

	updated, err := repo.UpdateStatus(ctx, order.ID, []enums.OrderStatus{enums.OrderStatusReview}, enums.OrderStatusRevision, map[string]any{
		"revision_comment": "add sources for chapter two",
	})
	require.NoError(t, err)
	assert.True(t, updated)

	// second attempt from the same observed status must miss
	updated, err = repo.UpdateStatus(ctx, order.ID, []enums.OrderStatus{enums.OrderStatusReview}, enums.OrderStatusCompleted, nil)
	require.NoError(t, err)
	assert.False(t, updated)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRevision, found.Status)
	require.NotNil(t, found.RevisionComment)
	assert.Equal(t, "add sources for chapter two", *found.RevisionComment)
}

func TestRepository_AuthorStats(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	author := uuid.New()
	ratingFive := 5
	ratingFour := 4

	seedOrder(t, db, func(order *models.Order) {
		order.AuthorID = &author
		order.Status = enums.OrderStatusCompleted
		order.Rating = &ratingFive
	})
	seedOrder(t, db, func(order *models.Order) {
		order.AuthorID = &author
		order.Status = enums.OrderStatusCompleted
		order.Rating = &ratingFour
	})
	seedOrder(t, db, func(order *models.Order) {
		order.AuthorID = &author
		order.Status = enums.OrderStatusInProgress
	})

	stats, err := repo.AuthorStats(ctx, author)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.CompletedOrders)
	assert.Equal(t, int64(1), stats.ActiveOrders)
	// the in-progress order must not count towards earnings
	assert.True(t, stats.EarnedTotal.Equal(decimal.NewFromInt(1920)), "earned %s", stats.EarnedTotal)
	require.NotNil(t, stats.AverageRating)
	assert.InDelta(t, 4.5, *stats.AverageRating, 0.001)
}

func TestRepository_AuthorStatsNoCompletedOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	stats, err := repo.AuthorStats(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, stats.EarnedTotal.IsZero())
	assert.Nil(t, stats.AverageRating)
}
