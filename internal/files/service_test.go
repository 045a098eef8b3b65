package files

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyassist/studyassist-backend/internal/orders"
	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
)

type stubFilesRepo struct {
	files   map[uuid.UUID]*models.OrderFile
	created []*models.OrderFile
}

func newStubFilesRepo() *stubFilesRepo {
	return &stubFilesRepo{files: map[uuid.UUID]*models.OrderFile{}}
}

func (s *stubFilesRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubFilesRepo) Create(ctx context.Context, file *models.OrderFile) error {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	s.files[file.ID] = file
	s.created = append(s.created, file)
	return nil
}

func (s *stubFilesRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderFile, error) {
	var out []models.OrderFile
	for _, file := range s.files {
		if file.OrderID == orderID {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (s *stubFilesRepo) Delete(ctx context.Context, id, orderID uuid.UUID) (bool, error) {
	file, ok := s.files[id]
	if !ok || file.OrderID != orderID {
		return false, nil
	}
	delete(s.files, id)
	return true, nil
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

func filesTestSetup(t *testing.T, order *models.Order) (Service, *stubFilesRepo) {
	t.Helper()
	repo := newStubFilesRepo()
	svc, err := NewService(repo, &stubOrderLoader{order: order})
	if err != nil {
		t.Fatalf("build files service: %v", err)
	}
	return svc, repo
}

func TestAttachKindFollowsUploader(t *testing.T) {
	author := uuid.New()
	order := &models.Order{
		ID:        uuid.New(),
		StudentID: uuid.New(),
		AuthorID:  &author,
		Status:    enums.OrderStatusInProgress,
	}
	svc, _ := filesTestSetup(t, order)

	studentFile, err := svc.Attach(context.Background(), AttachFileInput{
		Actor:   orders.Actor{ID: order.StudentID, Role: enums.ProfileRoleStudent},
		OrderID: order.ID,
		Name:    "requirements.pdf",
		URL:     "https://files.example.com/requirements.pdf",
	})
	if err != nil {
		t.Fatalf("attach task file: %v", err)
	}
	if studentFile.Kind != enums.FileKindTask {
		t.Fatalf("expected task kind, got %s", studentFile.Kind)
	}

	authorFile, err := svc.Attach(context.Background(), AttachFileInput{
		Actor:   orders.Actor{ID: author, Role: enums.ProfileRoleAuthor},
		OrderID: order.ID,
		Name:    "draft-v1.docx",
		URL:     "https://files.example.com/draft-v1.docx",
	})
	if err != nil {
		t.Fatalf("attach work file: %v", err)
	}
	if authorFile.Kind != enums.FileKindWork {
		t.Fatalf("expected work kind, got %s", authorFile.Kind)
	}
}

func TestAttachRejectsRelativeURL(t *testing.T) {
	order := &models.Order{ID: uuid.New(), StudentID: uuid.New()}
	svc, _ := filesTestSetup(t, order)

	_, err := svc.Attach(context.Background(), AttachFileInput{
		Actor:   orders.Actor{ID: order.StudentID},
		OrderID: order.ID,
		Name:    "notes.txt",
		URL:     "/local/notes.txt",
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAttachByStrangerForbidden(t *testing.T) {
	order := &models.Order{ID: uuid.New(), StudentID: uuid.New(), Status: enums.OrderStatusPaid}
	svc, _ := filesTestSetup(t, order)

	_, err := svc.Attach(context.Background(), AttachFileInput{
		Actor:   orders.Actor{ID: uuid.New(), Role: enums.ProfileRoleAuthor},
		OrderID: order.ID,
		Name:    "spam.txt",
		URL:     "https://files.example.com/spam.txt",
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListHidesWorkFilesFromBrowsingAuthors(t *testing.T) {
	order := &models.Order{ID: uuid.New(), StudentID: uuid.New(), Status: enums.OrderStatusPaid}
	svc, repo := filesTestSetup(t, order)

	repo.Create(context.Background(), &models.OrderFile{
		OrderID: order.ID, UploaderID: order.StudentID, Kind: enums.FileKindTask, Name: "brief.pdf", URL: "https://x/b.pdf",
	})
	repo.Create(context.Background(), &models.OrderFile{
		OrderID: order.ID, UploaderID: uuid.New(), Kind: enums.FileKindWork, Name: "old-draft.docx", URL: "https://x/d.docx",
	})

	files, err := svc.List(context.Background(), orders.Actor{ID: uuid.New(), Role: enums.ProfileRoleAuthor}, order.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 || files[0].Kind != enums.FileKindTask {
		t.Fatalf("expected only task files for browsing author, got %+v", files)
	}

	all, err := svc.List(context.Background(), orders.Actor{ID: order.StudentID, Role: enums.ProfileRoleStudent}, order.ID)
	if err != nil {
		t.Fatalf("list as owner: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both files for owner, got %d", len(all))
	}
}

func TestRemoveOwnFileOnly(t *testing.T) {
	author := uuid.New()
	order := &models.Order{
		ID:        uuid.New(),
		StudentID: uuid.New(),
		AuthorID:  &author,
		Status:    enums.OrderStatusInProgress,
	}
	svc, repo := filesTestSetup(t, order)

	file := &models.OrderFile{OrderID: order.ID, UploaderID: author, Kind: enums.FileKindWork, Name: "draft.docx", URL: "https://x/d.docx"}
	repo.Create(context.Background(), file)

	err := svc.Remove(context.Background(), orders.Actor{ID: order.StudentID, Role: enums.ProfileRoleStudent}, order.ID, file.ID)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for non-uploader, got %v", err)
	}

	if err := svc.Remove(context.Background(), orders.Actor{ID: author, Role: enums.ProfileRoleAuthor}, order.ID, file.ID); err != nil {
		t.Fatalf("remove own file: %v", err)
	}
	if len(repo.files) != 0 {
		t.Fatalf("expected file removed, got %d", len(repo.files))
	}
}
