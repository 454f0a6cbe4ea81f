package categories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
)

type fakeCategoryRepo struct {
	categories map[uuid.UUID]*models.Category
	planCounts map[uuid.UUID]int64
	deleted    []uuid.UUID
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{
		categories: map[uuid.UUID]*models.Category{},
		planCounts: map[uuid.UUID]int64{},
	}
}

func (f *fakeCategoryRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	category.ID = uuid.New()
	f.categories[category.ID] = category
	return nil
}

func (f *fakeCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if c, ok := f.categories[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCategoryRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Category, error) {
	var out []models.Category
	for _, c := range f.categories {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCategoryRepo) ListAll(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	for _, c := range f.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCategoryRepo) OwnedIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, c := range f.categories {
		if c.OwnerID == ownerID {
			out = append(out, c.ID)
		}
	}
	return out, nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, category *models.Category) error {
	f.categories[category.ID] = category
	return nil
}

func (f *fakeCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.categories, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCategoryRepo) CountPlans(ctx context.Context, id uuid.UUID) (int64, error) {
	return f.planCounts[id], nil
}

func newCategoryService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateCategory(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := newCategoryService(t, repo)
	owner := uuid.New()

	dto, err := svc.Create(context.Background(), owner, CreateCategoryRequest{
		Name:         "  Streaming  ",
		CategoryType: "media",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Name != "Streaming" {
		t.Fatalf("expected trimmed name, got %q", dto.Name)
	}
	if dto.OwnerID != owner {
		t.Fatal("expected owner recorded")
	}
}

func TestCreateCategoryRequiresName(t *testing.T) {
	svc := newCategoryService(t, newFakeCategoryRepo())

	_, err := svc.Create(context.Background(), uuid.New(), CreateCategoryRequest{Name: "   "})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateCategoryForeignOwnerNotFound(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := newCategoryService(t, repo)
	owner := uuid.New()

	dto, err := svc.Create(context.Background(), owner, CreateCategoryRequest{Name: "Fitness"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Hijacked"
	_, err = svc.Update(context.Background(), uuid.New(), dto.ID, UpdateCategoryRequest{Name: &name})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestDeleteCategoryWithPlansRefused(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := newCategoryService(t, repo)
	owner := uuid.New()

	dto, err := svc.Create(context.Background(), owner, CreateCategoryRequest{Name: "News"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.planCounts[dto.ID] = 2

	err = svc.Delete(context.Background(), owner, dto.ID)
	assertCode(t, err, pkgerrors.CodeStateConflict)

	repo.planCounts[dto.ID] = 0
	if err := svc.Delete(context.Background(), owner, dto.ID); err != nil {
		t.Fatalf("delete after plans removed: %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatalf("expected one deletion, got %d", len(repo.deleted))
	}
}

func TestListOwnedScopesByOwner(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := newCategoryService(t, repo)
	ownerA := uuid.New()
	ownerB := uuid.New()

	if _, err := svc.Create(context.Background(), ownerA, CreateCategoryRequest{Name: "A1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(context.Background(), ownerB, CreateCategoryRequest{Name: "B1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := svc.ListOwned(context.Background(), ownerA)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "A1" {
		t.Fatalf("expected only owner A categories, got %+v", list)
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s", code, typed.Code())
	}
}
