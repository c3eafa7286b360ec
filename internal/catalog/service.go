package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dkotlyarov/shoplite-backend/pkg/db/models"
	pkgerrors "github.com/dkotlyarov/shoplite-backend/pkg/errors"
)

// maxPathDepth bounds parent-link walks so an accidental cycle in the
// tree cannot hang path computation.
const maxPathDepth = 32

const pathSeparator = " / "

// CategoryDTO is the outward-facing category representation.
type CategoryDTO struct {
	ID       uuid.UUID  `json:"id"`
	Title    string     `json:"title"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

// CreateCategoryInput captures the payload for a new category.
type CreateCategoryInput struct {
	Title    string
	ParentID *uuid.UUID
}

// UpdateCategoryInput captures a partial category update.
type UpdateCategoryInput struct {
	Title    *string
	ParentID *uuid.UUID
	// ClearParent moves the category to the root level.
	ClearParent bool
}

// Service exposes category tree operations.
type Service interface {
	Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CategoryDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]CategoryDTO, error)
	Path(ctx context.Context, id uuid.UUID) (string, error)
}

type service struct {
	repo Repository
}

// NewService constructs a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category title is required")
	}

	if input.ParentID != nil {
		if _, err := s.repo.FindByID(ctx, *input.ParentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent category not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load parent category")
		}
	}

	category := &models.Category{Title: title, ParentID: input.ParentID}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}
	return toDTO(category), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CategoryDTO, error) {
	category, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(category), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error) {
	category, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category title is required")
		}
		category.Title = title
	}

	switch {
	case input.ClearParent:
		category.ParentID = nil
	case input.ParentID != nil:
		if *input.ParentID == id {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be its own parent")
		}
		if _, err := s.repo.FindByID(ctx, *input.ParentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent category not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load parent category")
		}
		category.ParentID = input.ParentID
	}

	if err := s.repo.Update(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update category")
	}
	return toDTO(category), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete category")
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	categories, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(categories))
	for i := range categories {
		out = append(out, *toDTO(&categories[i]))
	}
	return out, nil
}

// Path joins titles from the root down to the category. The walk is
// depth-capped so a cyclic parent link fails instead of looping.
func (s *service) Path(ctx context.Context, id uuid.UUID) (string, error) {
	titles := make([]string, 0, 4)
	current := &id
	for depth := 0; current != nil; depth++ {
		if depth >= maxPathDepth {
			return "", pkgerrors.New(pkgerrors.CodeInternal, "category tree too deep")
		}
		category, err := s.load(ctx, *current)
		if err != nil {
			return "", err
		}
		titles = append(titles, category.Title)
		current = category.ParentID
	}

	for i, j := 0, len(titles)-1; i < j; i, j = i+1, j-1 {
		titles[i], titles[j] = titles[j], titles[i]
	}
	return strings.Join(titles, pathSeparator), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}
	return category, nil
}

func toDTO(category *models.Category) *CategoryDTO {
	return &CategoryDTO{
		ID:       category.ID,
		Title:    category.Title,
		ParentID: category.ParentID,
	}
}
