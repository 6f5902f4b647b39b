package admin

import (
	"context"
	"regexp"
	"strings"

	"weldzone/storefront/internal/domain"

	log "github.com/sirupsen/logrus"
)

const defaultTagColor = "#000000"

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.backend.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("category name is required")
	}

	created, err := s.backend.CreateCategory(ctx, name)
	if err != nil {
		return nil, err
	}
	s.catalog.Invalidate()
	log.Infof("✅ Category %q created", name)
	return created, nil
}

func (s *Service) RenameCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("category name is required")
	}

	updated, err := s.backend.UpdateCategory(ctx, id, name)
	if err != nil {
		return nil, err
	}
	s.catalog.Invalidate()
	return updated, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.backend.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.catalog.Invalidate()
	log.Infof("🗑️ Category %d deleted", id)
	return nil
}

func (s *Service) Tags(ctx context.Context) ([]domain.Tag, error) {
	return s.backend.ListTags(ctx)
}

// CreateTag adds a tag; an empty color falls back to black
func (s *Service) CreateTag(ctx context.Context, name, color string) (*domain.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("tag name is required")
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = defaultTagColor
	}
	if !hexColor.MatchString(color) {
		return nil, invalid("color %q is not a hex color", color)
	}

	created, err := s.backend.CreateTag(ctx, name, color)
	if err != nil {
		return nil, err
	}
	s.catalog.Invalidate()
	log.Infof("✅ Tag %q created", name)
	return created, nil
}

// UpdateTag renames and/or recolors a tag. Fields left nil are untouched.
func (s *Service) UpdateTag(ctx context.Context, id int64, patch domain.TagPatch) (*domain.Tag, error) {
	if patch.Name == nil && patch.Color == nil {
		return nil, invalid("nothing to update")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, invalid("tag name is required")
		}
		patch.Name = &name
	}
	if patch.Color != nil && !hexColor.MatchString(*patch.Color) {
		return nil, invalid("color %q is not a hex color", *patch.Color)
	}

	updated, err := s.backend.UpdateTag(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.catalog.Invalidate()
	return updated, nil
}

func (s *Service) DeleteTag(ctx context.Context, id int64) error {
	if err := s.backend.DeleteTag(ctx, id); err != nil {
		return err
	}
	s.catalog.Invalidate()
	log.Infof("🗑️ Tag %d deleted", id)
	return nil
}
