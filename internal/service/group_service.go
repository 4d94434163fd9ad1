package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

type GroupService struct {
	groupRepo repository.GroupRepository
}

type CreateGroupInput struct {
	Title       string
	Slug        string
	Description string
}

func NewGroupService(groupRepo repository.GroupRepository) *GroupService {
	return &GroupService{groupRepo: groupRepo}
}

func (s *GroupService) CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	title := strings.TrimSpace(in.Title)
	slug := strings.TrimSpace(in.Slug)

	switch {
	case title == "":
		return nil, models.NewFieldValidationError("title", "This field is required.")
	case utf8.RuneCountInString(title) > models.GroupTitleMaxLen:
		return nil, models.NewFieldValidationError("title", "Ensure this value has at most 200 characters.")
	case !models.ValidSlug(slug):
		return nil, models.NewFieldValidationError("slug", "Enter a valid slug consisting of letters, numbers, underscores or hyphens.")
	case utf8.RuneCountInString(in.Description) > models.GroupDescriptionMaxLen:
		return nil, models.NewFieldValidationError("description", "Ensure this value has at most 400 characters.")
	}

	group := &models.Group{Title: title, Slug: slug, Description: in.Description}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteGroup removes the group; its posts remain without a group.
func (s *GroupService) DeleteGroup(ctx context.Context, slug string) error {
	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	return s.groupRepo.Delete(ctx, group.ID)
}

func (s *GroupService) ListGroups(ctx context.Context) ([]models.Group, error) {
	return s.groupRepo.List(ctx)
}
