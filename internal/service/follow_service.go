package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo}
}

// Follow subscribes userID to the author's posts. Following yourself is a no-op.
func (s *FollowService) Follow(ctx context.Context, userID uint, username string) (*models.User, error) {
	if err := requireActiveUser(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if author.ID == userID {
		return author, nil
	}
	if _, err := s.followRepo.GetOrCreate(ctx, userID, author.ID); err != nil {
		return nil, err
	}
	return author, nil
}

// Unfollow removes the edge; NotFound when the author is unknown or not followed.
func (s *FollowService) Unfollow(ctx context.Context, userID uint, username string) (*models.User, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.followRepo.Delete(ctx, userID, author.ID); err != nil {
		return nil, err
	}
	return author, nil
}
