package service

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "Please enter a correct username and password."

type UserService struct {
	userRepo repository.UserRepository
	postRepo repository.PostRepository
	images   *ImageService
	hashCost int
}

type SignupInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func NewUserService(userRepo repository.UserRepository, postRepo repository.PostRepository, images *ImageService) *UserService {
	return &UserService{
		userRepo: userRepo,
		postRepo: postRepo,
		images:   images,
		hashCost: bcrypt.DefaultCost,
	}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Signup validates the registration form and creates the account.
// All field problems are reported together.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	fields := map[string]string{}
	if err := validation.ValidateUsername(username); err != nil {
		fields["username"] = err.Error()
	}
	if err := validation.ValidateEmail(email); err != nil {
		fields["email"] = err.Error()
	}
	if err := validation.ValidatePassword(in.Password, username); err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, &models.AppError{
			Code:    models.CodeValidation,
			Message: "Please correct the errors below.",
			Fields:  fields,
		}
	}

	exists, err := s.userRepo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewFieldValidationError("username", "A user with that username or email already exists.")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  string(hashed),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks a username/password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewUnauthorizedError(invalidCredentials)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError(invalidCredentials)
	}
	return user, nil
}

// requireActiveUser rejects session IDs whose account has since been deleted.
func requireActiveUser(ctx context.Context, users repository.UserRepository, id uint) error {
	if id == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	if _, err := users.GetByID(ctx, id); err != nil {
		if models.IsNotFound(err) {
			return models.NewUnauthorizedError("Authentication required")
		}
		return err
	}
	return nil
}

// IsAdmin reports whether the user may use the admin API.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	return s.userRepo.IsAdmin(ctx, userID)
}

// DeleteUser removes the account with its posts, comments and follow edges.
func (s *UserService) DeleteUser(ctx context.Context, username string) error {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	authorID := user.ID
	posts, err := s.postRepo.List(ctx, repository.PostFilter{AuthorID: &authorID}, 0, 0)
	if err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return err
	}
	for _, p := range posts {
		s.images.Remove(ctx, p.Image)
	}
	return nil
}
