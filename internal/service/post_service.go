package service

import (
	"context"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/pagination"
	"inkwell/internal/repository"
)

type PostService struct {
	postRepo    repository.PostRepository
	groupRepo   repository.GroupRepository
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	commentRepo repository.CommentRepository
	feed        *cache.Feed
	images      *ImageService
	isAdmin     func(ctx context.Context, userID uint) (bool, error)
	now         func() time.Time
}

type CreatePostInput struct {
	AuthorID uint
	Text     string
	GroupID  *uint
	Image    *ImageUpload
}

type EditPostInput struct {
	PostID      uint
	RequesterID uint
	Text        string
	GroupID     *uint
	Image       *ImageUpload
	ClearImage  bool
}

type DeletePostInput struct {
	PostID      uint
	RequesterID uint
}

// GroupPage is a page of a group's posts.
type GroupPage struct {
	Group *models.Group
	Page  pagination.Page[models.Post]
}

// ProfilePage is a page of an author's posts plus the viewer's follow state.
type ProfilePage struct {
	Author     *models.User
	Following  bool
	PostsCount int64
	Page       pagination.Page[models.Post]
}

// PostDetail is a single post with its comments.
type PostDetail struct {
	Post             *models.Post
	Comments         []models.Comment
	AuthorPostsCount int64
}

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	commentRepo repository.CommentRepository,
	feedCache cache.FeedCache,
	images *ImageService,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	s := &PostService{
		postRepo:    postRepo,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		followRepo:  followRepo,
		commentRepo: commentRepo,
		images:      images,
		isAdmin:     isAdmin,
		now:         time.Now,
	}
	s.feed = cache.NewFeed(feedCache, s.loadIndex)
	return s
}

func (s *PostService) loadIndex(ctx context.Context) ([]models.Post, error) {
	posts, err := s.postRepo.List(ctx, repository.PostFilter{}, 0, 0)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// ListAllPosts returns one page of the index, cut from the cached snapshot.
func (s *PostService) ListAllPosts(ctx context.Context, rawPage string) (pagination.Page[models.Post], error) {
	posts, err := s.feed.Posts(ctx)
	if err != nil {
		return pagination.Page[models.Post]{}, err
	}
	return pagination.Slice(posts, rawPage, pagination.PageSize), nil
}

func (s *PostService) ListPostsByGroup(ctx context.Context, slug, rawPage string) (*GroupPage, error) {
	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	page, err := s.paginate(ctx, repository.PostFilter{GroupID: &group.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &GroupPage{Group: group, Page: page}, nil
}

// ListPostsByAuthor returns one page of the author's posts. viewerID is 0 for anonymous viewers.
func (s *PostService) ListPostsByAuthor(ctx context.Context, username, rawPage string, viewerID uint) (*ProfilePage, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	page, err := s.paginate(ctx, repository.PostFilter{AuthorID: &author.ID}, rawPage)
	if err != nil {
		return nil, err
	}

	following := false
	if viewerID != 0 {
		following, err = s.followRepo.Exists(ctx, viewerID, author.ID)
		if err != nil {
			return nil, err
		}
	}

	return &ProfilePage{
		Author:     author,
		Following:  following,
		PostsCount: page.Count,
		Page:       page,
	}, nil
}

func (s *PostService) ListFollowedFeed(ctx context.Context, userID uint, rawPage string) (pagination.Page[models.Post], error) {
	if userID == 0 {
		return pagination.Page[models.Post]{}, models.NewUnauthorizedError("Authentication required")
	}
	return s.paginate(ctx, repository.PostFilter{FollowerID: &userID}, rawPage)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	count, err := s.postRepo.Count(ctx, repository.PostFilter{AuthorID: &post.AuthorID})
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: post, Comments: comments, AuthorPostsCount: count}, nil
}

func (s *PostService) paginate(ctx context.Context, filter repository.PostFilter, rawPage string) (pagination.Page[models.Post], error) {
	count, err := s.postRepo.Count(ctx, filter)
	if err != nil {
		return pagination.Page[models.Post]{}, err
	}
	number := pagination.Resolve(rawPage, count, pagination.PageSize)
	posts, err := s.postRepo.List(ctx, filter, pagination.PageSize, pagination.Offset(number, pagination.PageSize))
	if err != nil {
		return pagination.Page[models.Post]{}, err
	}
	return pagination.New(posts, number, count, pagination.PageSize), nil
}

// Groups lists the groups a post can be filed under.
func (s *PostService) Groups(ctx context.Context) ([]models.Group, error) {
	return s.groupRepo.List(ctx)
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := requireActiveUser(ctx, s.userRepo, in.AuthorID); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewFieldValidationError("text", "This field is required.")
	}
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Text:     text,
		AuthorID: in.AuthorID,
		GroupID:  in.GroupID,
		PubDate:  s.now().UTC(),
	}
	if in.Image != nil {
		key, err := s.images.Store(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = key
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		if post.Image != "" {
			s.images.Remove(ctx, post.Image)
		}
		return nil, err
	}
	observability.PostMutations.WithLabelValues("create").Inc()

	created, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// EditPost applies new text, group and image to a post owned by the requester.
func (s *PostService) EditPost(ctx context.Context, in EditPostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if in.RequesterID == 0 || post.AuthorID != in.RequesterID {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewFieldValidationError("text", "This field is required.")
	}
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}

	oldImage := post.Image
	post.Text = text
	post.GroupID = in.GroupID
	if in.ClearImage {
		post.Image = ""
	}
	if in.Image != nil {
		key, err := s.images.Store(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = key
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		if post.Image != oldImage {
			s.images.Remove(ctx, post.Image)
		}
		return nil, err
	}
	if oldImage != "" && post.Image != oldImage {
		s.images.Remove(ctx, oldImage)
	}
	observability.PostMutations.WithLabelValues("edit").Inc()

	return s.postRepo.GetByID(ctx, post.ID)
}

// DeletePost removes a post and its comments. Admins may delete any post.
// It returns the deleted post so callers can redirect to its author.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if in.RequesterID == 0 {
		return nil, models.NewForbiddenError("You can only delete your own posts")
	}
	if post.AuthorID != in.RequesterID {
		admin := false
		if s.isAdmin != nil {
			admin, err = s.isAdmin(ctx, in.RequesterID)
			if err != nil {
				return nil, models.NewInternalError(err)
			}
		}
		if !admin {
			return nil, models.NewForbiddenError("You can only delete your own posts")
		}
	}

	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return nil, err
	}
	s.images.Remove(ctx, post.Image)
	observability.PostMutations.WithLabelValues("delete").Inc()
	return post, nil
}

// ClearFeedCache drops the cached index snapshot.
func (s *PostService) ClearFeedCache(ctx context.Context) error {
	if err := s.feed.Clear(ctx); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// FeedCacheTTL reports how long an index snapshot lives.
func (s *PostService) FeedCacheTTL() time.Duration {
	return s.feed.TTL()
}

func (s *PostService) checkGroup(ctx context.Context, groupID *uint) error {
	if groupID == nil {
		return nil
	}
	if _, err := s.groupRepo.GetByID(ctx, *groupID); err != nil {
		if models.IsNotFound(err) {
			return models.NewFieldValidationError("group", "Select a valid choice. That choice is not one of the available choices.")
		}
		return err
	}
	return nil
}
