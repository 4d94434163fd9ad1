package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubPostService(posts *postRepoStub, groups *groupRepoStub, users *userRepoStub, follows *followRepoStub, isAdmin func(context.Context, uint) (bool, error)) *PostService {
	return NewPostService(posts, groups, users, follows, noopCommentRepo(),
		cache.NewMemoryFeedCache(time.Minute), nil, isAdmin)
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	groups := noopGroupRepo()
	groups.getByIDFn = func(_ context.Context, id uint) (*models.Group, error) {
		return nil, models.NewNotFoundError("Group", id)
	}
	svc := newStubPostService(noopPostRepo(), groups, noopUserRepo(), noopFollowRepo(), nil)
	ctx := context.Background()
	missingGroup := uint(42)

	tests := []struct {
		name  string
		input CreatePostInput
		field string
	}{
		{name: "empty text", input: CreatePostInput{AuthorID: 1}, field: "text"},
		{name: "whitespace text", input: CreatePostInput{AuthorID: 1, Text: "  \n\t "}, field: "text"},
		{name: "unknown group", input: CreatePostInput{AuthorID: 1, Text: "hi", GroupID: &missingGroup}, field: "group"},
		{name: "image without storage", input: CreatePostInput{AuthorID: 1, Text: "hi", Image: &ImageUpload{Content: []byte("x")}}, field: "image"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreatePost(ctx, tc.input)
			assertValidationError(t, err)
			var appErr *models.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Contains(t, appErr.Fields, tc.field)
		})
	}
}

func TestPostService_CreatePost_Anonymous(t *testing.T) {
	svc := newStubPostService(noopPostRepo(), noopGroupRepo(), noopUserRepo(), noopFollowRepo(), nil)
	_, err := svc.CreatePost(context.Background(), CreatePostInput{Text: "hi"})
	assertAppError(t, err, models.CodeUnauthorized)
}

func TestPostService_CreatePost_SetsPubDate(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	var stored *models.Post
	posts := noopPostRepo()
	posts.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 11
		stored = p
		return nil
	}
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		require.NotNil(t, stored)
		return stored, nil
	}

	svc := newStubPostService(posts, noopGroupRepo(), noopUserRepo(), noopFollowRepo(), nil)
	svc.now = func() time.Time { return fixed }

	post, err := svc.CreatePost(context.Background(), CreatePostInput{AuthorID: 3, Text: "  hello world  "})
	require.NoError(t, err)
	assert.Equal(t, uint(11), post.ID)
	assert.Equal(t, "hello world", post.Text)
	assert.Equal(t, uint(3), post.AuthorID)
	assert.True(t, post.PubDate.Equal(fixed))
}

func TestPostService_EditPost(t *testing.T) {
	t.Parallel()

	original := func() *models.Post {
		return &models.Post{ID: 5, AuthorID: 1, Text: "before", PubDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
	}

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		posts := noopPostRepo()
		posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}
		svc := newStubPostService(posts, noopGroupRepo(), noopUserRepo(), noopFollowRepo(), nil)
		_, err := svc.EditPost(context.Background(), EditPostInput{PostID: 5, RequesterID: 1, Text: "x"})
		assertAppError(t, err, models.CodeNotFound)
	})

	t.Run("non-author is forbidden and nothing is written", func(t *testing.T) {
		t.Parallel()
		posts := noopPostRepo()
		posts.getByIDFn = func(_ context.Context, _ uint) (*models.Post, error) { return original(), nil }
		posts.updateFn = func(_ context.Context, _ *models.Post) error {
			t.Fatal("update must not be called")
			return nil
		}
		svc := newStubPostService(posts, noopGroupRepo(), noopUserRepo(), noopFollowRepo(), nil)
		_, err := svc.EditPost(context.Background(), EditPostInput{PostID: 5, RequesterID: 2, Text: "hijacked"})
		assertAppError(t, err, models.CodeForbidden)
	})

	t.Run("empty text", func(t *testing.T) {
		t.Parallel()
		posts := noopPostRepo()
		posts.getByIDFn = func(_ context.Context, _ uint) (*models.Post, error) { return original(), nil }
		svc := newStubPostService(posts, noopGroupRepo(), noopUserRepo(), noopFollowRepo(), nil)
		_, err := svc.EditPost(context.Background(), EditPostInput{PostID: 5, RequesterID: 1, Text: " "})
		assertValidationError(t, err)
	})

	t.Run("author updates text and group, pub_date kept", func(t *testing.T) {
		t.Parallel()
		var updated *models.Post
		posts := noopPostRepo()
		posts.getByIDFn = func(_ context.Context, _ uint) (*models.Post, error) {
			if updated != nil {
				return updated, nil
			}
			return original(), nil
		}
		posts.updateFn = func(_ context.Context, p *models.Post) error {
			updated = p
			return nil
		}
		svc := newStubPostService(posts, noopGroupRepo(), noopUserRepo(), noopFollowRepo(), nil)
		group := uint(9)

		post, err := svc.EditPost(context.Background(), EditPostInput{PostID: 5, RequesterID: 1, Text: "after", GroupID: &group})
		require.NoError(t, err)
		assert.Equal(t, "after", post.Text)
		require.NotNil(t, post.GroupID)
		assert.Equal(t, uint(9), *post.GroupID)
		assert.True(t, post.PubDate.Equal(original().PubDate))
	})
}

func TestPostService_DeletePost(t *testing.T) {
	t.Parallel()

	owned := func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: 1, Author: &models.User{ID: 1, Username: "leo"}}, nil
	}

	tests := []struct {
		name      string
		requester uint
		admin     bool
		wantCode  string
	}{
		{name: "author", requester: 1},
		{name: "admin", requester: 2, admin: true},
		{name: "stranger", requester: 2, wantCode: models.CodeForbidden},
		{name: "anonymous", requester: 0, wantCode: models.CodeForbidden},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			deleted := false
			posts := noopPostRepo()
			posts.getByIDFn = owned
			posts.deleteFn = func(_ context.Context, _ uint) error {
				deleted = true
				return nil
			}
			isAdmin := func(_ context.Context, _ uint) (bool, error) { return tc.admin, nil }
			svc := newStubPostService(posts, noopGroupRepo(), noopUserRepo(), noopFollowRepo(), isAdmin)

			post, err := svc.DeletePost(context.Background(), DeletePostInput{PostID: 4, RequesterID: tc.requester})
			if tc.wantCode != "" {
				assertAppError(t, err, tc.wantCode)
				assert.False(t, deleted)
				return
			}
			require.NoError(t, err)
			assert.True(t, deleted)
			assert.Equal(t, "leo", post.Author.Username)
		})
	}
}

func TestPostService_ListFollowedFeed_RequiresUser(t *testing.T) {
	svc := newStubPostService(noopPostRepo(), noopGroupRepo(), noopUserRepo(), noopFollowRepo(), nil)
	_, err := svc.ListFollowedFeed(context.Background(), 0, "1")
	assertAppError(t, err, models.CodeUnauthorized)
}

func TestPostService_ListPostsByGroup_UnknownSlug(t *testing.T) {
	groups := noopGroupRepo()
	groups.getBySlugFn = func(_ context.Context, slug string) (*models.Group, error) {
		return nil, models.NewNotFoundError("Group", slug)
	}
	svc := newStubPostService(noopPostRepo(), groups, noopUserRepo(), noopFollowRepo(), nil)
	_, err := svc.ListPostsByGroup(context.Background(), "nope", "")
	assertAppError(t, err, models.CodeNotFound)
}

func TestPostService_ListPostsByAuthor_OutOfRangePage(t *testing.T) {
	t.Parallel()

	var gotLimit, gotOffset int
	posts := noopPostRepo()
	posts.countFn = func(_ context.Context, f repository.PostFilter) (int64, error) {
		require.NotNil(t, f.AuthorID)
		return 24, nil
	}
	posts.listFn = func(_ context.Context, _ repository.PostFilter, limit, offset int) ([]models.Post, error) {
		gotLimit, gotOffset = limit, offset
		return make([]models.Post, 4), nil
	}
	follows := noopFollowRepo()
	follows.existsFn = func(_ context.Context, userID, authorID uint) (bool, error) {
		return userID == 7 && authorID == 2, nil
	}
	svc := newStubPostService(posts, noopGroupRepo(), noopUserRepo(), follows, nil)

	profile, err := svc.ListPostsByAuthor(context.Background(), "leo", "99", 7)
	require.NoError(t, err)
	assert.Equal(t, 10, gotLimit)
	assert.Equal(t, 20, gotOffset)
	assert.Equal(t, 3, profile.Page.Number)
	assert.Len(t, profile.Page.Items, 4)
	assert.Equal(t, int64(24), profile.PostsCount)
	assert.True(t, profile.Following)

	anon, err := svc.ListPostsByAuthor(context.Background(), "leo", "", 0)
	require.NoError(t, err)
	assert.False(t, anon.Following)
}

func TestPostService_ListAllPosts_LoadError(t *testing.T) {
	posts := noopPostRepo()
	posts.listFn = func(_ context.Context, _ repository.PostFilter, _, _ int) ([]models.Post, error) {
		return nil, models.NewInternalError(errors.New("db down"))
	}
	svc := newStubPostService(posts, noopGroupRepo(), noopUserRepo(), noopFollowRepo(), nil)
	_, err := svc.ListAllPosts(context.Background(), "1")
	assertAppError(t, err, models.CodeInternal)
}

func TestCommentService_AddComment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		svc := NewCommentService(noopCommentRepo(), noopPostRepo(), noopUserRepo())
		_, err := svc.AddComment(ctx, AddCommentInput{PostID: 1, Text: "hi"})
		assertAppError(t, err, models.CodeUnauthorized)
	})

	t.Run("unknown post", func(t *testing.T) {
		t.Parallel()
		posts := noopPostRepo()
		posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}
		svc := NewCommentService(noopCommentRepo(), posts, noopUserRepo())
		_, err := svc.AddComment(ctx, AddCommentInput{PostID: 1, AuthorID: 1, Text: "hi"})
		assertAppError(t, err, models.CodeNotFound)
	})

	t.Run("empty text", func(t *testing.T) {
		t.Parallel()
		svc := NewCommentService(noopCommentRepo(), noopPostRepo(), noopUserRepo())
		_, err := svc.AddComment(ctx, AddCommentInput{PostID: 1, AuthorID: 1, Text: strings.Repeat(" ", 3)})
		assertValidationError(t, err)
	})

	t.Run("persists", func(t *testing.T) {
		t.Parallel()
		var saved *models.Comment
		comments := noopCommentRepo()
		comments.createFn = func(_ context.Context, c *models.Comment) error {
			saved = c
			return nil
		}
		svc := NewCommentService(comments, noopPostRepo(), noopUserRepo())
		comment, err := svc.AddComment(ctx, AddCommentInput{PostID: 8, AuthorID: 1, Text: "nice"})
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Same(t, saved, comment)
		require.NotNil(t, comment.PostID)
		assert.Equal(t, uint(8), *comment.PostID)
		assert.False(t, comment.PubDate.IsZero())
	})
}

func TestFollowService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("self follow is a no-op", func(t *testing.T) {
		t.Parallel()
		follows := noopFollowRepo()
		follows.getOrCreateFn = func(_ context.Context, _, _ uint) (bool, error) {
			t.Fatal("self follow must not create an edge")
			return false, nil
		}
		svc := NewFollowService(follows, noopUserRepo())
		author, err := svc.Follow(ctx, 2, "leo")
		require.NoError(t, err)
		assert.Equal(t, "leo", author.Username)
	})

	t.Run("unknown author", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByUsernameFn = func(_ context.Context, username string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", username)
		}
		svc := NewFollowService(noopFollowRepo(), users)
		_, err := svc.Follow(ctx, 1, "ghost")
		assertAppError(t, err, models.CodeNotFound)
		_, err = svc.Unfollow(ctx, 1, "ghost")
		assertAppError(t, err, models.CodeNotFound)
	})

	t.Run("unfollow without edge", func(t *testing.T) {
		t.Parallel()
		follows := noopFollowRepo()
		follows.deleteFn = func(_ context.Context, _, authorID uint) error {
			return models.NewNotFoundError("Follow", authorID)
		}
		svc := NewFollowService(follows, noopUserRepo())
		_, err := svc.Unfollow(ctx, 1, "leo")
		assertAppError(t, err, models.CodeNotFound)
	})

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		svc := NewFollowService(noopFollowRepo(), noopUserRepo())
		_, err := svc.Follow(ctx, 0, "leo")
		assertAppError(t, err, models.CodeUnauthorized)
	})
}

func TestGroupService_CreateGroup_Validation(t *testing.T) {
	t.Parallel()

	svc := NewGroupService(noopGroupRepo())
	tests := []struct {
		name  string
		input CreateGroupInput
		field string
	}{
		{"missing title", CreateGroupInput{Slug: "cats"}, "title"},
		{"long title", CreateGroupInput{Title: strings.Repeat("t", 201), Slug: "cats"}, "title"},
		{"bad slug", CreateGroupInput{Title: "Cats", Slug: "cats and dogs"}, "slug"},
		{"long slug", CreateGroupInput{Title: "Cats", Slug: strings.Repeat("s", 41)}, "slug"},
		{"long description", CreateGroupInput{Title: "Cats", Slug: "cats", Description: strings.Repeat("d", 401)}, "description"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreateGroup(context.Background(), tc.input)
			assertValidationError(t, err)
			var appErr *models.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Contains(t, appErr.Fields, tc.field)
		})
	}
}
