package seed

import (
	"fmt"
	"log"

	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers  int
	NumGroups int
	NumPosts  int
	// MaxComments caps comments per post; each post gets 0..MaxComments.
	MaxComments int
	// MaxFollows caps outgoing follows per user.
	MaxFollows int
	MaxDays    int
	BatchSize  int
	SkipBcrypt bool
	DryRun     bool
	RandomSeed int64
}

// DefaultOptions is a small but browsable blog.
func DefaultOptions() Options {
	return Options{
		NumUsers:    20,
		NumGroups:   5,
		NumPosts:    120,
		MaxComments: 4,
		MaxFollows:  6,
		MaxDays:     90,
		BatchSize:   100,
	}
}

// Result reports what a seeding run created.
type Result struct {
	Users    []*models.User
	Groups   []*models.Group
	Posts    []*models.Post
	Comments int
	Follows  int
}

// Seeder fills a database with fake users, groups, posts, comments and follows.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// ClearAll removes every row the seeder can create, children first.
func (s *Seeder) ClearAll() error {
	if s.opts.DryRun {
		return nil
	}
	log.Println("Clearing existing data...")
	for _, model := range []any{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.Group{}, &models.User{}} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Seed runs a full seeding pass.
func (s *Seeder) Seed() (*Result, error) {
	log.Printf("Seeding %d users, %d groups and %d posts...", s.opts.NumUsers, s.opts.NumGroups, s.opts.NumPosts)
	res := &Result{}

	for i := 0; i < s.opts.NumUsers; i++ {
		u, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create users: %w", err)
		}
		res.Users = append(res.Users, u)
	}
	if len(res.Users) == 0 {
		return res, nil
	}

	for i := 0; i < s.opts.NumGroups; i++ {
		g, err := s.factory.CreateGroup()
		if err != nil {
			return nil, fmt.Errorf("failed to create groups: %w", err)
		}
		res.Groups = append(res.Groups, g)
	}

	posts := make([]*models.Post, 0, s.opts.NumPosts)
	for i := 0; i < s.opts.NumPosts; i++ {
		author := res.Users[gofakeit.Number(0, len(res.Users)-1)]
		var group *models.Group
		// roughly a third of posts stay ungrouped
		if len(res.Groups) > 0 && gofakeit.Number(0, 2) > 0 {
			group = res.Groups[gofakeit.Number(0, len(res.Groups)-1)]
		}
		posts = append(posts, s.factory.BuildPost(author, group))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	res.Posts = posts

	for _, p := range posts {
		for n := gofakeit.Number(0, s.opts.MaxComments); n > 0; n-- {
			author := res.Users[gofakeit.Number(0, len(res.Users)-1)]
			if _, err := s.factory.CreateComment(p, author); err != nil {
				return nil, fmt.Errorf("failed to create comments: %w", err)
			}
			res.Comments++
		}
	}

	follows, err := s.seedFollows(res.Users)
	if err != nil {
		return nil, err
	}
	res.Follows = follows

	log.Printf("Seeded %d users, %d groups, %d posts, %d comments, %d follows",
		len(res.Users), len(res.Groups), len(res.Posts), res.Comments, res.Follows)
	return res, nil
}

// seedFollows gives each user up to MaxFollows distinct authors to follow.
func (s *Seeder) seedFollows(users []*models.User) (int, error) {
	created := 0
	for _, u := range users {
		want := gofakeit.Number(0, s.opts.MaxFollows)
		others := make([]*models.User, 0, len(users)-1)
		for _, other := range users {
			if other.ID != u.ID {
				others = append(others, other)
			}
		}
		gofakeit.ShuffleAnySlice(others)
		if want > len(others) {
			want = len(others)
		}
		for _, author := range others[:want] {
			if err := s.factory.CreateFollow(u, author); err != nil {
				return created, fmt.Errorf("failed to create follows: %w", err)
			}
			created++
		}
	}
	return created, nil
}
