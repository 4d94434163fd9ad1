// Package seed provides helpers to create demo data for development and
// testing. They are not used by the server.
package seed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded account gets.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	// synthetic ID counter when running in DryRun mode
	nextID uint
	seq    int
	hash   string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	if opts.RandomSeed == 0 {
		opts.RandomSeed = time.Now().UnixNano()
	}
	gofakeit.Seed(opts.RandomSeed)
	return &Factory{db: db, opts: opts, nextID: 1000}
}

func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	if f.opts.SkipBcrypt {
		f.hash = DefaultPassword
		return f.hash, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	f.hash = string(hashed)
	return f.hash, nil
}

// pubDate spreads publication dates over the last MaxDays days.
func (f *Factory) pubDate() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	now := time.Now().UTC()
	return gofakeit.DateRange(now.AddDate(0, 0, -maxDays), now).Truncate(time.Second)
}

// CreateUser constructs and persists a sample user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	f.seq++
	user := &models.User{
		Username:  fmt.Sprintf("%s%d", alnum(gofakeit.Username(), "user"), f.seq),
		Email:     fmt.Sprintf("%d.%s", f.seq, strings.ToLower(gofakeit.Email())),
		Password:  hash,
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user, f.persist(user, &user.ID)
}

// CreateGroup constructs and persists a sample group with a unique slug.
func (f *Factory) CreateGroup(overrides ...func(*models.Group)) (*models.Group, error) {
	f.seq++
	word := alnum(gofakeit.Word(), "group")
	group := &models.Group{
		Title:       strings.ToUpper(word[:1]) + word[1:],
		Slug:        fmt.Sprintf("%s-%d", word, f.seq),
		Description: gofakeit.Sentence(12),
	}
	for _, override := range overrides {
		override(group)
	}
	return group, f.persist(group, &group.ID)
}

// BuildPost constructs a post without persisting it. Useful for batching.
func (f *Factory) BuildPost(author *models.User, group *models.Group) *models.Post {
	post := &models.Post{
		Text:     gofakeit.Paragraph(1, gofakeit.Number(1, 4), 12, "\n"),
		AuthorID: author.ID,
		PubDate:  f.pubDate(),
	}
	if group != nil {
		post.GroupID = &group.ID
	}
	return post
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	return f.db.CreateInBatches(posts, f.batchSize()).Error
}

// CreateComment persists a comment on post, published after the post itself.
func (f *Factory) CreateComment(post *models.Post, author *models.User) (*models.Comment, error) {
	postID := post.ID
	comment := &models.Comment{
		Text:     gofakeit.Sentence(gofakeit.Number(4, 16)),
		AuthorID: author.ID,
		PostID:   &postID,
		PubDate:  post.PubDate.Add(time.Duration(gofakeit.Number(1, 48*60)) * time.Minute),
	}
	return comment, f.persist(comment, &comment.ID)
}

// CreateFollow persists a follow edge. Self-follows are skipped.
func (f *Factory) CreateFollow(user, author *models.User) error {
	if user.ID == author.ID {
		return nil
	}
	follow := &models.Follow{UserID: user.ID, AuthorID: author.ID}
	return f.persist(follow, &follow.ID)
}

func (f *Factory) persist(value any, id *uint) error {
	if f.opts.DryRun {
		f.nextID++
		*id = f.nextID
		return nil
	}
	return f.db.Create(value).Error
}

func (f *Factory) batchSize() int {
	if f.opts.BatchSize > 0 {
		return f.opts.BatchSize
	}
	return 100
}

// alnum lowercases s and keeps only ASCII letters and digits.
func alnum(s, fallback string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}
