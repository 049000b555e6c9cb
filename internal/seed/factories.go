package seed

import (
	"fmt"
	"time"

	"bbs/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every generated user.
const DefaultPassword = "BoardPass123!"

// SeedOptions tune what the Factory produces.
type SeedOptions struct {
	// MaxDays bounds how far back generated timestamps reach.
	MaxDays int
	// SkipBcrypt stores a cheap hash; only for tests.
	SkipBcrypt bool
	// Seed makes gofakeit output repeatable when non-zero.
	Seed int64
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	opts  SeedOptions
	faker *gofakeit.Faker
	hash  string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts SeedOptions) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	return &Factory{db: db, opts: opts, faker: gofakeit.New(seed)}
}

func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return "", err
	}
	f.hash = string(hashed)
	return f.hash, nil
}

// createdAt spreads timestamps over the last MaxDays days.
func (f *Factory) createdAt() time.Time {
	back := time.Duration(f.faker.Number(0, f.opts.MaxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	nick := fmt.Sprintf("%s%d", f.faker.FirstName(), f.faker.Number(10, 99))
	user := &models.User{
		Username:  fmt.Sprintf("%s%d", f.faker.Username(), f.faker.Number(100, 999)),
		Nickname:  &nick,
		Email:     f.faker.Email(),
		FirstName: f.faker.FirstName(),
		LastName:  f.faker.LastName(),
		Password:  hash,
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post without persisting it.
func (f *Factory) BuildPost(board *models.Board, author *models.User, overrides ...func(*models.Post)) *models.Post {
	created := f.createdAt()
	post := &models.Post{
		BoardID:   board.ID,
		UserID:    author.ID,
		Title:     f.faker.Sentence(f.faker.Number(3, 8)),
		Content:   f.faker.Paragraph(1, 3, 8, "\n\n"),
		Views:     int64(f.faker.Number(0, 300)),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts in a single DB call.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.CreateInBatches(posts, 100).Error
}

// CreateComment persists a comment on post written by author.
func (f *Factory) CreateComment(post *models.Post, author *models.User) (*models.Comment, error) {
	created := post.CreatedAt.Add(time.Duration(f.faker.Number(1, 600)) * time.Minute)
	comment := &models.Comment{
		PostID:    post.ID,
		UserID:    author.ID,
		Content:   f.faker.Sentence(f.faker.Number(4, 16)),
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike adds user to post's like-set, ignoring an existing membership.
func (f *Factory) CreateLike(post *models.Post, user *models.User) error {
	return f.db.Where(models.Like{UserID: user.ID, PostID: post.ID}).
		FirstOrCreate(&models.Like{UserID: user.ID, PostID: post.ID}).Error
}

// CreateMessage persists a private message; roughly half arrive already read.
func (f *Factory) CreateMessage(from, to *models.User) (*models.Message, error) {
	msg := &models.Message{
		SenderID:   from.ID,
		ReceiverID: to.ID,
		Title:      f.faker.Sentence(4),
		Content:    f.faker.Paragraph(1, 2, 10, "\n"),
		CreatedAt:  f.createdAt(),
	}
	if f.faker.Bool() {
		read := msg.CreatedAt.Add(time.Hour)
		msg.ReadAt = &read
	}
	if err := f.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (f *Factory) pick(n int) int {
	return f.faker.Number(0, n-1)
}
