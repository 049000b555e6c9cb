// Package seed provides helpers to create demo data for the bulletin board
// database: the default board directory plus generated users and content.
// These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"

	"bbs/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder.
type Options struct {
	NumUsers        int
	PostsPerBoard   int
	CommentsPerPost int
	MessagesPerUser int
	ShouldClean     bool
}

// Seeder fills a database with boards and sample content.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder returns a Seeder writing through db.
func NewSeeder(db *gorm.DB, opts SeedOptions) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts)}
}

// ClearAll removes all content rows. Tables are emptied child-first.
func (s *Seeder) ClearAll() error {
	tables := []interface{}{
		&models.Like{}, &models.Comment{}, &models.Message{},
		&models.Post{}, &models.Board{},
	}
	for _, t := range tables {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(t).Error; err != nil {
			return fmt.Errorf("clear %T: %w", t, err)
		}
	}
	if err := s.db.Unscoped().Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	log.Println("✓ cleared existing data")
	return nil
}

// Run seeds the board directory and then generated content into every board.
func (s *Seeder) Run(boards []BoardSpec, opts Options) error {
	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return err
		}
	}
	if err := Boards(s.db, boards); err != nil {
		return err
	}
	log.Printf("✓ %d boards ensured", len(boards))

	if opts.NumUsers <= 0 {
		return nil
	}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := s.factory.CreateUser()
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	log.Printf("✓ %d users created (password %s)", len(users), DefaultPassword)

	var stored []models.Board
	if err := s.db.Order("id").Find(&stored).Error; err != nil {
		return fmt.Errorf("load boards: %w", err)
	}

	posts, err := s.seedPosts(stored, users, opts.PostsPerBoard)
	if err != nil {
		return err
	}
	log.Printf("✓ %d posts created", len(posts))

	comments, likes, err := s.seedEngagement(posts, users, opts.CommentsPerPost)
	if err != nil {
		return err
	}
	log.Printf("✓ %d comments and %d likes created", comments, likes)

	messages, err := s.seedMessages(users, opts.MessagesPerUser)
	if err != nil {
		return err
	}
	log.Printf("✓ %d messages created", messages)
	return nil
}

func (s *Seeder) seedPosts(boards []models.Board, users []*models.User, perBoard int) ([]*models.Post, error) {
	var posts []*models.Post
	for i := range boards {
		for j := 0; j < perBoard; j++ {
			author := users[s.factory.pick(len(users))]
			posts = append(posts, s.factory.BuildPost(&boards[i], author))
		}
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	return posts, nil
}

func (s *Seeder) seedEngagement(posts []*models.Post, users []*models.User, maxComments int) (int, int, error) {
	comments, likes := 0, 0
	for _, post := range posts {
		n := 0
		if maxComments > 0 {
			n = s.factory.pick(maxComments + 1)
		}
		for i := 0; i < n; i++ {
			if _, err := s.factory.CreateComment(post, users[s.factory.pick(len(users))]); err != nil {
				return comments, likes, fmt.Errorf("create comment: %w", err)
			}
			comments++
		}
		for _, u := range users {
			if s.factory.pick(4) != 0 {
				continue
			}
			if err := s.factory.CreateLike(post, u); err != nil {
				return comments, likes, fmt.Errorf("create like: %w", err)
			}
			likes++
		}
	}
	return comments, likes, nil
}

func (s *Seeder) seedMessages(users []*models.User, perUser int) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	count := 0
	for i, from := range users {
		for j := 0; j < perUser; j++ {
			k := s.factory.pick(len(users) - 1)
			if k >= i {
				k++
			}
			if _, err := s.factory.CreateMessage(from, users[k]); err != nil {
				return count, fmt.Errorf("create message: %w", err)
			}
			count++
		}
	}
	return count, nil
}
