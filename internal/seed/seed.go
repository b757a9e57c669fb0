package seed

import (
	"fmt"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/storage"

	"gorm.io/gorm"
)

// Result reports what a seeding run created.
type Result struct {
	Users []*models.User
	Posts []*models.Post
}

// Seeder fills the database with fake users and posts.
type Seeder struct {
	db      *gorm.DB
	covers  *storage.CoverStore
	factory *Factory
	opts    Options
}

// NewSeeder creates a Seeder.
func NewSeeder(db *gorm.DB, covers *storage.CoverStore, opts Options) *Seeder {
	return &Seeder{
		db:      db,
		covers:  covers,
		factory: NewFactory(db, covers, opts),
		opts:    opts,
	}
}

// Run seeds NumUsers users and NumPosts posts spread across them.
func (s *Seeder) Run() (*Result, error) {
	if s.opts.NumPosts > 0 && s.opts.NumUsers <= 0 {
		return nil, fmt.Errorf("cannot seed %d posts without users", s.opts.NumPosts)
	}

	if s.opts.Clean {
		if err := s.ClearAll(); err != nil {
			return nil, fmt.Errorf("clear existing data: %w", err)
		}
	}

	res := &Result{}
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return res, fmt.Errorf("create user %d: %w", i+1, err)
		}
		res.Users = append(res.Users, user)
	}
	middleware.Logger.Info("seeded users", slog.Int("count", len(res.Users)))

	for i := 0; i < s.opts.NumPosts; i++ {
		author := res.Users[i%len(res.Users)]
		post, err := s.factory.CreatePost(author)
		if err != nil {
			return res, fmt.Errorf("create post %d: %w", i+1, err)
		}
		res.Posts = append(res.Posts, post)
	}
	middleware.Logger.Info("seeded posts", slog.Int("count", len(res.Posts)))

	return res, nil
}

// ClearAll deletes every post with its cover file, then every user.
func (s *Seeder) ClearAll() error {
	var covers []string
	if err := s.db.Model(&models.Post{}).Pluck("cover", &covers).Error; err != nil {
		return err
	}
	for _, cover := range covers {
		if err := s.covers.Remove(cover); err != nil {
			middleware.Logger.Warn("failed to remove cover", slog.String("cover", cover), slog.String("error", err.Error()))
		}
	}

	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Post{}).Error; err != nil {
		return err
	}
	return s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error
}
