// Package seed provides helpers to create demo data for the blog database.
// These helpers are intended for development and testing only.
package seed

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"regexp"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password given to every seeded user.
const DefaultPassword = "password123"

var usernameStrip = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Options configures a seeding run.
type Options struct {
	NumUsers int
	NumPosts int
	// Clean removes existing posts, covers and users first.
	Clean bool
	// MaxDays spreads post creation times over the last MaxDays days.
	MaxDays int
	// HashCost is the bcrypt cost for seeded passwords; 0 selects bcrypt.DefaultCost.
	HashCost int
}

// Factory builds users and posts and persists them.
type Factory struct {
	db     *gorm.DB
	covers *storage.CoverStore
	opts   Options
	faker  *gofakeit.Faker
	rng    *rand.Rand
	hash   []byte
}

// NewFactory creates a Factory bound to db. Generated covers are written through covers.
func NewFactory(db *gorm.DB, covers *storage.CoverStore, opts Options) *Factory {
	seed := time.Now().UnixNano()
	return &Factory{
		db:     db,
		covers: covers,
		opts:   opts,
		faker:  gofakeit.New(seed),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (f *Factory) passwordHash() ([]byte, error) {
	if f.hash != nil {
		return f.hash, nil
	}
	cost := f.opts.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, err
	}
	f.hash = hash
	return hash, nil
}

// username returns a fake username that satisfies the registration rules.
func (f *Factory) username() string {
	name := usernameStrip.ReplaceAllString(f.faker.Username(), "")
	if len(name) > 24 {
		name = name[:24]
	}
	return fmt.Sprintf("%s%d", name, f.faker.Number(100, 99999))
}

// CreateUser constructs and persists a user with DefaultPassword.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username: f.username(),
		Password: string(hash),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs an unsaved post for author with a freshly generated cover.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	cover, err := f.covers.Store(f.faker.Word()+".png", bytes.NewReader(f.coverImage()))
	if err != nil {
		return nil, err
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays*24*60)) * time.Minute

	post := &models.Post{
		Title:     f.faker.Sentence(f.faker.Number(3, 8)),
		Summary:   f.faker.Sentence(f.faker.Number(10, 20)),
		Content:   f.content(),
		Cover:     cover,
		AuthorID:  author.ID,
		CreatedAt: time.Now().Add(-back),
	}
	for _, override := range overrides {
		override(post)
	}
	return post, nil
}

// CreatePost builds and persists a post for author.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post, err := f.BuildPost(author, overrides...)
	if err != nil {
		return nil, err
	}
	if err := f.db.Omit("Author").Create(post).Error; err != nil {
		_ = f.covers.Remove(post.Cover)
		return nil, err
	}
	return post, nil
}

func (f *Factory) content() string {
	var buf bytes.Buffer
	for i := 0; i < f.faker.Number(2, 5); i++ {
		fmt.Fprintf(&buf, "<p>%s</p>\n", f.faker.Paragraph(1, f.faker.Number(3, 6), 12, " "))
	}
	return buf.String()
}

// coverImage renders a small two-tone PNG.
func (f *Factory) coverImage() []byte {
	const w, h = 64, 36
	top := color.RGBA{R: uint8(f.rng.Intn(256)), G: uint8(f.rng.Intn(256)), B: uint8(f.rng.Intn(256)), A: 255}
	bottom := color.RGBA{R: uint8(f.rng.Intn(256)), G: uint8(f.rng.Intn(256)), B: uint8(f.rng.Intn(256)), A: 255}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := top
		if y >= h/2 {
			c = bottom
		}
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
