package seed

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"harfzaar/internal/cache"
	"harfzaar/internal/middleware"
	"harfzaar/internal/models"
	"harfzaar/internal/repository"
	"harfzaar/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

// DemoPassword is the password every fake user gets.
const DemoPassword = "Harfzaar123"

// maxUsernameAttempts bounds retries when gofakeit repeats a username.
const maxUsernameAttempts = 5

var usernameUnsafe = regexp.MustCompile(`[^\p{L}\p{N}_.]`)

// Result counts what a run wrote.
type Result struct {
	Words      int64
	GirahLines int64
	Ghazals    int64
}

// Seeder writes dictionaries and demo users through the repositories.
type Seeder struct {
	words   repository.WordRepository
	girah   repository.GirahLineRepository
	ghazals repository.GhazalRepository
	users   repository.UserRepository
	faker   *gofakeit.Faker
	cost    int
}

// NewSeeder returns a Seeder. seed fixes the fake-data sequence; 0 picks a random one.
func NewSeeder(
	words repository.WordRepository,
	girah repository.GirahLineRepository,
	ghazals repository.GhazalRepository,
	users repository.UserRepository,
	seed int64,
) *Seeder {
	return &Seeder{
		words:   words,
		girah:   girah,
		ghazals: ghazals,
		users:   users,
		faker:   gofakeit.New(seed),
		cost:    bcrypt.DefaultCost,
	}
}

// Load upserts every section of d. Re-running with the same file is idempotent.
func (s *Seeder) Load(ctx context.Context, d *Dictionary) (Result, error) {
	var res Result
	var err error

	if res.Words, err = s.words.UpsertMany(ctx, d.WordModels()); err != nil {
		return res, fmt.Errorf("seed words: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "seeded qaafia words", "written", res.Words, "total", len(d.Words))
	if n, err := cache.InvalidateQaafia(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "qaafia cache invalidation failed", "error", err)
	} else if n > 0 {
		middleware.Logger.InfoContext(ctx, "dropped cached qaafia results", "keys", n)
	}

	lines := make([]string, 0, len(d.GirahLines))
	for _, l := range d.GirahLines {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if res.GirahLines, err = s.girah.UpsertMany(ctx, lines); err != nil {
		return res, fmt.Errorf("seed girah lines: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "seeded girah lines", "written", res.GirahLines, "total", len(lines))

	if res.Ghazals, err = s.ghazals.UpsertMany(ctx, d.GhazalModels()); err != nil {
		return res, fmt.Errorf("seed ghazals: %w", err)
	}
	cache.InvalidateGhazalFacets(ctx)
	middleware.Logger.InfoContext(ctx, "seeded ghazals", "written", res.Ghazals, "total", len(d.Ghazals))

	return res, nil
}

// FakeUsers creates n demo accounts that all use DemoPassword.
func (s *Seeder) FakeUsers(ctx context.Context, n int) ([]models.User, error) {
	if n <= 0 {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), s.cost)
	if err != nil {
		return nil, err
	}

	out := make([]models.User, 0, n)
	for len(out) < n {
		user, err := s.createFakeUser(ctx, string(hash))
		if err != nil {
			return out, err
		}
		out = append(out, *user)
	}
	middleware.Logger.InfoContext(ctx, "seeded demo users", "count", len(out), "password", DemoPassword)
	return out, nil
}

func (s *Seeder) createFakeUser(ctx context.Context, hash string) (*models.User, error) {
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		username := s.fakeUsername()
		user := &models.User{
			Username: username,
			Email:    strings.ToLower(username) + "@example.com",
			Password: hash,
		}
		err := s.users.Create(ctx, user)
		if err == nil {
			return user, nil
		}
		var appErr *models.AppError
		if !errors.As(err, &appErr) || appErr.Code != models.CodeConflict {
			return nil, fmt.Errorf("create demo user: %w", err)
		}
	}
	return nil, fmt.Errorf("create demo user: no free username after %d attempts", maxUsernameAttempts)
}

func (s *Seeder) fakeUsername() string {
	for {
		name := usernameUnsafe.ReplaceAllString(s.faker.Username(), "")
		if len(name) > 24 {
			name = name[:24]
		}
		name = fmt.Sprintf("%s%d", name, s.faker.Number(10, 999))
		if validation.ValidateUsername(name) == nil {
			return name
		}
	}
}
