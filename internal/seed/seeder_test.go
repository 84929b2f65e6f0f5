package seed

import (
	"context"
	"errors"
	"testing"

	"harfzaar/internal/cache"
	"harfzaar/internal/models"
	"harfzaar/internal/repository"
	"harfzaar/internal/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type wordRepoStub struct {
	repository.WordRepository
	got []models.Word
	err error
}

func (s *wordRepoStub) UpsertMany(_ context.Context, words []models.Word) (int64, error) {
	s.got = words
	return int64(len(words)), s.err
}

type girahRepoStub struct {
	repository.GirahLineRepository
	got []string
}

func (s *girahRepoStub) UpsertMany(_ context.Context, lines []string) (int64, error) {
	s.got = lines
	return int64(len(lines)), nil
}

type ghazalRepoStub struct {
	repository.GhazalRepository
	got []models.Ghazal
}

func (s *ghazalRepoStub) UpsertMany(_ context.Context, g []models.Ghazal) (int64, error) {
	s.got = g
	return int64(len(g)), nil
}

type userRepoStub struct {
	repository.UserRepository
	created  []models.User
	createFn func(u *models.User) error
}

func (s *userRepoStub) Create(_ context.Context, u *models.User) error {
	if s.createFn != nil {
		if err := s.createFn(u); err != nil {
			return err
		}
	}
	s.created = append(s.created, *u)
	return nil
}

func newTestSeeder(users *userRepoStub) (*Seeder, *wordRepoStub, *girahRepoStub, *ghazalRepoStub) {
	w, g, gh := &wordRepoStub{}, &girahRepoStub{}, &ghazalRepoStub{}
	s := NewSeeder(w, g, gh, users, 42)
	s.cost = bcrypt.MinCost
	return s, w, g, gh
}

func withoutRedis(t *testing.T) {
	t.Helper()
	prev := cache.GetClient()
	cache.SetClient(nil)
	t.Cleanup(func() { cache.SetClient(prev) })
}

func TestSeeder_Load(t *testing.T) {
	withoutRedis(t)
	s, words, girah, ghazals := newTestSeeder(&userRepoStub{})
	d := &Dictionary{
		Words:      []WordEntry{{Word: "pyaar"}, {Word: "dildaar"}},
		GirahLines: []string{" first line ", "", "second line"},
		Ghazals:    []GhazalEntry{{PoetName: "mir-taqi-mir", PoetryTitle: "t", PoetryContent: "c"}},
	}

	res, err := s.Load(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, Result{Words: 2, GirahLines: 2, Ghazals: 1}, res)
	assert.Equal(t, "aar", words.got[1].Ravi3)
	assert.Equal(t, []string{"first line", "second line"}, girah.got)
	assert.Equal(t, "mir-taqi-mir", ghazals.got[0].PoetName)
}

func TestSeeder_LoadDropsCachedQaafia(t *testing.T) {
	mr := miniredis.RunT(t)
	prev := cache.GetClient()
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(prev) })

	ctx := context.Background()
	stale := cache.QaafiaKey("ravi3", "aar")
	require.NoError(t, mr.Set(stale, `["pyaar"]`))

	s, _, _, _ := newTestSeeder(&userRepoStub{})
	_, err := s.Load(ctx, &Dictionary{Words: []WordEntry{{Word: "dildaar"}}})
	require.NoError(t, err)
	assert.False(t, mr.Exists(stale))
}

func TestSeeder_LoadStopsOnError(t *testing.T) {
	withoutRedis(t)
	s, words, girah, _ := newTestSeeder(&userRepoStub{})
	words.err = errors.New("write failed")

	_, err := s.Load(context.Background(), &Dictionary{Words: []WordEntry{{Word: "dil"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed words")
	assert.Nil(t, girah.got)
}

func TestSeeder_FakeUsers(t *testing.T) {
	users := &userRepoStub{}
	s, _, _, _ := newTestSeeder(users)

	out, err := s.FakeUsers(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, u := range out {
		assert.NoError(t, validation.ValidateUsername(u.Username))
		assert.NoError(t, validation.ValidateEmail(u.Email))
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(DemoPassword)))
	}
	assert.Len(t, users.created, 3)
}

func TestSeeder_FakeUsersRetriesConflicts(t *testing.T) {
	calls := 0
	users := &userRepoStub{createFn: func(*models.User) error {
		calls++
		if calls == 1 {
			return models.NewConflictError("User already exists")
		}
		return nil
	}}
	s, _, _, _ := newTestSeeder(users)

	out, err := s.FakeUsers(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, 2, calls)
}

func TestSeeder_FakeUsersFailsOnStoreError(t *testing.T) {
	users := &userRepoStub{createFn: func(*models.User) error { return errors.New("down") }}
	s, _, _, _ := newTestSeeder(users)

	out, err := s.FakeUsers(context.Background(), 2)
	require.Error(t, err)
	assert.Empty(t, out)
}

func TestSeeder_FakeUsersZero(t *testing.T) {
	s, _, _, _ := newTestSeeder(&userRepoStub{})
	out, err := s.FakeUsers(context.Background(), 0)
	require.NoError(t, err)
	assert.Nil(t, out)
}
