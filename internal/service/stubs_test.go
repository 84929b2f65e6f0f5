package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"harfzaar/internal/cache"
	"harfzaar/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// useTestRedis points the shared cache client at a fresh miniredis for the test.
func useTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	prev := cache.GetClient()
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(prev)
		_ = rdb.Close()
	})
	return mr
}

// withoutRedis clears the shared cache client for the test.
func withoutRedis(t *testing.T) {
	t.Helper()
	prev := cache.GetClient()
	cache.SetClient(nil)
	t.Cleanup(func() { cache.SetClient(prev) })
}

type wordRepoStub struct {
	findByRaviFn func(context.Context, string, string) ([]string, error)
	calls        int
}

func (s *wordRepoStub) FindByRavi(ctx context.Context, column, pattern string) ([]string, error) {
	s.calls++
	return s.findByRaviFn(ctx, column, pattern)
}
func (s *wordRepoStub) UpsertMany(context.Context, []models.Word) (int64, error) { return 0, nil }

type ghazalRepoStub struct {
	allFn        func(context.Context) ([]models.Ghazal, error)
	distinctFn   func(context.Context, string) ([]string, error)
	listTitlesFn func(context.Context, models.GhazalFilter) ([]models.GhazalTitle, error)
	getByIDFn    func(context.Context, bson.ObjectID) (*models.Ghazal, error)
	getByIDsFn   func(context.Context, []bson.ObjectID) ([]models.Ghazal, error)
	getByTitleFn func(context.Context, string) (*models.Ghazal, error)
	listByPoetFn func(context.Context, string) ([]models.Ghazal, error)
	listByGenre  func(context.Context, string) ([]models.Ghazal, error)
	createFn     func(context.Context, *models.Ghazal) error
	deleteFn     func(context.Context, bson.ObjectID) error
}

func (s *ghazalRepoStub) All(ctx context.Context) ([]models.Ghazal, error) {
	if s.allFn == nil {
		return nil, nil
	}
	return s.allFn(ctx)
}
func (s *ghazalRepoStub) Distinct(ctx context.Context, field string) ([]string, error) {
	if s.distinctFn == nil {
		return nil, nil
	}
	return s.distinctFn(ctx, field)
}
func (s *ghazalRepoStub) ListTitles(ctx context.Context, f models.GhazalFilter) ([]models.GhazalTitle, error) {
	if s.listTitlesFn == nil {
		return nil, nil
	}
	return s.listTitlesFn(ctx, f)
}
func (s *ghazalRepoStub) GetByID(ctx context.Context, id bson.ObjectID) (*models.Ghazal, error) {
	if s.getByIDFn == nil {
		return nil, models.NewNotFoundMessage("Poetry not found")
	}
	return s.getByIDFn(ctx, id)
}
func (s *ghazalRepoStub) GetByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Ghazal, error) {
	if s.getByIDsFn == nil {
		return nil, nil
	}
	return s.getByIDsFn(ctx, ids)
}
func (s *ghazalRepoStub) GetByTitle(ctx context.Context, title string) (*models.Ghazal, error) {
	if s.getByTitleFn == nil {
		return nil, models.NewNotFoundMessage("Poetry not found")
	}
	return s.getByTitleFn(ctx, title)
}
func (s *ghazalRepoStub) ListByPoet(ctx context.Context, name string) ([]models.Ghazal, error) {
	if s.listByPoetFn == nil {
		return nil, nil
	}
	return s.listByPoetFn(ctx, name)
}
func (s *ghazalRepoStub) ListByGenre(ctx context.Context, genre string) ([]models.Ghazal, error) {
	if s.listByGenre == nil {
		return nil, nil
	}
	return s.listByGenre(ctx, genre)
}
func (s *ghazalRepoStub) Create(ctx context.Context, g *models.Ghazal) error {
	if s.createFn == nil {
		g.ID = bson.NewObjectID()
		return nil
	}
	return s.createFn(ctx, g)
}
func (s *ghazalRepoStub) Delete(ctx context.Context, id bson.ObjectID) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}
func (s *ghazalRepoStub) UpsertMany(context.Context, []models.Ghazal) (int64, error) { return 0, nil }

type girahRepoStub struct {
	randomFn func(context.Context) (*models.GirahLine, error)
}

func (s *girahRepoStub) Random(ctx context.Context) (*models.GirahLine, error) {
	return s.randomFn(ctx)
}
func (s *girahRepoStub) UpsertMany(context.Context, []string) (int64, error) { return 0, nil }

// userRepoStub is an in-memory UserRepository. Fn fields override the map.
type userRepoStub struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*models.User

	getByIDFn  func(context.Context, bson.ObjectID) (*models.User, error)
	createFn   func(context.Context, *models.User) error
	touchFn    func(context.Context, bson.ObjectID, time.Time) error
	setRoleFn  func(context.Context, bson.ObjectID, string) error
	markIdleFn func(context.Context, time.Time) (int64, error)
}

func newUserRepoStub(users ...*models.User) *userRepoStub {
	s := &userRepoStub{users: map[bson.ObjectID]*models.User{}}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = bson.NewObjectID()
		}
		s.users[u.ID] = u
	}
	return s
}

func (s *userRepoStub) get(id bson.ObjectID) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *userRepoStub) GetByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	if u := s.get(id); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, models.NewNotFoundMessage("User not found")
}

func (s *userRepoStub) find(match func(*models.User) bool) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (s *userRepoStub) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == email }), nil
}
func (s *userRepoStub) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Username == username }), nil
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createFn != nil {
		return s.createFn(ctx, user)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = bson.NewObjectID()
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}
func (s *userRepoStub) update(id bson.ObjectID, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.NewNotFoundMessage("User not found")
	}
	fn(u)
	return nil
}
func (s *userRepoStub) SetOTP(_ context.Context, id bson.ObjectID, otp *models.OTP) error {
	return s.update(id, func(u *models.User) { u.OTP = otp })
}
func (s *userRepoStub) UpdatePassword(_ context.Context, id bson.ObjectID, hash string) error {
	return s.update(id, func(u *models.User) { u.Password, u.OTP = hash, nil })
}
func (s *userRepoStub) SetRole(ctx context.Context, id bson.ObjectID, role string) error {
	if s.setRoleFn != nil {
		return s.setRoleFn(ctx, id, role)
	}
	return s.update(id, func(u *models.User) { u.Role = role })
}
func (s *userRepoStub) Touch(ctx context.Context, id bson.ObjectID, at time.Time) error {
	if s.touchFn != nil {
		return s.touchFn(ctx, id, at)
	}
	return s.update(id, func(u *models.User) { u.LastActivity, u.IsActive, u.IsOnline = at, true, true })
}
func (s *userRepoStub) SetOffline(_ context.Context, id bson.ObjectID) error {
	return s.update(id, func(u *models.User) { u.IsOnline = false })
}
func (s *userRepoStub) ListActiveExcept(_ context.Context, id bson.ObjectID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if u.ID != id && u.IsActive {
			out = append(out, *u)
		}
	}
	return out, nil
}
func (s *userRepoStub) MarkIdle(ctx context.Context, before time.Time) (int64, error) {
	if s.markIdleFn != nil {
		return s.markIdleFn(ctx, before)
	}
	return 0, nil
}
func (s *userRepoStub) AddFavorite(_ context.Context, id, ghazalID bson.ObjectID) error {
	return s.update(id, func(u *models.User) {
		for _, f := range u.Favorites {
			if f == ghazalID {
				return
			}
		}
		u.Favorites = append(u.Favorites, ghazalID)
	})
}
func (s *userRepoStub) RemoveFavorite(_ context.Context, id, ghazalID bson.ObjectID) error {
	return s.update(id, func(u *models.User) {
		out := u.Favorites[:0]
		for _, f := range u.Favorites {
			if f != ghazalID {
				out = append(out, f)
			}
		}
		u.Favorites = out
	})
}

type chatRepoStub struct {
	getByRoomIDFn   func(context.Context, string) (*models.Chat, error)
	createFn        func(context.Context, *models.Chat) error
	resetUnreadFn   func(context.Context, string, string) (*models.Chat, error)
	appendMessageFn func(context.Context, string, models.Message, []string) (*models.Message, error)
	listForFn       func(context.Context, bson.ObjectID) ([]models.Chat, error)
}

func (s *chatRepoStub) GetByRoomID(ctx context.Context, roomID string) (*models.Chat, error) {
	if s.getByRoomIDFn == nil {
		return nil, models.NewNotFoundMessage("Chat room not found")
	}
	return s.getByRoomIDFn(ctx, roomID)
}
func (s *chatRepoStub) Create(ctx context.Context, chat *models.Chat) error {
	if s.createFn == nil {
		chat.ID = bson.NewObjectID()
		return nil
	}
	return s.createFn(ctx, chat)
}
func (s *chatRepoStub) ResetUnread(ctx context.Context, roomID, userID string) (*models.Chat, error) {
	return s.resetUnreadFn(ctx, roomID, userID)
}
func (s *chatRepoStub) AppendMessage(ctx context.Context, roomID string, msg models.Message, recipients []string) (*models.Message, error) {
	return s.appendMessageFn(ctx, roomID, msg, recipients)
}
func (s *chatRepoStub) ListForParticipant(ctx context.Context, id bson.ObjectID) ([]models.Chat, error) {
	if s.listForFn == nil {
		return nil, nil
	}
	return s.listForFn(ctx, id)
}

type poetRepoStub struct {
	mu       sync.Mutex
	byName   map[string]*models.Poet
	deleted  []bson.ObjectID
	createFn func(context.Context, *models.Poet) error
}

func newPoetRepoStub() *poetRepoStub {
	return &poetRepoStub{byName: map[string]*models.Poet{}}
}

func (s *poetRepoStub) GetByName(_ context.Context, name string) (*models.Poet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.byName[name]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, models.NewNotFoundMessage("Poet not found")
}
func (s *poetRepoStub) ExistsByName(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byName[name]
	return ok, nil
}
func (s *poetRepoStub) Create(ctx context.Context, p *models.Poet) error {
	if s.createFn != nil {
		return s.createFn(ctx, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = bson.NewObjectID()
	cp := *p
	s.byName[p.Name] = &cp
	return nil
}
func (s *poetRepoStub) Delete(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	for name, p := range s.byName {
		if p.ID == id {
			delete(s.byName, name)
		}
	}
	return nil
}

type pendingRepoStub struct {
	created []*models.PendingPoet
	err     error
}

func (s *pendingRepoStub) Create(_ context.Context, p *models.PendingPoet) error {
	if s.err != nil {
		return s.err
	}
	p.ID = bson.NewObjectID()
	s.created = append(s.created, p)
	return nil
}

type newsRepoStub struct {
	created []*models.News
	list    []models.News
	err     error
}

func (s *newsRepoStub) Create(_ context.Context, n *models.News) error {
	if s.err != nil {
		return s.err
	}
	n.ID = bson.NewObjectID()
	s.created = append(s.created, n)
	return nil
}
func (s *newsRepoStub) ListRecent(context.Context) ([]models.News, error) { return s.list, s.err }

type feedbackRepoStub struct {
	created []*models.Feedback
}

func (s *feedbackRepoStub) Create(_ context.Context, f *models.Feedback) error {
	f.ID = bson.NewObjectID()
	s.created = append(s.created, f)
	return nil
}

type publishedEvent struct {
	room    string
	event   string
	payload any
}

type publisherStub struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *publisherStub) PublishRoom(_ context.Context, roomID, event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{room: roomID, event: event, payload: payload})
	return p.err
}

// seqRand returns the queued values in order, then zeros.
type seqRand struct{ vals []int }

func (r *seqRand) IntN(n int) int {
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[0]
	r.vals = r.vals[1:]
	return v % n
}
