package testutil

import (
	"context"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"harfzaar/internal/models"
	"harfzaar/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryDB backs every repository interface with maps. Lookups mirror the
// Mongo repositories: not-found errors, duplicate checks and the
// case-insensitive ravi match.
type MemoryDB struct {
	mu       sync.Mutex
	Users    map[bson.ObjectID]*models.User
	Words    []models.Word
	Ghazals  []models.Ghazal
	Girah    []models.GirahLine
	Chats    map[string]*models.Chat
	Poets    map[string]*models.Poet
	Pending  []models.PendingPoet
	News     []models.News
	Feedback []models.Feedback
}

// NewMemoryDB returns an empty MemoryDB.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		Users: map[bson.ObjectID]*models.User{},
		Chats: map[string]*models.Chat{},
		Poets: map[string]*models.Poet{},
	}
}

// Repositories bundles the MemoryDB views.
type Repositories struct {
	Users    repository.UserRepository
	Words    repository.WordRepository
	Ghazals  repository.GhazalRepository
	Girah    repository.GirahLineRepository
	Chats    repository.ChatRepository
	Poets    repository.PoetRepository
	Pending  repository.PendingPoetRepository
	News     repository.NewsRepository
	Feedback repository.FeedbackRepository
}

// Repos returns repository views over db.
func (db *MemoryDB) Repos() Repositories {
	return Repositories{
		Users:    memUsers{db},
		Words:    memWords{db},
		Ghazals:  memGhazals{db},
		Girah:    memGirah{db},
		Chats:    memChats{db},
		Poets:    memPoets{db},
		Pending:  memPending{db},
		News:     memNews{db},
		Feedback: memFeedback{db},
	}
}

// User returns a copy of the stored user, or nil.
func (db *MemoryDB) User(id bson.ObjectID) *models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u, ok := db.Users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

// DeleteUser removes a user, simulating an account deleted while a token is live.
func (db *MemoryDB) DeleteUser(id bson.ObjectID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.Users, id)
}

type memUsers struct{ db *MemoryDB }

func (r memUsers) GetByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	if u := r.db.User(id); u != nil {
		return u, nil
	}
	return nil, models.NewNotFoundMessage("User not found")
}

func (r memUsers) findBy(match func(*models.User) bool) *models.User {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.Users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.Email == email }), nil
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.Username == username }), nil
}

func (r memUsers) Create(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.Users {
		if u.Username == user.Username || u.Email == user.Email {
			return models.NewConflictError("User already exists")
		}
	}
	now := time.Now().UTC()
	user.ID = bson.NewObjectID()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Favorites == nil {
		user.Favorites = []bson.ObjectID{}
	}
	cp := *user
	r.db.Users[user.ID] = &cp
	return nil
}

func (r memUsers) update(id bson.ObjectID, fn func(*models.User)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.Users[id]
	if !ok {
		return models.NewNotFoundMessage("User not found")
	}
	fn(u)
	return nil
}

func (r memUsers) SetOTP(_ context.Context, id bson.ObjectID, otp *models.OTP) error {
	return r.update(id, func(u *models.User) { u.OTP = otp })
}

func (r memUsers) UpdatePassword(_ context.Context, id bson.ObjectID, hash string) error {
	return r.update(id, func(u *models.User) { u.Password, u.OTP = hash, nil })
}

func (r memUsers) SetRole(_ context.Context, id bson.ObjectID, role string) error {
	return r.update(id, func(u *models.User) { u.Role = role })
}

func (r memUsers) Touch(_ context.Context, id bson.ObjectID, at time.Time) error {
	return r.update(id, func(u *models.User) { u.LastActivity, u.IsActive, u.IsOnline = at, true, true })
}

func (r memUsers) SetOffline(_ context.Context, id bson.ObjectID) error {
	return r.update(id, func(u *models.User) { u.IsActive, u.IsOnline = false, false })
}

func (r memUsers) ListActiveExcept(_ context.Context, id bson.ObjectID) ([]models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.User{}
	for _, u := range r.db.Users {
		if u.ID != id && u.IsActive {
			out = append(out, *u)
		}
	}
	slices.SortFunc(out, func(a, b models.User) int { return b.LastActivity.Compare(a.LastActivity) })
	return out, nil
}

func (r memUsers) MarkIdle(_ context.Context, before time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, u := range r.db.Users {
		if u.IsActive && u.LastActivity.Before(before) {
			u.IsActive, u.IsOnline = false, false
			n++
		}
	}
	return n, nil
}

func (r memUsers) AddFavorite(_ context.Context, id, ghazalID bson.ObjectID) error {
	return r.update(id, func(u *models.User) {
		if !slices.Contains(u.Favorites, ghazalID) {
			u.Favorites = append(u.Favorites, ghazalID)
		}
	})
}

func (r memUsers) RemoveFavorite(_ context.Context, id, ghazalID bson.ObjectID) error {
	return r.update(id, func(u *models.User) {
		u.Favorites = slices.DeleteFunc(u.Favorites, func(x bson.ObjectID) bool { return x == ghazalID })
	})
}

type memWords struct{ db *MemoryDB }

func (r memWords) FindByRavi(_ context.Context, column, pattern string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []string{}
	for _, w := range r.db.Words {
		var v string
		switch column {
		case "ravi1":
			v = w.Ravi1
		case "ravi2":
			v = w.Ravi2
		case "ravi3":
			v = w.Ravi3
		case "ravi4":
			v = w.Ravi4
		case "ravi5":
			v = w.Ravi5
		default:
			return nil, models.NewValidationError("Unknown ravi column")
		}
		if strings.EqualFold(v, pattern) {
			out = append(out, w.Word)
		}
	}
	return out, nil
}

func (r memWords) UpsertMany(_ context.Context, words []models.Word) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, w := range words {
		i := slices.IndexFunc(r.db.Words, func(x models.Word) bool { return x.Word == w.Word })
		if i >= 0 {
			w.ID = r.db.Words[i].ID
			r.db.Words[i] = w
		} else {
			w.ID = bson.NewObjectID()
			r.db.Words = append(r.db.Words, w)
		}
		n++
	}
	return n, nil
}

type memGhazals struct{ db *MemoryDB }

func (r memGhazals) filter(match func(models.Ghazal) bool) []models.Ghazal {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.Ghazal{}
	for _, g := range r.db.Ghazals {
		if match(g) {
			out = append(out, g)
		}
	}
	return out
}

func (r memGhazals) one(match func(models.Ghazal) bool) (*models.Ghazal, error) {
	if list := r.filter(match); len(list) > 0 {
		return &list[0], nil
	}
	return nil, models.NewNotFoundMessage("Poetry not found")
}

func (r memGhazals) All(context.Context) ([]models.Ghazal, error) {
	return r.filter(func(models.Ghazal) bool { return true }), nil
}

func (r memGhazals) Distinct(_ context.Context, field string) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	for _, g := range r.filter(func(models.Ghazal) bool { return true }) {
		var v string
		switch field {
		case "poetName":
			v = g.PoetName
		case "genre":
			v = g.Genre
		case "poetryDomain":
			v = g.PoetryDomain
		}
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (r memGhazals) ListTitles(_ context.Context, f models.GhazalFilter) ([]models.GhazalTitle, error) {
	list := r.filter(func(g models.Ghazal) bool {
		return (f.PoetName == "" || g.PoetName == f.PoetName) &&
			(f.Genre == "" || g.Genre == f.Genre) &&
			(f.PoetryDomain == "" || g.PoetryDomain == f.PoetryDomain)
	})
	out := make([]models.GhazalTitle, 0, len(list))
	for _, g := range list {
		out = append(out, models.GhazalTitle{ID: g.ID, PoetryTitle: g.PoetryTitle})
	}
	return out, nil
}

func (r memGhazals) GetByID(_ context.Context, id bson.ObjectID) (*models.Ghazal, error) {
	return r.one(func(g models.Ghazal) bool { return g.ID == id })
}

func (r memGhazals) GetByIDs(_ context.Context, ids []bson.ObjectID) ([]models.Ghazal, error) {
	return r.filter(func(g models.Ghazal) bool { return slices.Contains(ids, g.ID) }), nil
}

func (r memGhazals) GetByTitle(_ context.Context, title string) (*models.Ghazal, error) {
	return r.one(func(g models.Ghazal) bool { return g.PoetryTitle == title })
}

func (r memGhazals) ListByPoet(_ context.Context, poetName string) ([]models.Ghazal, error) {
	return r.filter(func(g models.Ghazal) bool { return g.PoetName == poetName }), nil
}

func (r memGhazals) ListByGenre(_ context.Context, genre string) ([]models.Ghazal, error) {
	return r.filter(func(g models.Ghazal) bool { return g.Genre == genre }), nil
}

func (r memGhazals) Create(_ context.Context, g *models.Ghazal) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g.ID = bson.NewObjectID()
	r.db.Ghazals = append(r.db.Ghazals, *g)
	return nil
}

func (r memGhazals) Delete(_ context.Context, id bson.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.Ghazals = slices.DeleteFunc(r.db.Ghazals, func(g models.Ghazal) bool { return g.ID == id })
	return nil
}

func (r memGhazals) UpsertMany(_ context.Context, ghazals []models.Ghazal) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, g := range ghazals {
		i := slices.IndexFunc(r.db.Ghazals, func(x models.Ghazal) bool {
			return x.PoetName == g.PoetName && x.PoetryTitle == g.PoetryTitle
		})
		if i >= 0 {
			g.ID = r.db.Ghazals[i].ID
			r.db.Ghazals[i] = g
		} else {
			g.ID = bson.NewObjectID()
			r.db.Ghazals = append(r.db.Ghazals, g)
		}
		n++
	}
	return n, nil
}

type memGirah struct{ db *MemoryDB }

func (r memGirah) Random(context.Context) (*models.GirahLine, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if len(r.db.Girah) == 0 {
		return nil, models.NewNotFoundMessage("No girah lines available")
	}
	line := r.db.Girah[rand.IntN(len(r.db.Girah))]
	return &line, nil
}

func (r memGirah) UpsertMany(_ context.Context, lines []string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, l := range lines {
		if !slices.ContainsFunc(r.db.Girah, func(g models.GirahLine) bool { return g.Line == l }) {
			r.db.Girah = append(r.db.Girah, models.GirahLine{ID: bson.NewObjectID(), Line: l})
			n++
		}
	}
	return n, nil
}

type memChats struct{ db *MemoryDB }

func copyChat(c *models.Chat) *models.Chat {
	cp := *c
	cp.Messages = slices.Clone(c.Messages)
	cp.UnreadCounts = make(map[string]int, len(c.UnreadCounts))
	for k, v := range c.UnreadCounts {
		cp.UnreadCounts[k] = v
	}
	return &cp
}

func (r memChats) GetByRoomID(_ context.Context, roomID string) (*models.Chat, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if c, ok := r.db.Chats[roomID]; ok {
		return copyChat(c), nil
	}
	return nil, repository.ErrChatNotFound
}

func (r memChats) Create(_ context.Context, chat *models.Chat) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.Chats[chat.RoomID]; ok {
		return models.NewConflictError("Chat already exists")
	}
	now := time.Now().UTC()
	chat.ID = bson.NewObjectID()
	chat.CreatedAt, chat.UpdatedAt, chat.LastActivity = now, now, now
	if chat.Messages == nil {
		chat.Messages = []models.Message{}
	}
	if chat.UnreadCounts == nil {
		chat.UnreadCounts = map[string]int{}
	}
	r.db.Chats[chat.RoomID] = copyChat(chat)
	return nil
}

func (r memChats) ResetUnread(_ context.Context, roomID, userID string) (*models.Chat, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.Chats[roomID]
	if !ok {
		return nil, repository.ErrChatNotFound
	}
	c.UnreadCounts[userID] = 0
	return copyChat(c), nil
}

func (r memChats) AppendMessage(_ context.Context, roomID string, msg models.Message, recipients []string) (*models.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.Chats[roomID]
	if !ok {
		return nil, repository.ErrChatNotFound
	}
	c.NextSeq++
	msg.Seq = c.NextSeq
	c.Messages = append(c.Messages, msg)
	c.LastActivity = msg.Timestamp
	for _, id := range recipients {
		c.UnreadCounts[id]++
	}
	return &msg, nil
}

func (r memChats) ListForParticipant(_ context.Context, userID bson.ObjectID) ([]models.Chat, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.Chat{}
	for _, c := range r.db.Chats {
		if slices.Contains(c.Participants, userID) {
			cp := copyChat(c)
			cp.Messages = nil
			out = append(out, *cp)
		}
	}
	return out, nil
}

type memPoets struct{ db *MemoryDB }

func (r memPoets) GetByName(_ context.Context, name string) (*models.Poet, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.Poets[name]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, models.NewNotFoundMessage("Poet not found")
}

func (r memPoets) ExistsByName(_ context.Context, name string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, ok := r.db.Poets[name]
	return ok, nil
}

func (r memPoets) Create(_ context.Context, p *models.Poet) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.Poets[p.Name]; ok {
		return models.NewConflictError("Poet name already exists")
	}
	now := time.Now().UTC()
	p.ID = bson.NewObjectID()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	r.db.Poets[p.Name] = &cp
	return nil
}

func (r memPoets) Delete(_ context.Context, id bson.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for name, p := range r.db.Poets {
		if p.ID == id {
			delete(r.db.Poets, name)
		}
	}
	return nil
}

type memPending struct{ db *MemoryDB }

func (r memPending) Create(_ context.Context, p *models.PendingPoet) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.ID = bson.NewObjectID()
	p.CreatedAt = time.Now().UTC()
	r.db.Pending = append(r.db.Pending, *p)
	return nil
}

type memNews struct{ db *MemoryDB }

func (r memNews) Create(_ context.Context, n *models.News) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n.ID = bson.NewObjectID()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	r.db.News = append(r.db.News, *n)
	return nil
}

func (r memNews) ListRecent(context.Context) ([]models.News, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := slices.Clone(r.db.News)
	slices.SortStableFunc(out, func(a, b models.News) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

type memFeedback struct{ db *MemoryDB }

func (r memFeedback) Create(_ context.Context, f *models.Feedback) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f.ID = bson.NewObjectID()
	f.CreatedAt = time.Now().UTC()
	r.db.Feedback = append(r.db.Feedback, *f)
	return nil
}
