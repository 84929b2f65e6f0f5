package service

import (
	"context"
	"errors"
	"testing"

	"harfzaar/internal/models"
	"harfzaar/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type poetFixture struct {
	svc     *PoetService
	poets   *poetRepoStub
	pending *pendingRepoStub
	ghazals *ghazalRepoStub
	users   *userRepoStub
	store   *testutil.MemoryStore
	user    *models.User
}

func newPoetFixture(t *testing.T) *poetFixture {
	t.Helper()
	withoutRedis(t)
	f := &poetFixture{
		poets:   newPoetRepoStub(),
		pending: &pendingRepoStub{},
		ghazals: &ghazalRepoStub{},
		store:   testutil.NewMemoryStore(),
		user:    &models.User{ID: bson.NewObjectID(), Username: "parveen", Role: models.RoleUser},
	}
	f.users = newUserRepoStub(f.user)
	f.svc = NewPoetService(f.poets, f.pending, f.ghazals, f.users, NewUploader(f.store, 0))
	return f
}

func (f *poetFixture) submission(t *testing.T) PoetSubmission {
	return PoetSubmission{
		UserID:        f.user.ID,
		PoetName:      "  parveen-shakir ",
		PoetryDomain:  "ghazal",
		PoetryTitle:   "Khushboo",
		PoetryContent: "woh to khushboo hai hawaon mein bikhar jaayega",
		Genre:         "Romantic",
		Biography:     "Poet of Khushboo.",
		Couplet:       "kaise keh doon ke mujhe chhod diya hai us ne",
		Image:         testutil.PNGDataURL(t, 32, 16),
	}
}

func TestPoetService_Submit(t *testing.T) {
	f := newPoetFixture(t)

	poet, err := f.svc.Submit(context.Background(), f.submission(t))
	require.NoError(t, err)
	assert.Equal(t, "parveen-shakir", poet.Name)
	require.Len(t, poet.Ghazals, 1)
	assert.Equal(t, models.RolePoet, f.users.get(f.user.ID).Role)

	require.Equal(t, 1, f.store.Len())
	for key, ct := range f.store.Types {
		assert.Equal(t, "image/webp", ct)
		assert.Equal(t, "https://cdn.test/"+key, poet.Image)
	}
	assert.Empty(t, f.store.Deleted)

	_, err = f.svc.Submit(context.Background(), f.submission(t))
	require.Error(t, err)
	assert.Equal(t, "User is already a poet", err.Error())
}

func TestPoetService_Submit_NameClashRollsBack(t *testing.T) {
	f := newPoetFixture(t)
	require.NoError(t, f.poets.Create(context.Background(), &models.Poet{Name: "parveen-shakir"}))
	f.ghazals.createFn = func(context.Context, *models.Ghazal) error {
		t.Fatal("ghazal must not be created")
		return nil
	}

	_, err := f.svc.Submit(context.Background(), f.submission(t))
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, appCode(t, err))
	assert.Equal(t, 0, f.store.Len())
	assert.Len(t, f.store.Deleted, 1)
}

func TestPoetService_Submit_RoleFailureRollsBack(t *testing.T) {
	f := newPoetFixture(t)
	var deletedGhazal bson.ObjectID
	f.ghazals.deleteFn = func(_ context.Context, id bson.ObjectID) error {
		deletedGhazal = id
		return nil
	}
	f.users.setRoleFn = func(context.Context, bson.ObjectID, string) error {
		return models.NewInternalError(errors.New("write conflict"))
	}

	_, err := f.svc.Submit(context.Background(), f.submission(t))
	require.Error(t, err)
	assert.False(t, deletedGhazal.IsZero())
	assert.Len(t, f.poets.deleted, 1)
	assert.Equal(t, 0, f.store.Len())

	exists, _ := f.poets.ExistsByName(context.Background(), "parveen-shakir")
	assert.False(t, exists)
}

func TestPoetService_Submit_Validation(t *testing.T) {
	f := newPoetFixture(t)

	in := f.submission(t)
	in.Couplet = " "
	_, err := f.svc.Submit(context.Background(), in)
	assert.Equal(t, "All fields are required", err.Error())

	in = f.submission(t)
	in.Image = "data:image/png;base64,!!!"
	_, err = f.svc.Submit(context.Background(), in)
	assert.Equal(t, "Invalid image format", err.Error())

	in = f.submission(t)
	in.UserID = bson.NewObjectID()
	_, err = f.svc.Submit(context.Background(), in)
	assert.Equal(t, models.CodeNotFound, appCode(t, err))

	assert.Equal(t, 0, f.store.Len())
}

func TestPoetService_BecomePoet(t *testing.T) {
	f := newPoetFixture(t)

	pending, err := f.svc.BecomePoet(context.Background(), f.submission(t))
	require.NoError(t, err)
	assert.Equal(t, "parveen-shakir", pending.PoetName)
	assert.Equal(t, f.user.ID, pending.UserID)
	assert.Len(t, f.pending.created, 1)
	assert.Equal(t, 1, f.store.Len())

	f.pending.err = models.NewInternalError(errors.New("down"))
	_, err = f.svc.BecomePoet(context.Background(), f.submission(t))
	require.Error(t, err)
	assert.Equal(t, 1, f.store.Len(), "failed submission must not leave its image behind")

	_, err = f.svc.BecomePoet(context.Background(), PoetSubmission{})
	assert.Equal(t, "All fields are required.", err.Error())
}

func TestPoetService_Profile(t *testing.T) {
	f := newPoetFixture(t)
	a, b := bson.NewObjectID(), bson.NewObjectID()
	require.NoError(t, f.poets.Create(context.Background(), &models.Poet{Name: "faiz", Ghazals: []bson.ObjectID{b, a}}))
	f.ghazals.getByIDsFn = func(context.Context, []bson.ObjectID) ([]models.Ghazal, error) {
		return []models.Ghazal{{ID: a, PoetryTitle: "A"}, {ID: b, PoetryTitle: "B"}}, nil
	}

	profile, err := f.svc.Profile(context.Background(), "faiz")
	require.NoError(t, err)
	require.Len(t, profile.Poetry, 2)
	assert.Equal(t, "B", profile.Poetry[0].PoetryTitle)
	assert.Equal(t, "A", profile.Poetry[1].PoetryTitle)

	_, err = f.svc.Profile(context.Background(), "nobody")
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
}
