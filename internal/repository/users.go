package repository

import (
	"context"
	"errors"
	"time"

	"harfzaar/internal/database"
	"harfzaar/internal/models"
	"harfzaar/internal/observability"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UserRepository defines persistence operations for users.
// GetByEmail and GetByUsername return (nil, nil) when no user matches.
type UserRepository interface {
	GetByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetOTP(ctx context.Context, id bson.ObjectID, otp *models.OTP) error
	UpdatePassword(ctx context.Context, id bson.ObjectID, hash string) error
	SetRole(ctx context.Context, id bson.ObjectID, role string) error
	Touch(ctx context.Context, id bson.ObjectID, at time.Time) error
	SetOffline(ctx context.Context, id bson.ObjectID) error
	ListActiveExcept(ctx context.Context, id bson.ObjectID) ([]models.User, error)
	MarkIdle(ctx context.Context, before time.Time) (int64, error)
	AddFavorite(ctx context.Context, id, ghazalID bson.ObjectID) error
	RemoveFavorite(ctx context.Context, id, ghazalID bson.ObjectID) error
}

type userRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewUserRepository returns a UserRepository backed by coll.
func NewUserRepository(coll *mongo.Collection) UserRepository {
	return &userRepository{coll: coll, log: observability.NewRepoLogger(database.UsersCollection)}
}

func (r *userRepository) findOne(ctx context.Context, op string, filter bson.D) (u *models.User, err error) {
	ctx, end := begin(ctx, "find_one", database.UsersCollection)
	defer func() { end(err) }()

	var user models.User
	if err = r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, wrap(ctx, r.log, op, err)
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	user, err := r.findOne(ctx, "get_by_id", bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundMessage("User not found")
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "get_by_email", bson.D{{Key: "email", Value: email}})
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "get_by_username", bson.D{{Key: "username", Value: username}})
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, end := begin(ctx, "insert", database.UsersCollection)
	defer func() { end(err) }()

	now := time.Now().UTC()
	user.ID = bson.NewObjectID()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Favorites == nil {
		user.Favorites = []bson.ObjectID{}
	}
	if _, err = r.coll.InsertOne(ctx, user); err != nil {
		user.ID = bson.NilObjectID
		if mongo.IsDuplicateKeyError(err) {
			return models.NewConflictError("User already exists")
		}
		return wrap(ctx, r.log, "create", err)
	}
	r.log.LogWrite(ctx, "create", map[string]any{"user_id": user.ID.Hex()})
	return nil
}

// update applies a single $set/$unset document and reports a missing user as 404.
func (r *userRepository) update(ctx context.Context, op string, id bson.ObjectID, update bson.D) (err error) {
	ctx, end := begin(ctx, "update", database.UsersCollection)
	defer func() { end(err) }()

	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return wrap(ctx, r.log, op, err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundMessage("User not found")
	}
	return nil
}

func (r *userRepository) SetOTP(ctx context.Context, id bson.ObjectID, otp *models.OTP) error {
	now := time.Now().UTC()
	if otp == nil {
		return r.update(ctx, "clear_otp", id, bson.D{
			{Key: "$unset", Value: bson.D{{Key: "otp", Value: ""}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now}}},
		})
	}
	return r.update(ctx, "set_otp", id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "otp", Value: otp},
		{Key: "updatedAt", Value: now},
	}}})
}

// UpdatePassword stores an already hashed password and drops any pending OTP.
func (r *userRepository) UpdatePassword(ctx context.Context, id bson.ObjectID, hash string) error {
	err := r.update(ctx, "update_password", id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password", Value: hash},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}},
		{Key: "$unset", Value: bson.D{{Key: "otp", Value: ""}}},
	})
	if err == nil {
		r.log.LogWrite(ctx, "update_password", map[string]any{"user_id": id.Hex()})
	}
	return err
}

func (r *userRepository) SetRole(ctx context.Context, id bson.ObjectID, role string) error {
	return r.update(ctx, "set_role", id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "role", Value: role},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}})
}

func (r *userRepository) Touch(ctx context.Context, id bson.ObjectID, at time.Time) error {
	return r.update(ctx, "touch", id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "lastActivity", Value: at},
		{Key: "isActive", Value: true},
		{Key: "isOnline", Value: true},
	}}})
}

func (r *userRepository) SetOffline(ctx context.Context, id bson.ObjectID) error {
	return r.update(ctx, "set_offline", id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "isActive", Value: false},
		{Key: "isOnline", Value: false},
	}}})
}

func (r *userRepository) ListActiveExcept(ctx context.Context, id bson.ObjectID) (users []models.User, err error) {
	ctx, end := begin(ctx, "find", database.UsersCollection)
	defer func() { end(err) }()

	filter := bson.D{
		{Key: "_id", Value: bson.D{{Key: "$ne", Value: id}}},
		{Key: "isActive", Value: true},
	}
	opts := options.Find().
		SetProjection(bson.D{
			{Key: "username", Value: 1},
			{Key: "isOnline", Value: 1},
			{Key: "lastActivity", Value: 1},
		}).
		SetSort(bson.D{{Key: "lastActivity", Value: -1}})

	cur, err := r.coll.Find(ctx, filter, opts)
	users, err = findAll[models.User](ctx, cur, err)
	if err != nil {
		return nil, wrap(ctx, r.log, "list_active", err)
	}
	return users, nil
}

// MarkIdle clears isActive on users whose last activity is older than before.
func (r *userRepository) MarkIdle(ctx context.Context, before time.Time) (n int64, err error) {
	ctx, end := begin(ctx, "update_many", database.UsersCollection)
	defer func() { end(err) }()

	res, err := r.coll.UpdateMany(ctx,
		bson.D{
			{Key: "isActive", Value: true},
			{Key: "lastActivity", Value: bson.D{{Key: "$lt", Value: before}}},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "isActive", Value: false},
			{Key: "isOnline", Value: false},
		}}},
	)
	if err != nil {
		return 0, wrap(ctx, r.log, "mark_idle", err)
	}
	return res.ModifiedCount, nil
}

func (r *userRepository) AddFavorite(ctx context.Context, id, ghazalID bson.ObjectID) error {
	return r.update(ctx, "add_favorite", id, bson.D{{Key: "$addToSet", Value: bson.D{{Key: "favorites", Value: ghazalID}}}})
}

func (r *userRepository) RemoveFavorite(ctx context.Context, id, ghazalID bson.ObjectID) error {
	return r.update(ctx, "remove_favorite", id, bson.D{{Key: "$pull", Value: bson.D{{Key: "favorites", Value: ghazalID}}}})
}
