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

// ErrChatNotFound is returned when no chat has the requested room id.
var ErrChatNotFound = models.NewNotFoundMessage("Chat room not found")

// ChatRepository defines persistence operations for Bazm rooms.
type ChatRepository interface {
	GetByRoomID(ctx context.Context, roomID string) (*models.Chat, error)
	Create(ctx context.Context, chat *models.Chat) error
	// ResetUnread zeroes userID's unread counter and returns the updated room.
	ResetUnread(ctx context.Context, roomID, userID string) (*models.Chat, error)
	// AppendMessage stores msg with the next room sequence and bumps the unread
	// counter of every id in recipients. It returns msg with Seq filled in.
	AppendMessage(ctx context.Context, roomID string, msg models.Message, recipients []string) (*models.Message, error)
	// ListForParticipant returns the caller's rooms without their messages.
	ListForParticipant(ctx context.Context, userID bson.ObjectID) ([]models.Chat, error)
}

type chatRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewChatRepository returns a ChatRepository backed by coll.
func NewChatRepository(coll *mongo.Collection) ChatRepository {
	return &chatRepository{coll: coll, log: observability.NewRepoLogger(database.ChatsCollection)}
}

func (r *chatRepository) GetByRoomID(ctx context.Context, roomID string) (chat *models.Chat, err error) {
	ctx, end := begin(ctx, "find_one", database.ChatsCollection)
	defer func() { end(err) }()

	var out models.Chat
	if err = r.coll.FindOne(ctx, bson.D{{Key: "roomId", Value: roomID}}).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrChatNotFound
		}
		return nil, wrap(ctx, r.log, "get_by_room_id", err)
	}
	return &out, nil
}

// Create inserts a new room. A concurrent insert of the same room id yields a conflict error.
func (r *chatRepository) Create(ctx context.Context, chat *models.Chat) (err error) {
	ctx, end := begin(ctx, "insert", database.ChatsCollection)
	defer func() { end(err) }()

	now := time.Now().UTC()
	chat.ID = bson.NewObjectID()
	chat.CreatedAt, chat.UpdatedAt = now, now
	if chat.LastActivity.IsZero() {
		chat.LastActivity = now
	}
	if chat.Messages == nil {
		chat.Messages = []models.Message{}
	}
	if chat.UnreadCounts == nil {
		chat.UnreadCounts = map[string]int{}
	}
	if _, err = r.coll.InsertOne(ctx, chat); err != nil {
		chat.ID = bson.NilObjectID
		if mongo.IsDuplicateKeyError(err) {
			return models.NewConflictError("Chat already exists")
		}
		return wrap(ctx, r.log, "create", err)
	}
	r.log.LogWrite(ctx, "create", map[string]any{"room_id": chat.RoomID})
	return nil
}

func (r *chatRepository) ResetUnread(ctx context.Context, roomID, userID string) (chat *models.Chat, err error) {
	ctx, end := begin(ctx, "find_one_and_update", database.ChatsCollection)
	defer func() { end(err) }()

	update := bson.D{{Key: "$set", Value: bson.D{{Key: "unreadCounts." + userID, Value: 0}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out models.Chat
	err = r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "roomId", Value: roomID}}, update, opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrChatNotFound
		}
		return nil, wrap(ctx, r.log, "reset_unread", err)
	}
	return &out, nil
}

// appendPipeline builds the single-stage update that derives the message seq
// from the stored counter. All field references see pre-update values.
func appendPipeline(msg models.Message, recipients []string, now time.Time) mongo.Pipeline {
	nextSeq := bson.D{{Key: "$add", Value: bson.A{
		bson.D{{Key: "$ifNull", Value: bson.A{"$nextSeq", 0}}},
		1,
	}}}

	stored := bson.D{{Key: "$mergeObjects", Value: bson.A{
		bson.D{{Key: "$literal", Value: msg}},
		bson.D{{Key: "seq", Value: nextSeq}},
	}}}

	set := bson.D{
		{Key: "nextSeq", Value: nextSeq},
		{Key: "messages", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$messages", bson.A{}}}},
			bson.A{stored},
		}}}},
		{Key: "lastActivity", Value: now},
		{Key: "updatedAt", Value: now},
	}
	for _, id := range recipients {
		field := "unreadCounts." + id
		set = append(set, bson.E{Key: field, Value: bson.D{{Key: "$add", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, 0}}},
			1,
		}}}})
	}

	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}

func (r *chatRepository) AppendMessage(ctx context.Context, roomID string, msg models.Message, recipients []string) (saved *models.Message, err error) {
	ctx, end := begin(ctx, "find_one_and_update", database.ChatsCollection)
	defer func() { end(err) }()

	now := time.Now().UTC()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "nextSeq", Value: 1}})

	var out struct {
		NextSeq int64 `bson:"nextSeq"`
	}
	err = r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "roomId", Value: roomID}}, appendPipeline(msg, recipients, now), opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrChatNotFound
		}
		return nil, wrap(ctx, r.log, "append_message", err)
	}

	msg.Seq = out.NextSeq
	r.log.LogWrite(ctx, "append_message", map[string]any{"room_id": roomID, "seq": msg.Seq})
	return &msg, nil
}

func (r *chatRepository) ListForParticipant(ctx context.Context, userID bson.ObjectID) (chats []models.Chat, err error) {
	ctx, end := begin(ctx, "find", database.ChatsCollection)
	defer func() { end(err) }()

	opts := options.Find().SetProjection(bson.D{{Key: "messages", Value: 0}})
	cur, err := r.coll.Find(ctx, bson.D{{Key: "participants", Value: userID}}, opts)
	chats, err = findAll[models.Chat](ctx, cur, err)
	if err != nil {
		return nil, wrap(ctx, r.log, "list_for_participant", err)
	}
	return chats, nil
}
