package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"harfzaar/internal/middleware"
	"harfzaar/internal/models"
	"harfzaar/internal/observability"
	"harfzaar/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const roomPrefix = "room_"

// RoomPublisher pushes an event to everyone connected to a room.
type RoomPublisher interface {
	PublishRoom(ctx context.Context, roomID, event string, payload any) error
}

// ChatService provides Bazm room and message logic.
type ChatService struct {
	chats     repository.ChatRepository
	users     repository.UserRepository
	publisher RoomPublisher
}

// NewChatService returns a ChatService. publisher may be nil.
func NewChatService(chats repository.ChatRepository, users repository.UserRepository, publisher RoomPublisher) *ChatService {
	return &ChatService{chats: chats, users: users, publisher: publisher}
}

// SaveMessageInput is a message posted over HTTP. Sender comes from the token.
type SaveMessageInput struct {
	RoomID     string
	Sender     bson.ObjectID
	SenderName string
	Content    string
	FileURL    string
	FileName   string
	FileType   string
	Duration   float64
}

// RoomID derives the room id for two participants. Argument order does not matter.
func RoomID(a, b string) string {
	ids := []string{a, b}
	slices.Sort(ids)
	return roomPrefix + strings.Join(ids, "_")
}

// roomMembers returns the participant ids encoded in roomID.
func roomMembers(roomID string) []string {
	rest, ok := strings.CutPrefix(roomID, roomPrefix)
	if !ok {
		return nil
	}
	return strings.Split(rest, "_")
}

func isRoomMember(roomID, userID string) bool {
	return slices.Contains(roomMembers(roomID), userID)
}

// CreateRoom returns the room for two users, creating it if needed. created
// reports whether this call inserted it.
func (s *ChatService) CreateRoom(ctx context.Context, participants []string) (chat *models.Chat, created bool, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ChatService", "CreateRoom")
	defer func() { observability.EndSpan(span, err) }()

	if len(participants) != 2 || participants[0] == participants[1] {
		return nil, false, models.NewValidationError("Invalid participants data")
	}
	ids := make([]bson.ObjectID, 0, 2)
	for _, p := range participants {
		id, err := bson.ObjectIDFromHex(p)
		if err != nil {
			return nil, false, models.NewValidationError("Invalid participants data")
		}
		if _, err := s.users.GetByID(ctx, id); err != nil {
			if models.IsNotFound(err) {
				return nil, false, models.NewValidationError("One or more participants not found")
			}
			return nil, false, err
		}
		ids = append(ids, id)
	}

	roomID := RoomID(participants[0], participants[1])
	existing, err := s.chats.GetByRoomID(ctx, roomID)
	if err == nil {
		return existing, false, nil
	}
	if !models.IsNotFound(err) {
		return nil, false, err
	}

	chat = &models.Chat{RoomID: roomID, Participants: ids}
	if err := s.chats.Create(ctx, chat); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeConflict {
			// Lost the race to a concurrent create; the room exists now.
			existing, err := s.chats.GetByRoomID(ctx, roomID)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return chat, true, nil
}

// History returns the room with messages in seq order and clears the caller's unread count.
func (s *ChatService) History(ctx context.Context, roomID string, userID bson.ObjectID) (chat *models.Chat, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ChatService", "History")
	defer func() { observability.EndSpan(span, err) }()

	if !isRoomMember(roomID, userID.Hex()) {
		if _, err := s.chats.GetByRoomID(ctx, roomID); err != nil {
			return nil, err
		}
		return nil, models.NewForbiddenError("Not a participant of this room")
	}

	chat, err = s.chats.ResetUnread(ctx, roomID, userID.Hex())
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(chat.Messages, func(a, b models.Message) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	return chat, nil
}

// SaveMessage appends a message, assigns its seq and notifies the room.
func (s *ChatService) SaveMessage(ctx context.Context, in SaveMessageInput) (msg *models.Message, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ChatService", "SaveMessage")
	defer func() { observability.EndSpan(span, err) }()

	in.Content = strings.TrimSpace(in.Content)
	if in.RoomID == "" {
		return nil, models.NewValidationError("Room id is required")
	}
	if in.Content == "" && in.FileURL == "" {
		return nil, models.NewValidationError("Message content is required")
	}
	sender := in.Sender.Hex()
	if !isRoomMember(in.RoomID, sender) {
		if _, err := s.chats.GetByRoomID(ctx, in.RoomID); err != nil {
			return nil, err
		}
		return nil, models.NewForbiddenError("Not a participant of this room")
	}

	recipients := make([]string, 0, 1)
	for _, id := range roomMembers(in.RoomID) {
		if id != sender {
			recipients = append(recipients, id)
		}
	}

	m := models.Message{
		Sender:    in.Sender,
		Content:   in.Content,
		Timestamp: time.Now().UTC(),
	}
	if in.FileURL != "" {
		m.FileURL, m.FileName, m.FileType, m.Duration = in.FileURL, in.FileName, in.FileType, in.Duration
	}

	msg, err = s.chats.AppendMessage(ctx, in.RoomID, m, recipients)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		payload := map[string]any{
			"room":       in.RoomID,
			"seq":        msg.Seq,
			"sender":     sender,
			"senderName": in.SenderName,
			"content":    msg.Content,
			"timestamp":  msg.Timestamp,
			"fileUrl":    msg.FileURL,
			"fileName":   msg.FileName,
			"fileType":   msg.FileType,
			"unread":     true,
		}
		if err := s.publisher.PublishRoom(ctx, in.RoomID, "receive_message", payload); err != nil {
			// Delivery is best effort; the message is already stored.
			middleware.Logger.WarnContext(ctx, "publish chat message failed", "room_id", in.RoomID, "error", err)
		}
	}
	return msg, nil
}

// ActiveUsers marks the caller active and lists the other active users with
// the caller's unread count in the room shared with each.
func (s *ChatService) ActiveUsers(ctx context.Context, userID bson.ObjectID) (out []models.ActiveUser, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ChatService", "ActiveUsers")
	defer func() { observability.EndSpan(span, err) }()

	if err := s.users.Touch(ctx, userID, time.Now().UTC()); err != nil {
		return nil, err
	}
	users, err := s.users.ListActiveExcept(ctx, userID)
	if err != nil {
		return nil, err
	}
	chats, err := s.chats.ListForParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	me := userID.Hex()
	unread := make(map[bson.ObjectID]int, len(chats))
	for _, c := range chats {
		for _, p := range c.Participants {
			if p != userID {
				unread[p] = c.UnreadCounts[me]
			}
		}
	}

	out = make([]models.ActiveUser, 0, len(users))
	for _, u := range users {
		out = append(out, models.ActiveUser{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			IsActive:     u.IsActive,
			IsOnline:     u.IsOnline,
			LastActivity: u.LastActivity,
			UnreadCount:  unread[u.ID],
		})
	}
	return out, nil
}
