package server

import (
	"harfzaar/internal/models"
	"harfzaar/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateChatRoom handles POST /api/bc/room
// @Summary Open a two-person Bazm room
// @Description Returns the existing room (200) or creates it (201)
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{participants=[]string} true "Exactly two user ids"
// @Success 200 {object} models.Chat
// @Success 201 {object} models.Chat
// @Failure 400 {object} models.ErrorResponse
// @Router /bc/room [post]
func (s *Server) CreateChatRoom(c *fiber.Ctx) error {
	var req struct {
		Participants []string `json:"participants"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	chat, created, err := s.chatService.CreateRoom(c.UserContext(), req.Participants)
	if err != nil {
		return models.Respond(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(chat)
}

// GetChatHistory handles GET /api/bc/history/:roomId
// @Summary Room history
// @Description Returns the room with its messages ordered by seq and clears the caller's unread counter
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param roomId path string true "Room ID"
// @Success 200 {object} models.Chat
// @Failure 404 {object} models.ErrorResponse
// @Router /bc/history/{roomId} [get]
func (s *Server) GetChatHistory(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return models.Respond(c, err)
	}

	chat, err := s.chatService.History(c.UserContext(), c.Params("roomId"), userID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(chat)
}

// SaveChatMessage handles POST /api/bc/message
// @Summary Persist a Bazm message
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{roomId=string,content=string,fileUrl=string,fileName=string,fileType=string,duration=number} true "Message"
// @Success 200 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /bc/message [post]
func (s *Server) SaveChatMessage(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return models.Respond(c, err)
	}

	var req struct {
		RoomID   string  `json:"roomId"`
		Content  string  `json:"content"`
		FileURL  string  `json:"fileUrl"`
		FileName string  `json:"fileName"`
		FileType string  `json:"fileType"`
		Duration float64 `json:"duration"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	msg, err := s.chatService.SaveMessage(c.UserContext(), service.SaveMessageInput{
		RoomID:     req.RoomID,
		Sender:     user.ID,
		SenderName: user.Username,
		Content:    req.Content,
		FileURL:    req.FileURL,
		FileName:   req.FileName,
		FileType:   req.FileType,
		Duration:   req.Duration,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(msg)
}

// GetActiveUsers handles GET /api/bc/activeusers
// @Summary Active users with unread counts
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ActiveUser
// @Router /bc/activeusers [get]
func (s *Server) GetActiveUsers(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return models.Respond(c, err)
	}

	users, err := s.chatService.ActiveUsers(c.UserContext(), userID)
	if err != nil {
		return models.Respond(c, err)
	}
	if users == nil {
		users = []models.ActiveUser{}
	}
	return c.JSON(users)
}

// UploadChatFile handles POST /api/bc/upload
// @Summary Upload a voice note or document
// @Tags chat
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Audio, PDF or Word file (max 10MB)"
// @Success 200 {object} service.UploadResult
// @Failure 400 {object} models.ErrorResponse
// @Router /bc/upload [post]
func (s *Server) UploadChatFile(c *fiber.Ctx) error {
	name, contentType, data, ok, err := readFormFile(c, "file")
	if err != nil {
		return models.Respond(c, err)
	}
	if !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}

	res, err := s.uploader.Store(c.UserContext(), service.UploadInput{
		Filename:    name,
		ContentType: contentType,
		Data:        data,
		Policy:      service.ChatFilePolicy,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(res)
}
