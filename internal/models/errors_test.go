package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewNotFoundMessage("gone"), fiber.StatusNotFound},
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewUnauthorizedError("who"), fiber.StatusUnauthorized},
		{NewForbiddenError("no"), fiber.StatusForbidden},
		{NewConflictError("dup"), fiber.StatusConflict},
		{NewUnavailableError("off"), fiber.StatusServiceUnavailable},
		{NewInternalError(errors.New("boom")), fiber.StatusInternalServerError},
		{errors.New("plain"), fiber.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NewValidationError("bad")), fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestRespondWithError_HidesInternalCause(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return Respond(c, NewInternalMessage("Server Not Responding", errors.New("mongo: connection refused")))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Server Not Responding", body["error"])
	assert.Equal(t, "Server Not Responding", body["message"])
	assert.NotContains(t, body["error"], "mongo")
}

func TestRespondWithError_PlainErrorOn500(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusInternalServerError, errors.New("secret detail"))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Internal server error", body["error"])
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("Chat", "room_a_b")))
	assert.False(t, IsNotFound(NewValidationError("x")))
	assert.False(t, IsNotFound(nil))
}

func TestChat_HasParticipant(t *testing.T) {
	a, b := bson.NewObjectID(), bson.NewObjectID()
	chat := &Chat{Participants: []bson.ObjectID{a, b}}
	assert.True(t, chat.HasParticipant(a))
	assert.False(t, chat.HasParticipant(bson.NewObjectID()))
}
