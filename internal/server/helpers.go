package server

import (
	"errors"
	"io"

	"harfzaar/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// currentUserID returns the authenticated user's id set by AuthRequired.
func currentUserID(c *fiber.Ctx) (bson.ObjectID, error) {
	hex, ok := c.Locals(localUserID).(string)
	if !ok || hex == "" {
		return bson.NilObjectID, models.NewUnauthorizedError("Not authorized")
	}
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return bson.NilObjectID, models.NewUnauthorizedError("Not authorized")
	}
	return id, nil
}

// currentUser returns the user loaded by AuthRequired.
func currentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals(localUser).(*models.User)
	if !ok || user == nil {
		return nil, models.NewUnauthorizedError("Not authorized")
	}
	return user, nil
}

// bindJSON parses the request body into dst. On failure it writes a 400 and
// returns errResponseWritten.
func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// readFormFile loads a multipart field fully into memory.
// ok is false when the field is absent.
func readFormFile(c *fiber.Ctx, field string) (name, contentType string, data []byte, ok bool, err error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", "", nil, false, nil
	}
	f, err := fh.Open()
	if err != nil {
		return "", "", nil, false, models.NewInternalError(err)
	}
	defer func() { _ = f.Close() }()

	data, err = io.ReadAll(f)
	if err != nil {
		return "", "", nil, false, models.NewInternalError(err)
	}
	return fh.Filename, fh.Header.Get("Content-Type"), data, true, nil
}
