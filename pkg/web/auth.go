package web

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/dukex/mailflow/pkg/models"
)

const (
	// UserIDHeader and UserEmailHeader are set by the identity gateway in front of the API.
	UserIDHeader    = "X-User-ID"
	UserEmailHeader = "X-User-Email"

	ownerKey = "owner"
)

// Authenticate resolves the owner of the request or answers 401. Both headers
// are required: the owner's address is the sender of every email they schedule.
func Authenticate(c fiber.Ctx) error {
	id := strings.TrimSpace(c.Get(UserIDHeader))
	if id == "" {
		return unauthorized(c, "missing "+UserIDHeader+" header")
	}

	email := strings.TrimSpace(c.Get(UserEmailHeader))
	if email == "" {
		return unauthorized(c, "missing "+UserEmailHeader+" header")
	}

	c.Locals(ownerKey, models.Owner{ID: id, Email: email})

	return c.Next()
}

func ownerFrom(c fiber.Ctx) models.Owner {
	owner, _ := c.Locals(ownerKey).(models.Owner)

	return owner
}
