package middleware

import (
	"github.com/gofiber/fiber/v2"

	"komentar/internal/domain"
	"komentar/internal/service/identity"
)

const (
	IdentityContextKey = "identity"
	DeviceIDHeader     = "X-Device-ID"
)

// ResolveIdentity attaches the viewer identity to every request. When the
// resolver mints a fresh anonymous device id, it is echoed back so the
// client can persist it and stay the same weak identity across visits.
func ResolveIdentity(identityService identity.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		viewer, deviceID := identityService.Resolve(c.Get(fiber.HeaderAuthorization), c.Get(DeviceIDHeader))
		c.Locals(IdentityContextKey, viewer)
		if !viewer.IsAuthenticated() {
			c.Set(DeviceIDHeader, deviceID)
		}
		return c.Next()
	}
}

func GetIdentity(c *fiber.Ctx) domain.Identity {
	viewer, ok := c.Locals(IdentityContextKey).(domain.Identity)
	if !ok {
		return domain.NewAnonymous("")
	}
	return viewer
}
