package middleware

import (
	"errors"
	"restaurant_manager/helper"
	"restaurant_manager/notify"
	"restaurant_manager/utils"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const SessionHeader = "X-Session-Id"

// Protected lets a request through only with a valid staff token, from the access_token
// cookie or an Authorization bearer header.
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies("access_token")

		if token == "" {
			auth := c.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if token == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing token", errors.New("no token"))
		}

		jwtToken, err := helper.ParseToken(token)
		if err != nil || !jwtToken.Valid {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token", err)
		}

		c.Locals("user", jwtToken)
		return c.Next()
	}
}

// SessionRequired rejects customer requests that carry no session id. The id is stored
// as the "sessionId" local.
func SessionRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := strings.TrimSpace(c.Get(SessionHeader))
		if session == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing session", errors.New("no "+SessionHeader+" header"))
		}
		c.Locals("sessionId", session)
		return c.Next()
	}
}

// Locale puts the caller's language on the request context so notifications are
// rendered in it.
func Locale(def utils.LanguageType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lang := utils.ParseLanguage(c.Get(fiber.HeaderAcceptLanguage), def)
		c.SetUserContext(notify.WithLocale(c.UserContext(), string(lang)))
		return c.Next()
	}
}
