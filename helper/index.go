package helper

import (
	"errors"
	"fmt"
	"restaurant_manager/config"
	"restaurant_manager/model"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrNoStaffToken = errors.New("request carries no staff token")

func jwtSecret() []byte {
	return []byte(config.Config("JWT_SECRET"))
}

func GenerateAccessToken(tokenClaim model.TokenClaim) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["username"] = tokenClaim.Username
	claims["accountId"] = tokenClaim.AccountId
	claims["exp"] = time.Now().Add(time.Hour * 12).Unix()

	return token.SignedString(jwtSecret())
}

func ParseToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret(), nil
	})
}

// GetStaffFromToken reads the claims middleware.Protected stored on the request.
func GetStaffFromToken(c *fiber.Ctx) (model.TokenClaim, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return model.TokenClaim{}, ErrNoStaffToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.TokenClaim{}, ErrNoStaffToken
	}
	var info model.TokenClaim
	if id, ok := claims["accountId"].(float64); ok {
		info.AccountId = uint(id)
	}
	info.Username, _ = claims["username"].(string)
	return info, nil
}
