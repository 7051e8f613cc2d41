package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTMiddleware verifies the session token issued by the identity provider
// and puts user_id and role on the request context. Tokens are HS256 signed
// with JWT_SECRET.
func JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization header"})
		}

		userID, role, err := ParseSessionToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}

		c.Set("user_id", userID)
		c.Set("role", role)
		return next(c)
	}
}

// ParseSessionToken validates an HS256 session token and extracts the subject
// id and role claim. The identity provider puts the stable user id in "sub".
func ParseSessionToken(tokenStr string) (userID, role string, err error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", errors.New("invalid token claims")
	}

	userID, _ = claims["sub"].(string)
	if userID == "" {
		// Older tokens carried the id under user_id
		userID, _ = claims["user_id"].(string)
	}
	if userID == "" {
		return "", "", errors.New("token has no subject")
	}
	role, _ = claims["role"].(string)
	return userID, role, nil
}
