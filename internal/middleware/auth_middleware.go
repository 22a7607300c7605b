package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JWTClaims are issued by the campus account service; this service only
// verifies them.
type JWTClaims struct {
	UserID      string `json:"user_id"`
	IsDriver    bool   `json:"is_driver"`
	IsPassenger bool   `json:"is_passenger"`
	jwt.RegisteredClaims
}

// AuthRequired validates the bearer token and sets the caller's identity on
// the context.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("is_driver", claims.IsDriver)
		c.Set("is_passenger", claims.IsPassenger)

		c.Next()
	}
}

// DriverRequired ensures the caller holds the driver role.
func DriverRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		isDriver, exists := c.Get("is_driver")
		if !exists || isDriver != true {
			c.JSON(http.StatusForbidden, gin.H{"error": "Driver role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
