package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/basecampy/authbackend/database"
	"github.com/basecampy/authbackend/models"
	"github.com/basecampy/authbackend/utils"
)

const userContextKey = "currentUser"

// AuthMiddleware is the session guard: it accepts the access token from the
// accessToken cookie or a Bearer Authorization header, verifies it and loads
// the user onto the request context.
func AuthMiddleware(store database.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("accessToken")
		if token == "" {
			header := c.GetHeader("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimPrefix(header, "Bearer ")
			}
		}
		if token == "" {
			utils.AbortError(c, utils.Unauthorized("unauthorized request"))
			return
		}

		claims, err := utils.ValidateToken(token, utils.AccessSecret())
		if err != nil {
			utils.AbortError(c, utils.Unauthorized("Invalid access token"))
			return
		}

		id, err := bson.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.AbortError(c, utils.Unauthorized("Invalid access token"))
			return
		}

		user, err := store.FindByID(c.Request.Context(), id)
		if err != nil {
			utils.AbortError(c, utils.Unauthorized("Invalid access token"))
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*models.User, bool) {
	val, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := val.(*models.User)
	return user, ok
}
