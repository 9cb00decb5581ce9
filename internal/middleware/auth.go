package middleware

import (
	"net/http"
	"strings"
	"time"

	"groupfinder/internal/auth"
	"groupfinder/internal/authz"
	"groupfinder/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const CheckUserKey = "user"
const UnreadCountKey = "unread_count"
const TokenAuthKey = "token_auth"

// SessionUserKey is the session field holding the logged-in user's id.
const SessionUserKey = "user_id"

// CurrentUser returns the user LoadUser attached to the request, if any.
func CurrentUser(c *gin.Context) *models.User {
	if u, ok := c.Get(CheckUserKey); ok {
		if user, ok := u.(*models.User); ok {
			return user
		}
	}
	return nil
}

// LoadUser resolves the caller from a Bearer token or, failing that, from
// the session cookie. Unknown or banned accounts stay anonymous.
func LoadUser(db *gorm.DB, jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID interface{}

		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			claims, err := auth.ParseToken(jwtSecret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthorized"})
				return
			}
			userID = claims.UserID
			c.Set(TokenAuthKey, true)
		} else if _, ok := c.Get(sessions.DefaultKey); ok {
			userID = sessions.Default(c).Get(SessionUserKey)
		}

		if userID != nil {
			var user models.User
			result := db.WithContext(c.Request.Context()).First(&user, userID)
			if result.Error == nil && !user.IsBanned(time.Now()) {
				c.Set(CheckUserKey, &user)

				var count int64
				db.WithContext(c.Request.Context()).Model(&models.Notification{}).
					Where("user_id = ? AND is_read = ?", user.ID, false).Count(&count)
				c.Set(UnreadCountKey, count)
			}
		}
		c.Next()
	}
}

// AuthRequired rejects anonymous callers: JSON 401 under /api, a redirect
// to the login page elsewhere.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}
		if isAPI(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required", "code": "unauthorized"})
			return
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}

// AdminRequired lets through callers the authorizer grants capability to.
func AdminRequired(authorizer authz.Authorizer, capability authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			if isAPI(c) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required", "code": "unauthorized"})
				return
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		if !authorizer.Can(user, capability) {
			if isAPI(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required", "code": "forbidden"})
				return
			}
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

func isAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}
