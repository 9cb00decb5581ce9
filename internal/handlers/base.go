package handlers

import (
	"errors"
	"net/http"
	"strings"

	"groupfinder/internal/middleware"
	"groupfinder/internal/models"
	"groupfinder/internal/services"
	"groupfinder/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
		if count, ok := c.Get(middleware.UnreadCountKey); ok {
			obj["UnreadCount"] = int(count.(int64))
		} else {
			obj["UnreadCount"] = 0
		}
	}
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// HTMX Redirect helper
func HtmxRedirect(c *gin.Context, path string) {
	c.Header("HX-Redirect", path)
	c.Status(http.StatusOK)
}

func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message})
}

// statusOf maps a service error to its HTTP status.
func statusOf(err error) int {
	switch {
	case services.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrUserRestricted):
		return http.StatusForbidden
	case services.Code(err) == "unauthorized":
		return http.StatusUnauthorized
	case services.Code(err) == "not_found":
		return http.StatusNotFound
	case services.Code(err) == "conflict":
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes the JSON error body for err. Internal errors are
// logged with the request and answered with a generic message.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("client_ip", c.ClientIP()),
			zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal server error", "code": "internal_error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg(err), "code": services.Code(err)})
}

func badRequest(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message, "code": code})
}

// idParam parses a numeric path parameter; it answers 404 itself when the
// value is not an id.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found", "code": "not_found"})
		return 0, false
	}
	return id, true
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func msg(err error) string {
	if err == nil {
		return ""
	}
	s := strings.ReplaceAll(err.Error(), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
