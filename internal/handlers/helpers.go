package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"habitvault/internal/repositories"
	"habitvault/internal/services"
)

// currentUser returns the authenticated user id set by the auth middleware.
func currentUser(c *gin.Context) (string, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return "", false
	}
	id, _ := v.(string)
	return id, id != ""
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := currentUser(c)
	if !ok {
		log.Printf("[auth][deny] no user in context path=%s", c.FullPath())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return userID, ok
}

// writeTaskError maps service errors onto status codes.
func writeTaskError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, repositories.ErrTaskNotFound):
		log.Printf("[task][%s][404] %v", op, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, services.ErrForbidden):
		log.Printf("[task][%s][deny] %v", op, err)
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, services.ErrInvalidTask), errors.Is(err, services.ErrInvalidSchedule):
		log.Printf("[task][%s][400] %v", op, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[task][%s][err] %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// queryBool parses an optional boolean query parameter.
func queryBool(c *gin.Context, key string) (*bool, bool) {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, false
	}
	return &b, true
}
