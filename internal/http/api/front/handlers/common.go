package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getUserID extracts the user ID set by the auth middleware.
func getUserID(c *gin.Context) uint64 {
	val, exists := c.Get("userID")
	if !exists {
		return 0
	}
	id, _ := val.(uint64)
	return id
}

// requireUser returns the caller's ID or writes 401.
func requireUser(c *gin.Context) (uint64, bool) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return userID, true
}
