// Package api holds helpers shared by the front and admin route groups.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/ai"
	"github.com/priointimate/PrioBusiness/internal/ledger"
	log "github.com/sirupsen/logrus"
)

// WriteError maps ledger and AI errors onto HTTP responses.
func WriteError(c *gin.Context, err error) {
	var validation *ledger.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.Is(err, ledger.ErrInsufficientCredits):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient credits"})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ledger.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, ledger.ErrExternalService), errors.Is(err, ai.ErrGenerationFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "service unavailable, try again later"})
	default:
		_ = c.Error(err)
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// ParseID reads a positive numeric path parameter.
func ParseID(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// BearerToken extracts the token from the Authorization header. EventSource
// clients cannot set headers, so a token query parameter is accepted too.
func BearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	token := strings.TrimSpace(c.Query("token"))
	return token, token != ""
}

// Page holds limit/offset pagination parsed from the query string.
type Page struct {
	Limit  int
	Offset int
}

// Pagination parses page and page_size with bounds.
func Pagination(c *gin.Context) Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 50
	}
	return Page{Limit: size, Offset: (page - 1) * size}
}
