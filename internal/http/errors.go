package http

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"finagent-go/internal/apperr"
)

// respondError writes the status for err's class with an {"error": ...}
// body. Unclassified errors are logged and hidden behind a generic message.
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(404, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrAlreadyJoined), errors.Is(err, apperr.ErrInvalidInput):
		c.JSON(400, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(409, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(403, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrUnauthorized):
		c.JSON(401, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrUpstreamFetch), errors.Is(err, apperr.ErrRecommendationParse):
		c.JSON(500, gin.H{"error": err.Error()})
	default:
		s.log.Error("unhandled error", "err", err, "path", c.Request.URL.Path, "request_id", c.GetString("requestID"))
		c.JSON(500, gin.H{"error": "internal_error"})
	}
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(400, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return uint(id), true
}
