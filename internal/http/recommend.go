package http

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"finagent-go/internal/ai"
	"finagent-go/internal/apperr"
)

type recommendRequest struct {
	Age     *int   `json:"age" binding:"omitempty,gte=0,lte=150"`
	Salary  *int64 `json:"salary" binding:"omitempty,gte=0"`
	Money   *int64 `json:"money"`
	Purpose string `json:"purpose" binding:"required"`
}

// POST /products/recommend
//
// Failures still answer with the fallback recommendation so clients can
// render an empty result.
func (s *Server) recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	user, _ := currentUser(c)
	profile := ai.Profile{Age: req.Age, Salary: req.Salary, Money: req.Money, Purpose: req.Purpose}.WithDefaults(user)

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout())
	defer cancel()

	rec, err := s.Recommender.Recommend(ctx, profile)
	switch {
	case err == nil:
		c.JSON(200, rec)
	case errors.Is(err, apperr.ErrInvalidInput):
		c.JSON(400, gin.H{"error": err.Error()})
	default:
		s.log.Warn("recommendation failed", "err", err, "request_id", c.GetString("requestID"))
		c.JSON(500, gin.H{"error": "recommendation_failed", "analysis": rec.Analysis, "products": rec.Products})
	}
}
