package http

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"finagent-go/internal/apperr"
	"finagent-go/internal/catalog"
	"finagent-go/internal/feed"
	"finagent-go/internal/models"
)

// GET /products/savings?type=deposit|savings
func (s *Server) listSavings(c *gin.Context) {
	var f catalog.Filter
	if t := c.Query("type"); t != "" {
		f.Type = models.ProductType(t)
		if !f.Type.Valid() {
			s.respondError(c, fmt.Errorf("%w: type must be deposit or savings", apperr.ErrInvalidInput))
			return
		}
	}

	products, err := s.Catalog.ListSavings(c.Request.Context(), f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(200, products)
}

func (s *Server) getSavings(c *gin.Context) {
	p, err := s.Catalog.GetSavingsByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(200, p)
}

func (s *Server) listLoans(c *gin.Context) {
	products, err := s.Catalog.ListLoans(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(200, products)
}

// syncKind runs one feed reconciliation. The run outlives a disconnecting
// client so a half-finished sync is never abandoned mid-phase.
func (s *Server) syncKind(kind feed.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.Reconciler.Sync(context.WithoutCancel(c.Request.Context()), kind)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(200, res)
	}
}

func (s *Server) syncAll(c *gin.Context) {
	results, err := s.Reconciler.SyncAll(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error(), "results": results})
		return
	}
	c.JSON(200, gin.H{"results": results})
}

func (s *Server) deleteSavings(c *gin.Context) {
	if err := s.Catalog.DeleteSavingsProduct(c.Request.Context(), c.Param("code")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(204)
}

func (s *Server) deleteLoan(c *gin.Context) {
	if err := s.Catalog.DeleteLoanProduct(c.Request.Context(), c.Param("code")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(204)
}
