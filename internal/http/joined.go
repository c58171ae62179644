package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finagent-go/internal/ledger"
	"finagent-go/internal/models"
)

type joinedPatchRequest struct {
	Amount         *int64           `json:"amount" binding:"omitempty,gte=0"`
	MonthlyPayment *int64           `json:"monthly_payment" binding:"omitempty,gte=0"`
	JoinedAt       *string          `json:"joined_at" binding:"omitempty,datetime=2006-01-02"`
	TermMonths     *int             `json:"term_months" binding:"omitempty,gt=0,lte=600"`
	Rate           *decimal.Decimal `json:"rate"`
	RateType       *string          `json:"rate_type" binding:"omitempty,oneof=S M"`
}

func (r joinedPatchRequest) patch() ledger.Patch {
	p := ledger.Patch{
		Amount:         r.Amount,
		MonthlyPayment: r.MonthlyPayment,
		TermMonths:     r.TermMonths,
		Rate:           r.Rate,
	}
	if r.JoinedAt != nil {
		// format already checked by binding
		t, _ := time.Parse(time.DateOnly, *r.JoinedAt)
		p.JoinedAt = &t
	}
	if r.RateType != nil {
		rt := models.RateType(*r.RateType)
		p.RateType = &rt
	}
	return p
}

// POST /products/:code/join
func (s *Server) joinProduct(c *gin.Context) {
	userID := c.GetUint("userID")
	sub, err := s.Ledger.Join(c.Request.Context(), userID, c.Param("code"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(201, sub)
}

func (s *Server) listJoined(c *gin.Context) {
	held, err := s.Ledger.ListForUser(c.Request.Context(), c.GetUint("userID"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(200, held)
}

// PUT /products/joined/:id
func (s *Server) updateJoined(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req joinedPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	sub, err := s.Ledger.Update(c.Request.Context(), c.GetUint("userID"), id, req.patch())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(200, sub)
}

// DELETE /products/joined/:id
func (s *Server) cancelJoined(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.Ledger.Cancel(c.Request.Context(), c.GetUint("userID"), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(204)
}
