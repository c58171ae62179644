package http

import (
	"github.com/gin-gonic/gin"

	"finagent-go/internal/users"
)

// GET /profile
func (s *Server) getProfile(c *gin.Context) {
	userID := c.GetUint("userID")
	user, err := s.Users.Get(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	held, err := s.Ledger.ListForUser(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"user": user, "subscriptions": held})
}

// PUT /profile
func (s *Server) updateProfile(c *gin.Context) {
	var input struct {
		Email  *string `json:"email" binding:"omitempty,max=254"`
		Age    *int    `json:"age" binding:"omitempty,gte=0,lte=150"`
		Money  *int64  `json:"money"`
		Salary *int64  `json:"salary" binding:"omitempty,gte=0"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	user, err := s.Users.Update(c.Request.Context(), c.GetUint("userID"), users.ProfilePatch{
		Email:  input.Email,
		Age:    input.Age,
		Money:  input.Money,
		Salary: input.Salary,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(200, user)
}
