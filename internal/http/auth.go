package http

import (
	"github.com/gin-gonic/gin"

	"finagent-go/internal/auth"
	"finagent-go/internal/models"
)

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// POST /auth/register
func (s *Server) authRegister(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required,max=150"`
		Password string `json:"password" binding:"required,min=8"`
		Email    string `json:"email" binding:"omitempty,email"`
		Age      *int   `json:"age" binding:"omitempty,gte=0,lte=150"`
		Money    *int64 `json:"money"`
		Salary   *int64 `json:"salary" binding:"omitempty,gte=0"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	user, token, err := s.Auth.Register(c.Request.Context(), auth.Registration{
		Username: input.Username,
		Password: input.Password,
		Email:    input.Email,
		Age:      input.Age,
		Money:    input.Money,
		Salary:   input.Salary,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(201, AuthResponse{Token: token, User: user})
}

// POST /auth/login
func (s *Server) authLogin(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	user, token, err := s.Auth.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(200, AuthResponse{Token: token, User: user})
}
