package http

import (
	"github.com/gin-gonic/gin"

	"finagent-go/internal/board"
)

func (s *Server) listArticles(c *gin.Context) {
	articles, err := s.Board.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(200, articles)
}

func (s *Server) getArticle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := s.Board.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(200, a)
}

func (s *Server) createArticle(c *gin.Context) {
	var d board.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	a, err := s.Board.Create(c.Request.Context(), c.GetUint("userID"), d)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(201, a)
}

func (s *Server) updateArticle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var d board.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	a, err := s.Board.Update(c.Request.Context(), c.GetUint("userID"), id, d)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(200, a)
}

func (s *Server) deleteArticle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.Board.Delete(c.Request.Context(), c.GetUint("userID"), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(204)
}
