package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatdemo/chatdemo-go/internal/errs"
	"github.com/chatdemo/chatdemo-go/internal/routing"
)

type pageData struct {
	Title       string
	Action      string
	Placeholder string
	Question    string
	Backends    []routing.Model
	HasAnswer   bool
	Answer      string
	Error       string
}

func (s *Server) index(c *gin.Context) {
	name := c.Param("backend")
	e, ok := s.entry(name)
	if !ok {
		c.String(http.StatusNotFound, "unknown backend %q", name)
		return
	}
	data := pageData{
		Title:       s.cfg.Title,
		Action:      c.Request.URL.Path,
		Placeholder: placeholder,
		Question:    c.Query("question"),
		Backends:    s.router.Models(),
	}
	if data.Title == "" {
		data.Title = "Chat Demo with " + e.Label
	}
	if s.guards.Skip(data.Question) {
		c.HTML(http.StatusOK, "index.html", data)
		return
	}

	a, err := s.run(c.Request.Context(), c, e.Name, data.Question)
	if err != nil {
		data.Error = "Error: " + errs.Public(err)
		c.HTML(statusFor(err), "index.html", data)
		return
	}
	data.HasAnswer = true
	data.Answer = a.Text
	c.HTML(http.StatusOK, "index.html", data)
}

type askRequest struct {
	Question string `json:"question"`
	Backend  string `json:"backend"`
}

func (s *Server) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if s.guards.Skip(req.Question) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	e, ok := s.entry(req.Backend)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown backend"})
		return
	}
	a, err := s.run(c.Request.Context(), c, e.Name, req.Question)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": errs.Public(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"request_id": a.RequestID,
		"backend":    a.Backend,
		"model":      a.Model,
		"answer":     a.Text,
		"usage":      a.Usage,
	})
}

func (s *Server) listBackends(c *gin.Context) {
	d, _ := s.router.Default()
	c.JSON(http.StatusOK, gin.H{"default": d.Name, "backends": s.router.Models()})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": s.usage.Snapshot()})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
