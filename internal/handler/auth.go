package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mileusna/useragent"
	"go.uber.org/zap"

	"smartcampus/internal/auth"
)

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=admin teacher student parent"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

func sessionJSON(s auth.Session) gin.H {
	return gin.H{
		"access":      s.Tokens.AccessToken,
		"refresh":     s.Tokens.RefreshToken,
		"expires_at":  s.Tokens.AccessExp.Unix(),
		"role":        s.Principal.Role,
		"username":    s.Principal.Username,
		"student_ids": s.Principal.StudentIDs,
	}
}

// Token exchanges credentials for an access and refresh token.
func (h *Handler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	s, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("login", append([]zap.Field{
		zap.String("username", s.Principal.Username),
		zap.String("role", s.Principal.Role),
		zap.String("ip", c.ClientIP()),
	}, clientFields(c.Request.UserAgent())...)...)
	c.JSON(http.StatusOK, sessionJSON(s))
}

// clientFields describes the browser or device behind a user agent string.
func clientFields(raw string) []zap.Field {
	if raw == "" {
		return nil
	}
	ua := useragent.Parse(raw)
	device := "desktop"
	switch {
	case ua.Bot:
		device = "bot"
	case ua.Mobile:
		device = "mobile"
	case ua.Tablet:
		device = "tablet"
	}
	return []zap.Field{
		zap.String("client", ua.Name),
		zap.String("client_version", ua.Version),
		zap.String("os", ua.OS),
		zap.String("device", device),
	}
}

// Refresh rotates a refresh token. The presented token cannot be reused.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	s, err := h.Auth.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionJSON(s))
}

func (h *Handler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.Auth.Logout(c.Request.Context(), req.Refresh); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateUser adds an admin, teacher or parent account.
func (h *Handler) CreateUser(c *gin.Context) {
	var req auth.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	u, err := h.Auth.CreateUser(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}
