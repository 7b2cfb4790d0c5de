package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter assembles the API routes. Auth endpoints are public; everything
// else requires a bearer token.
func NewRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "duochat server is running!")
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/auth/signup", h.Signup)
		apiGroup.POST("/auth/login", h.Login)
		apiGroup.POST("/auth/google", h.GoogleLogin)

		authed := apiGroup.Group("", requireAuth(h.issuer))
		{
			authed.GET("/users", h.ListUsers)
			authed.POST("/sessions", h.CreateSession)
			authed.GET("/sessions/:id/messages", h.ListMessages)
			authed.POST("/sessions/:id/messages", h.CreateMessage)
		}
	}

	return r
}
