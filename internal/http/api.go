package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tasktracker/internal/auth"
	"tasktracker/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	tasks  service.TaskService
	guard  *auth.Guard
	logger *logrus.Logger
}

func NewHandler(users service.UserService, tasks service.TaskService, guard *auth.Guard, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:  users,
		tasks:  tasks,
		guard:  guard,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), requestIDMiddleware(), h.accessLogMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.POST("/register", h.register)
		api.POST("/login", h.login)

		protected := api.Group("", h.authMiddleware())
		protected.GET("/profile", h.getProfile)
		protected.PUT("/profile", h.updateProfile)
		protected.PUT("/profile/password", h.changePassword)

		protected.POST("/tasks", h.createTask)
		protected.GET("/tasks", h.listTasks)
		protected.GET("/tasks/:id", h.getTask)
		protected.PUT("/tasks/:id", h.updateTask)
		protected.PATCH("/tasks/:id", h.updateTask)
		protected.DELETE("/tasks/:id", h.deleteTask)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
