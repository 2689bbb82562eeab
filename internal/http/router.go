package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	TaskHandler    *TaskHandler
	CircuitHandler *CircuitHandler
	CORSOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	tasks := router.Group("/tasks")
	{
		tasks.POST("", cfg.TaskHandler.CreateTask)
		tasks.GET("", cfg.TaskHandler.ListTasks)
		tasks.GET("/:id", cfg.TaskHandler.GetTask)
		tasks.POST("/:id/cancel", cfg.TaskHandler.CancelTask)
		tasks.POST("/:id/retry", cfg.TaskHandler.RetryTask)
		tasks.POST("/:id/accept", cfg.TaskHandler.AcceptTask)
		tasks.POST("/:id/revert", cfg.TaskHandler.RevertTask)
	}

	circuits := router.Group("/health/circuits")
	{
		circuits.GET("", cfg.CircuitHandler.ListCircuits)
		circuits.GET("/:name", cfg.CircuitHandler.GetCircuit)
		circuits.POST("/:name/reset", cfg.CircuitHandler.ResetCircuit)
	}

	return router
}
