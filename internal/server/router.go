package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "github.com/yungbote/enroltrack-backend/internal/handlers"
  "github.com/yungbote/enroltrack-backend/internal/middleware"
)

type RouterConfig struct {
  AuthMiddleware   *middleware.AuthMiddleware
  EnrolmentHandler *handlers.EnrolmentHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  router.GET("/healthcheck", handlers.HealthCheck)

  protected := router.Group("/")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  // Enrolments
  protected.POST("/enrolments", cfg.EnrolmentHandler.Create)
  protected.POST("/enrolments/bulk", cfg.EnrolmentHandler.BulkCreate)
  protected.POST("/enrolments/re-enrol", cfg.EnrolmentHandler.ReEnrol)
  protected.GET("/enrolments/history", cfg.EnrolmentHandler.History)
  protected.GET("/enrolments/:id", cfg.EnrolmentHandler.Get)
  protected.PATCH("/enrolments/:id", cfg.EnrolmentHandler.Update)
  protected.DELETE("/enrolments/:id", cfg.EnrolmentHandler.Archive)

  return router
}
