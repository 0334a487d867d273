package api

import (
	v1 "github.com/andariego/andariego/internal/api/v1"
	"github.com/andariego/andariego/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Billing *v1.BillingHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler())

	// v1 routes
	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	billing := router.Group("/billing")
	{
		billing.POST("/anchor-runs", handlers.Billing.RunAnchor)
	}
}
