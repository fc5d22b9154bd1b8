package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/embedlab/internal/middleware"
)

type RouterDeps struct {
	Models         *ModelHandler
	Collections    *CollectionHandler
	Query          *QueryHandler
	Compare        *CompareHandler
	IngestSecret   []byte
	AllowAnonymous bool
	RateLimit      time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	ingestAuth := middleware.IngestAuth(deps.IngestSecret, deps.AllowAnonymous)
	limit := middleware.RateLimit(deps.RateLimit)

	api.GET("/models", deps.Models.List)

	api.GET("/collections", deps.Collections.List)
	api.GET("/collections/:id", deps.Collections.Get)
	api.GET("/collections/:id/source", deps.Collections.Source)
	api.POST("/collections", ingestAuth, deps.Collections.Create)

	api.POST("/query", limit, deps.Query.Query)
	api.POST("/compare", limit, deps.Compare.Compare)
	api.POST("/compare/collections", ingestAuth, deps.Compare.Seed)
}
