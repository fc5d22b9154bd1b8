package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/embedlab/internal/model"
	"github.com/xxxsen/embedlab/internal/pkg/response"
	"github.com/xxxsen/embedlab/internal/service"
)

type QueryHandler struct {
	queries *service.QueryService
}

func NewQueryHandler(queries *service.QueryService) *QueryHandler {
	return &QueryHandler{queries: queries}
}

type queryRequest struct {
	Content      string `json:"content"`
	CollectionID string `json:"collection_id"`
	TopK         int    `json:"top_k"`
}

type queryResponse struct {
	Results []model.Result `json:"results"`
}

func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if req.TopK < 0 {
		badRequest(c, "top_k must not be negative")
		return
	}
	results, err := h.queries.Query(c.Request.Context(), model.Query{
		Content:      req.Content,
		CollectionID: req.CollectionID,
	}, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	if results == nil {
		results = []model.Result{}
	}
	response.Success(c, queryResponse{Results: results})
}
