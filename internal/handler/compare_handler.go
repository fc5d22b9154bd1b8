package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/embedlab/internal/model"
	"github.com/xxxsen/embedlab/internal/pkg/response"
	"github.com/xxxsen/embedlab/internal/service"
)

type CompareHandler struct {
	compare *service.CompareService
}

func NewCompareHandler(compare *service.CompareService) *CompareHandler {
	return &CompareHandler{compare: compare}
}

type compareRequest struct {
	Query string `json:"query"`
}

type compareEntry struct {
	Items []model.Output `json:"items"`
	Error string         `json:"error,omitempty"`
	Code  int            `json:"code,omitempty"`
}

type compareResponse struct {
	Results map[model.EmbeddingModel]compareEntry `json:"results"`
	Order   []model.EmbeddingModel                `json:"order"`
}

// Compare answers with one entry per catalogue model. A model that
// failed carries its error instead of items.
func (h *CompareHandler) Compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		badRequest(c, "query is required")
		return
	}
	outcomes, err := h.compare.Compare(c.Request.Context(), req.Query)
	if err != nil {
		handleError(c, err)
		return
	}
	resp := compareResponse{
		Results: make(map[model.EmbeddingModel]compareEntry, len(outcomes)),
		Order:   make([]model.EmbeddingModel, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		items := o.Items
		if items == nil {
			items = []model.Output{}
		}
		resp.Results[o.Model] = compareEntry{Items: items, Error: o.Error, Code: o.Code}
		resp.Order = append(resp.Order, o.Model)
	}
	response.Success(c, resp)
}

type seedRequest struct {
	Text string `json:"text"`
}

func (h *CompareHandler) Seed(c *gin.Context) {
	var req seedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(c, "text is required")
		return
	}
	outcomes, err := h.compare.Seed(c.Request.Context(), req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Items(c, outcomes)
}
