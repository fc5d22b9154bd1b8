package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/embedlab/internal/model"
	"github.com/xxxsen/embedlab/internal/pkg/response"
)

type ModelHandler struct{}

func NewModelHandler() *ModelHandler {
	return &ModelHandler{}
}

type modelsResponse struct {
	Items            []model.ModelInfo       `json:"items"`
	RetrievalMethods []model.RetrievalMethod `json:"retrieval_methods"`
}

func (h *ModelHandler) List(c *gin.Context) {
	response.Success(c, modelsResponse{
		Items: model.SupportedModels(),
		RetrievalMethods: []model.RetrievalMethod{
			model.RetrievalMethodSimilarity,
			model.RetrievalMethodHyde,
			model.RetrievalMethodChunkSummarization,
		},
	})
}
