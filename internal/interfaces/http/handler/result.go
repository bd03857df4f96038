package handler

import (
	"github.com/gin-gonic/gin"

	"biocup-api/internal/application/diagnosis"
	"biocup-api/internal/interfaces/http/dto"
)

// ResultHandler serves stored result documents by id.
type ResultHandler struct {
	service *diagnosis.Service
}

func NewResultHandler(service *diagnosis.Service) *ResultHandler {
	return &ResultHandler{service: service}
}

// Get fetches one result document.
// GET /v1/results/:id
func (h *ResultHandler) Get(c *gin.Context) {
	result, err := h.service.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, dto.NewResultResponse(result))
}
