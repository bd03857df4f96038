package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"biocup-api/internal/application/diagnosis"
	"biocup-api/internal/domain/entity"
	"biocup-api/internal/interfaces/http/dto"
)

// ReferenceHandler serves reference-case ingestion.
type ReferenceHandler struct {
	service *diagnosis.Service
}

func NewReferenceHandler(service *diagnosis.Service) *ReferenceHandler {
	return &ReferenceHandler{service: service}
}

// Create stores a resolved reference case and indexes it into the vector
// store.
// POST /v1/reference-cases
func (h *ReferenceHandler) Create(c *gin.Context) {
	var req dto.CreateReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	text := req.Text()
	if strings.TrimSpace(text) == "" {
		dto.BadRequest(c, "raw_text or form is required")
		return
	}

	site := strings.TrimSpace(req.PrimarySite)
	report := &entity.PathologyReport{
		CaseID:        req.CaseID,
		PatientID:     req.PatientID,
		RawText:       text,
		PrimarySite:   &site,
		CancerType:    req.CancerType,
		CancerSubtype: req.CancerSubtype,
	}

	stored, chunks, err := h.service.CreateReference(c.Request.Context(), report)
	if err != nil {
		writeError(c, err)
		return
	}

	dto.Created(c, dto.ReferenceResponse{
		CaseResponse:  dto.NewCaseResponse(stored),
		PrimarySite:   site,
		ChunksIndexed: chunks,
	})
}
