package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"biocup-api/internal/application/diagnosis"
	"biocup-api/internal/domain/entity"
	"biocup-api/internal/interfaces/http/dto"
)

// CaseHandler serves query-case submission and diagnosis.
type CaseHandler struct {
	service *diagnosis.Service
}

func NewCaseHandler(service *diagnosis.Service) *CaseHandler {
	return &CaseHandler{service: service}
}

// Create stores a new query case revision.
// POST /v1/cases
func (h *CaseHandler) Create(c *gin.Context) {
	var req dto.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	text := req.Text()
	if strings.TrimSpace(text) == "" {
		dto.BadRequest(c, "raw_text or form is required")
		return
	}

	report := &entity.PathologyReport{
		CaseID:    req.CaseID,
		PatientID: req.PatientID,
		RawText:   text,
	}
	stored, err := h.service.CreateCase(c.Request.Context(), report)
	if err != nil {
		writeError(c, err)
		return
	}

	dto.Created(c, dto.NewCaseResponse(stored))
}

// Get fetches the latest revision of a case.
// GET /v1/cases/:id
func (h *CaseHandler) Get(c *gin.Context) {
	report, err := h.service.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, dto.NewCaseResponse(report))
}

// Diagnose runs retrieval for the latest revision of a case and returns
// the persisted result document.
// POST /v1/cases/:id/diagnose
func (h *CaseHandler) Diagnose(c *gin.Context) {
	result, err := h.service.Diagnose(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, dto.NewResultResponse(result))
}

// LatestResult fetches the newest stored result for a case.
// GET /v1/cases/:id/result
func (h *CaseHandler) LatestResult(c *gin.Context) {
	result, err := h.service.GetLatestResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, dto.NewResultResponse(result))
}
