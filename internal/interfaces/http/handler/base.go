// Package handler provides HTTP request handlers.
package handler

import (
	"github.com/gin-gonic/gin"

	"biocup-api/internal/interfaces/http/dto"
	"biocup-api/pkg/errors"
)

// writeError maps an application error onto the HTTP error envelope.
// Unknown errors become 500 without leaking internals.
func writeError(c *gin.Context, err error) {
	if appErr := errors.AsAppError(err); appErr != nil {
		dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		})
		return
	}
	dto.InternalError(c, "internal server error")
}
