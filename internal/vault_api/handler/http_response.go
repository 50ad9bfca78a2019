package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/microcredit-pool-ledger/internal/domain/shared"
	"github.com/microcredit-pool-ledger/internal/vault_api/middleware"
)

// Response is the envelope every vault endpoint answers with. Exactly one of
// Data or Error is set.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo carries a stable machine code. Kind is set for ledger rejections
// so clients can tell a policy refusal from a state conflict.
type ErrorInfo struct {
	Code    string `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// MetaInfo describes one page of a paginated listing.
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

func newMetaInfo(page, perPage, totalItems int) *MetaInfo {
	totalPages := 0
	if perPage > 0 {
		totalPages = (totalItems + perPage - 1) / perPage
	}
	return &MetaInfo{
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		TotalItems: totalItems,
	}
}

// errorInfoFor exposes the code and kind of a ledger error. Other errors get
// the fallback code with their message.
func errorInfoFor(err error, fallbackCode string) *ErrorInfo {
	var ledgerErr *shared.Error
	if errors.As(err, &ledgerErr) {
		return &ErrorInfo{
			Code:    ledgerErr.Code,
			Kind:    string(ledgerErr.Kind),
			Message: ledgerErr.Message,
		}
	}
	return &ErrorInfo{Code: fallbackCode, Message: err.Error()}
}

// respond stamps the request's correlation id and writes the envelope.
func respond(c *gin.Context, status int, response *Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(status, response)
}

func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, &Response{Data: data})
}

func RespondCreated(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, &Response{Data: data})
}

// RespondWithPaginatedData writes one page of data with its paging metadata.
func RespondWithPaginatedData(c *gin.Context, status int, data interface{}, page, perPage, totalItems int) {
	respond(c, status, &Response{Data: data, Meta: newMetaInfo(page, perPage, totalItems)})
}

// RespondWithError writes an error envelope with an explicit code.
func RespondWithError(c *gin.Context, status int, code, message string) {
	respond(c, status, &Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
