package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/microcredit-pool-ledger/internal/domain/shared"
	"github.com/microcredit-pool-ledger/internal/vault_api/middleware"
)

var statusByKind = map[shared.ErrorKind]int{
	shared.KindPolicyViolation:    http.StatusUnprocessableEntity,
	shared.KindResourceExhaustion: http.StatusConflict,
	shared.KindStateMismatch:      http.StatusConflict,
	shared.KindAuthorization:      http.StatusForbidden,
	shared.KindInvalidInput:       http.StatusBadRequest,
}

// StatusFor maps a ledger rejection to its HTTP status; anything else is a 500.
func StatusFor(err error) int {
	if status, ok := statusByKind[shared.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RespondLedgerError writes err in the error envelope with its ledger code and kind.
func RespondLedgerError(c *gin.Context, logger *slog.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Ledger operation failed",
			"path", c.FullPath(),
			"correlation_id", middleware.GetCorrelationID(c),
			"error", err,
		)
		RespondInternalError(c)
		return
	}

	respond(c, status, &Response{Error: errorInfoFor(err, "UNKNOWN")})
}
