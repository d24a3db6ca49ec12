package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"idocontrol/internal/engine"
)

// abortEngineError 把记账引擎的错误分类映射到 HTTP 状态码：
// 找不到 → 404，状态/时序冲突 → 409，资格与参数 → 400，
// 外部余额源故障 → 502，其余（托管账本等外部失败）→ 500。
func abortEngineError(c *gin.Context, err error) {
	c.JSON(statusForEngineError(err), gin.H{"error": err.Error()})
}

func statusForEngineError(err error) int {
	switch {
	case errors.Is(err, engine.ErrRoundNotFound),
		errors.Is(err, engine.ErrMetaIDONotFound),
		errors.Is(err, engine.ErrNoPosition):
		return http.StatusNotFound

	case errors.Is(err, engine.ErrRoundNotStarted),
		errors.Is(err, engine.ErrRoundNotEnded),
		errors.Is(err, engine.ErrNotClaimableYet),
		errors.Is(err, engine.ErrRegistrationClosed),
		errors.Is(err, engine.ErrSpecNotSet),
		errors.Is(err, engine.ErrAlreadyEnabled),
		errors.Is(err, engine.ErrNotEnabled),
		errors.Is(err, engine.ErrAlreadyFinalized),
		errors.Is(err, engine.ErrNotFinalized),
		errors.Is(err, engine.ErrAlreadyCanceled),
		errors.Is(err, engine.ErrNotCanceled),
		errors.Is(err, engine.ErrRoundHasParent),
		errors.Is(err, engine.ErrRoundNotInMetaIDO),
		errors.Is(err, engine.ErrProposalPending),
		errors.Is(err, engine.ErrNoProposalPending),
		errors.Is(err, engine.ErrTimelockNotElapsed),
		errors.Is(err, engine.ErrFundingGoalNotReached):
		return http.StatusConflict

	case errors.Is(err, engine.ErrNotRegistered),
		errors.Is(err, engine.ErrRankNotIncreased),
		errors.Is(err, engine.ErrWrongPayToken):
		return http.StatusBadRequest
	}

	var validationErr *engine.ValidationError
	var rankErr *engine.RankError
	var allocationErr *engine.AllocationError
	var capacityErr *engine.CapacityError
	var oracleErr *engine.OracleError
	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &rankErr),
		errors.As(err, &allocationErr),
		errors.As(err, &capacityErr):
		return http.StatusBadRequest
	case errors.As(err, &oracleErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
