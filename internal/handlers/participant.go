package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ParticipateRequest 认购请求；token 必须是该轮次的 buy 或 fy 代币
type ParticipateRequest struct {
	Account string `json:"account" binding:"required"`
	Token   string `json:"token" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

// Participate 处理一次认购：引擎校验 + 拉款 + 记账，
// 成功后写穿仓位和轮次行并发布事件
func Participate(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	var request ParticipateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(c, "amount", request.Amount, true)
	if !ok {
		return
	}

	result, err := Engine.Participate(id, request.Account, request.Token, amount)
	if err != nil {
		abortEngineError(c, err)
		return
	}

	persistRoundByID(id)
	persistPosition(id, request.Account, &result.Position)
	if result.FirstTime {
		persistParticipant(id, request.Account)
	}
	recordTransfer(id, request.Account, request.Token, "in", "participate", amount)
	publishEvent("participated", map[string]interface{}{
		"round_id":         id,
		"account":          request.Account,
		"token":            request.Token,
		"amount":           amount.String(),
		"token_allocation": result.TokenAllocation.String(),
	})

	c.JSON(http.StatusOK, gin.H{
		"token_allocation": result.TokenAllocation.String(),
		"position": gin.H{
			"amount":           result.Position.Amount.String(),
			"fy_amount":        result.Position.FyAmount.String(),
			"token_allocation": result.Position.TokenAllocation.String(),
		},
	})
}

// ClaimRequest 领取 / 退款请求
type ClaimRequest struct {
	Account string `json:"account" binding:"required"`
}

// Claim 结算单个仓位：认购款归集 treasury，IDO 代币全额发放
func Claim(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	var request ClaimRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := Engine.Claim(id, request.Account)
	if err != nil {
		abortEngineError(c, err)
		return
	}

	view, viewErr := Engine.RoundSnapshot(id)
	persistRoundByID(id)
	deletePosition(id, request.Account)
	syncReservations()
	if viewErr == nil {
		if result.FyAmount.IsPositive() {
			recordTransfer(id, request.Account, view.FyToken, "out", "treasury", result.FyAmount)
		}
		if result.BuyAmount.IsPositive() {
			recordTransfer(id, request.Account, view.BuyToken, "out", "treasury", result.BuyAmount)
		}
		recordTransfer(id, request.Account, view.IdoToken, "out", "claim", result.TokenAllocation)
	}
	publishEvent("claimed", map[string]interface{}{
		"round_id":         id,
		"account":          request.Account,
		"token_allocation": result.TokenAllocation.String(),
	})

	c.JSON(http.StatusOK, gin.H{
		"token_allocation": result.TokenAllocation.String(),
		"buy_amount":       result.BuyAmount.String(),
		"fy_amount":        result.FyAmount.String(),
	})
}

// ClaimRefund 轮次取消后按仓位原路退款
func ClaimRefund(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	var request ClaimRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := Engine.ClaimRefund(id, request.Account)
	if err != nil {
		abortEngineError(c, err)
		return
	}

	view, viewErr := Engine.RoundSnapshot(id)
	persistRoundByID(id)
	deletePosition(id, request.Account)
	if viewErr == nil {
		if result.FyAmount.IsPositive() {
			recordTransfer(id, request.Account, view.FyToken, "out", "refund", result.FyAmount)
		}
		if result.BuyAmount.IsPositive() {
			recordTransfer(id, request.Account, view.BuyToken, "out", "refund", result.BuyAmount)
		}
	}
	publishEvent("refunded", map[string]interface{}{
		"round_id":   id,
		"account":    request.Account,
		"buy_amount": result.BuyAmount.String(),
		"fy_amount":  result.FyAmount.String(),
	})

	c.JSON(http.StatusOK, gin.H{
		"buy_amount": result.BuyAmount.String(),
		"fy_amount":  result.FyAmount.String(),
	})
}
