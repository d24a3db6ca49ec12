package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"idocontrol/internal/engine"
	"idocontrol/internal/models"
	dbconfig "idocontrol/pkg/config"
)

// CreateRoundRequest 创建轮次请求；金额字段一律用字符串表达最小单位整数
type CreateRoundRequest struct {
	IdoToken       string `json:"ido_token" binding:"required"`
	BuyToken       string `json:"buy_token" binding:"required"`
	FyToken        string `json:"fy_token"`
	Price          string `json:"price" binding:"required"`
	Size           string `json:"size" binding:"required"`
	FundingGoal    string `json:"funding_goal"`
	FyTokenMaxBps  int64  `json:"fy_token_max_bps"`
	StartTime      int64  `json:"start_time" binding:"required"`
	EndTime        int64  `json:"end_time" binding:"required"`
	ClaimableTime  int64  `json:"claimable_time" binding:"required"`
	NoRegistration bool   `json:"no_registration"`
}

// RoundSpecRequest 参与资格规则请求
type RoundSpecRequest struct {
	MinRank                    uint   `json:"min_rank"`
	MaxRank                    uint   `json:"max_rank"`
	MaxAllocation              string `json:"max_allocation" binding:"required"`
	MinAllocation              string `json:"min_allocation"`
	MaxAllocationMultiplierBps int64  `json:"max_allocation_multiplier_bps"`
	NoMultiplier               bool   `json:"no_multiplier"`
	NoRank                     bool   `json:"no_rank"`
}

func parseAmount(c *gin.Context, field, value string, required bool) (decimal.Decimal, bool) {
	if value == "" {
		if required {
			c.JSON(http.StatusBadRequest, gin.H{"error": field + " is required"})
			return decimal.Zero, false
		}
		return decimal.Zero, true
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + field + ": " + err.Error()})
		return decimal.Zero, false
	}
	return amount, true
}

func roundIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return 0, false
	}
	return uint(id), true
}

// CreateIdoRound 创建新轮次。IDO 代币的小数位从 token_info 登记表取，
// 未登记的代币拒绝创建。
func CreateIdoRound(c *gin.Context) {
	var request CreateRoundRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var token models.TokenConfig
	err := dbconfig.DB.Where("mint = ?", request.IdoToken).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ido token is not registered in token_info"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	price, ok := parseAmount(c, "price", request.Price, true)
	if !ok {
		return
	}
	size, ok := parseAmount(c, "size", request.Size, true)
	if !ok {
		return
	}
	goal, ok := parseAmount(c, "funding_goal", request.FundingGoal, false)
	if !ok {
		return
	}

	id, err := Engine.CreateRound(engine.CreateRoundParams{
		IdoToken:         request.IdoToken,
		IdoTokenDecimals: token.Decimals,
		BuyToken:         request.BuyToken,
		FyToken:          request.FyToken,
		Price:            price,
		Size:             size,
		FundingGoal:      goal,
		FyTokenMaxBps:    request.FyTokenMaxBps,
		StartTime:        timeFromUnix(request.StartTime),
		EndTime:          timeFromUnix(request.EndTime),
		ClaimableTime:    timeFromUnix(request.ClaimableTime),
		NoRegistration:   request.NoRegistration,
	})
	if err != nil {
		abortEngineError(c, err)
		return
	}

	persistRoundByID(id)
	publishEvent("round_created", map[string]interface{}{"round_id": id, "ido_token": request.IdoToken})
	c.JSON(http.StatusCreated, gin.H{"round_id": id})
}

// SetRoundSpec 设置资格规则，enable 之后不再允许
func SetRoundSpec(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	var request RoundSpecRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	maxAlloc, ok := parseAmount(c, "max_allocation", request.MaxAllocation, true)
	if !ok {
		return
	}
	minAlloc, ok := parseAmount(c, "min_allocation", request.MinAllocation, false)
	if !ok {
		return
	}

	err := Engine.SetRoundSpec(id, engine.SpecParams{
		MinRank:                    request.MinRank,
		MaxRank:                    request.MaxRank,
		MaxAllocation:              maxAlloc,
		MinAllocation:              minAlloc,
		MaxAllocationMultiplierBps: request.MaxAllocationMultiplierBps,
		NoMultiplier:               request.NoMultiplier,
		NoRank:                     request.NoRank,
	})
	if err != nil {
		abortEngineError(c, err)
		return
	}
	persistRoundByID(id)
	c.JSON(http.StatusOK, gin.H{"message": "round spec set"})
}

// EnableRound 打开参与通道并登记全局预留
func EnableRound(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	if err := Engine.EnableRound(id); err != nil {
		abortEngineError(c, err)
		return
	}
	persistRoundByID(id)
	syncReservations()
	publishEvent("round_enabled", map[string]interface{}{"round_id": id})
	c.JSON(http.StatusOK, gin.H{"message": "round enabled"})
}

// FinalizeRound 定格轮次并释放未售出部分的预留
func FinalizeRound(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	if err := Engine.FinalizeRound(id); err != nil {
		abortEngineError(c, err)
		return
	}
	persistRoundByID(id)
	syncReservations()
	publishEvent("round_finalized", map[string]interface{}{"round_id": id})
	c.JSON(http.StatusOK, gin.H{"message": "round finalized"})
}

// CancelRound 取消轮次，打开退款通道
func CancelRound(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	if err := Engine.CancelRound(id); err != nil {
		abortEngineError(c, err)
		return
	}
	persistRoundByID(id)
	syncReservations()
	publishEvent("round_canceled", map[string]interface{}{"round_id": id})
	c.JSON(http.StatusOK, gin.H{"message": "round canceled"})
}

// DelayTimeRequest 时间后移请求
type DelayTimeRequest struct {
	NewTime int64 `json:"new_time" binding:"required"`
}

// DelayEndTime 后移结束时间，上限 initial + 14 天
func DelayEndTime(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	var request DelayTimeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := Engine.DelayEndTime(id, timeFromUnix(request.NewTime)); err != nil {
		abortEngineError(c, err)
		return
	}
	persistRoundByID(id)
	c.JSON(http.StatusOK, gin.H{"message": "end time delayed"})
}

// DelayClaimableTime 后移开领时间，上限 initial + 14 天
func DelayClaimableTime(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	var request DelayTimeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := Engine.DelayClaimableTime(id, timeFromUnix(request.NewTime)); err != nil {
		abortEngineError(c, err)
		return
	}
	persistRoundByID(id)
	c.JSON(http.StatusOK, gin.H{"message": "claimable time delayed"})
}

// SetFyTokenCapRequest fy 子额度上限请求
type SetFyTokenCapRequest struct {
	FyTokenMaxBps int64 `json:"fy_token_max_bps"`
}

// SetFyTokenCap 调整 fyToken 子额度上限
func SetFyTokenCap(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	var request SetFyTokenCapRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := Engine.SetFyTokenCapBps(id, request.FyTokenMaxBps); err != nil {
		abortEngineError(c, err)
		return
	}
	persistRoundByID(id)
	c.JSON(http.StatusOK, gin.H{"message": "fy token cap updated"})
}

// WithdrawSpareRequest 闲置提取请求
type WithdrawSpareRequest struct {
	To string `json:"to" binding:"required"`
}

// WithdrawSpare 提取该轮次 IDO 代币的全局闲置部分
func WithdrawSpare(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	var request WithdrawSpareRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	spare, err := Engine.WithdrawSpare(id, request.To)
	if err != nil {
		abortEngineError(c, err)
		return
	}
	view, viewErr := Engine.RoundSnapshot(id)
	if viewErr == nil {
		recordTransfer(id, request.To, view.IdoToken, "out", "spare", spare)
	}
	publishEvent("spare_withdrawn", map[string]interface{}{
		"round_id": id, "to": request.To, "amount": spare.String(),
	})
	c.JSON(http.StatusOK, gin.H{"amount": spare.String()})
}
