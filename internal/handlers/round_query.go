package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"idocontrol/internal/engine"
)

// RoundResp 轮次响应；金额字段序列化为字符串，时间为 unix 秒
type RoundResp struct {
	ID               uint              `json:"id"`
	IdoToken         string            `json:"ido_token"`
	IdoTokenDecimals int               `json:"ido_token_decimals"`
	BuyToken         string            `json:"buy_token"`
	FyToken          string            `json:"fy_token,omitempty"`
	Price            string            `json:"price"`
	Size             string            `json:"size"`
	TokensSold       string            `json:"tokens_sold"`
	TokensClaimed    string            `json:"tokens_claimed"`
	FundingGoal      string            `json:"funding_goal"`
	FundedValue      string            `json:"funded_value"`
	FyTokenMaxBps    int64             `json:"fy_token_max_bps"`
	FundedByToken    map[string]string `json:"funded_by_token"`
	Participants     int               `json:"participants"`
	StartTime        int64             `json:"start_time"`
	EndTime          int64             `json:"end_time"`
	ClaimableTime    int64             `json:"claimable_time"`
	ParentMetaIdoID  uint              `json:"parent_meta_ido_id"`
	IsEnabled        bool              `json:"is_enabled"`
	IsFinalized      bool              `json:"is_finalized"`
	IsCanceled       bool              `json:"is_canceled"`
	NoRegistration   bool              `json:"no_registration"`

	SpecInitialized            bool   `json:"spec_initialized"`
	MinRank                    uint   `json:"min_rank"`
	MaxRank                    uint   `json:"max_rank"`
	MaxAllocation              string `json:"max_allocation"`
	MinAllocation              string `json:"min_allocation"`
	MaxAllocationMultiplierBps int64  `json:"max_allocation_multiplier_bps"`
	NoMultiplier               bool   `json:"no_multiplier"`
	NoRank                     bool   `json:"no_rank"`
}

// BuildRoundResp 构建轮次响应
func BuildRoundResp(view *engine.RoundView) *RoundResp {
	funded := make(map[string]string, len(view.FundedByToken))
	for token, amount := range view.FundedByToken {
		funded[token] = amount.String()
	}
	return &RoundResp{
		ID:               view.ID,
		IdoToken:         view.IdoToken,
		IdoTokenDecimals: view.IdoDecimals,
		BuyToken:         view.BuyToken,
		FyToken:          view.FyToken,
		Price:            view.Price.String(),
		Size:             view.Size.String(),
		TokensSold:       view.TokensSold.String(),
		TokensClaimed:    view.TokensClaimed.String(),
		FundingGoal:      view.FundingGoal.String(),
		FundedValue:      view.FundedValue.String(),
		FyTokenMaxBps:    view.FyTokenMaxBps,
		FundedByToken:    funded,
		Participants:     view.Participants,
		StartTime:        view.Clock.StartTime.Unix(),
		EndTime:          view.Clock.EndTime.Unix(),
		ClaimableTime:    view.Clock.ClaimableTime.Unix(),
		ParentMetaIdoID:  view.Clock.ParentMetaIDO,
		IsEnabled:        view.Clock.IsEnabled,
		IsFinalized:      view.Clock.IsFinalized,
		IsCanceled:       view.Clock.IsCanceled,
		NoRegistration:   view.Clock.NoRegistration,

		SpecInitialized:            view.Spec.Initialized,
		MinRank:                    view.Spec.MinRank,
		MaxRank:                    view.Spec.MaxRank,
		MaxAllocation:              view.Spec.MaxAllocation.String(),
		MinAllocation:              view.Spec.MinAllocation.String(),
		MaxAllocationMultiplierBps: view.Spec.MaxAllocationMultiplierBps,
		NoMultiplier:               view.Spec.NoMultiplier,
		NoRank:                     view.Spec.NoRank,
	}
}

// ListRounds 列出全部轮次
func ListRounds(c *gin.Context) {
	views := Engine.RoundSnapshots()
	out := make([]*RoundResp, 0, len(views))
	for _, view := range views {
		out = append(out, BuildRoundResp(view))
	}
	c.JSON(http.StatusOK, out)
}

// GetRound 按 id 查单个轮次
func GetRound(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	view, err := Engine.RoundSnapshot(id)
	if err != nil {
		abortEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, BuildRoundResp(view))
}

// GetPosition 查询账户在某轮次的仓位
func GetPosition(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	account := c.Param("account")
	position, err := Engine.PositionOf(id, account)
	if err != nil {
		abortEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account":          account,
		"amount":           position.Amount.String(),
		"fy_amount":        position.FyAmount.String(),
		"token_allocation": position.TokenAllocation.String(),
	})
}

// ListRoundParticipants 分页列出参与者（按首次参与顺序）
func ListRoundParticipants(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}

	pageStr := c.DefaultQuery("page", "1")
	pageSizeStr := c.DefaultQuery("page_size", "50")
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(pageSizeStr)
	if err != nil || pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	offset := (page - 1) * pageSize
	accounts, total, err := Engine.Participants(id, offset, pageSize)
	if err != nil {
		abortEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": accounts,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total_count": total,
		},
	})
}

// GetFundsRaised 某轮次分币种的累计认购额
func GetFundsRaised(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	raised, err := Engine.FundsRaised(id)
	if err != nil {
		abortEngineError(c, err)
		return
	}
	out := make(map[string]string, len(raised))
	for token, amount := range raised {
		out[token] = amount.String()
	}
	c.JSON(http.StatusOK, out)
}

// GetAccountFunding 账户在所有轮次的在册出资汇总
func GetAccountFunding(c *gin.Context) {
	account := c.Param("account")
	funding := Engine.AccountFunding(account)
	out := make(map[uint]string, len(funding))
	for roundID, amount := range funding {
		out[roundID] = amount.String()
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "funding": out})
}

// GetMaxAllocation 预览账户在某轮次的出资上限
func GetMaxAllocation(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	account := c.Param("account")
	max, err := Engine.MaxAllocationPreview(id, account)
	if err != nil {
		abortEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "max_allocation": max.String()})
}

// GetReservations 全部代币的全局预留量
func GetReservations(c *gin.Context) {
	reserved := Engine.ReservedTokens()
	out := make(map[string]string, len(reserved))
	for token, amount := range reserved {
		out[token] = amount.String()
	}
	c.JSON(http.StatusOK, out)
}
