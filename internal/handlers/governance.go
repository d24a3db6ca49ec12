package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"idocontrol/internal/engine"
	idosolana "idocontrol/pkg/solana"
)

// RankLevelItem 等级表的一档
type RankLevelItem struct {
	Level         uint   `json:"level"`
	Threshold     string `json:"threshold" binding:"required"`
	MultiplierBps int64  `json:"multiplier_bps"`
}

// LevelUpdateRequest 整表替换等级配置的提议
type LevelUpdateRequest struct {
	Levels []RankLevelItem `json:"levels" binding:"required"`
}

// GetRankLevels 当前生效的等级表
func GetRankLevels(c *gin.Context) {
	levels := Engine.Levels()
	out := make([]gin.H, 0, len(levels))
	for _, level := range levels {
		out = append(out, gin.H{
			"level":          level.Level,
			"threshold":      level.Threshold.String(),
			"multiplier_bps": level.MultiplierBps,
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetAccountRank 账户当前的实时 rank / 乘数（不落快照）
func GetAccountRank(c *gin.Context) {
	account := c.Param("account")
	rank, multiplierBps, err := Engine.RankAndMultiplier(account)
	if err != nil {
		abortEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account":        account,
		"rank":           rank,
		"multiplier_bps": multiplierBps,
	})
}

// ProposeLevelUpdate 提议整表替换等级配置，24h 时间锁
func ProposeLevelUpdate(c *gin.Context) {
	var request LevelUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	levels := make([]engine.RankLevel, 0, len(request.Levels))
	for _, item := range request.Levels {
		threshold, err := decimal.NewFromString(item.Threshold)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold: " + err.Error()})
			return
		}
		levels = append(levels, engine.RankLevel{
			Level:         item.Level,
			Threshold:     threshold,
			MultiplierBps: item.MultiplierBps,
		})
	}

	if err := Engine.ProposeLevelUpdate(levels); err != nil {
		abortEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "level update proposed"})
}

// ExecuteLevelUpdate 时间锁期满后执行替换并写穿配置表
func ExecuteLevelUpdate(c *gin.Context) {
	if err := Engine.ExecuteLevelUpdate(); err != nil {
		abortEngineError(c, err)
		return
	}
	persistLevels(Engine.Levels())
	publishEvent("rank_levels_updated", map[string]interface{}{})
	c.JSON(http.StatusOK, gin.H{"message": "level update executed"})
}

// CancelLevelUpdate 撤回待执行的等级提议
func CancelLevelUpdate(c *gin.Context) {
	if err := Engine.CancelLevelUpdate(); err != nil {
		abortEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "level update canceled"})
}

// OracleSwapRequest 更换质押余额源的提议
type OracleSwapRequest struct {
	RpcEndpoint    string `json:"rpc_endpoint" binding:"required"`
	StakingProgram string `json:"staking_program" binding:"required"`
}

// ProposeOracleSwap 提议切换到新的链上质押程序，24h 时间锁
func ProposeOracleSwap(c *gin.Context) {
	var request OracleSwapRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	oracle, err := idosolana.NewStakeOracle(request.RpcEndpoint, request.StakingProgram)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := Engine.ProposeOracleSwap(oracle); err != nil {
		abortEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "oracle swap proposed"})
}

// ExecuteOracleSwap 时间锁期满后切换余额源
func ExecuteOracleSwap(c *gin.Context) {
	if err := Engine.ExecuteOracleSwap(); err != nil {
		abortEngineError(c, err)
		return
	}
	publishEvent("oracle_swapped", map[string]interface{}{})
	c.JSON(http.StatusOK, gin.H{"message": "oracle swap executed"})
}
