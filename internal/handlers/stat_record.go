package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"idocontrol/internal/handlers/business"
	"idocontrol/internal/models"
	dbconfig "idocontrol/pkg/config"
)

// GetFundingStats 从日志表计算轮次筹资统计（不读内存引擎）
func GetFundingStats(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	stats, err := business.CalculateFundingStats(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListSettleRecords 列出 worker 落盘的轮次快照历史
func ListSettleRecords(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}

	limitStr := c.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 1000 {
		limit = 100
	}

	var records []models.RoundSettleRecord
	if err := dbconfig.DB.Where("round_id = ?", id).
		Order("id DESC").Limit(limit).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

// ListEventLogs 列出 worker 消费入库的领域事件
func ListEventLogs(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 1000 {
		limit = 100
	}

	query := dbconfig.DB.Order("id DESC").Limit(limit)
	if eventType := c.Query("event_type"); eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	var logs []models.IdoEventLog
	if err := query.Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, logs)
}

// ListFundTransfers 按轮次列资金流水
func ListFundTransfers(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}

	query := dbconfig.DB.Where("round_id = ?", id).Order("id ASC")
	if account := c.Query("account"); account != "" {
		query = query.Where("account = ?", account)
	}

	var records []models.IdoFundTransferRecord
	if err := query.Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}
