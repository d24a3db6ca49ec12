package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func metaIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return 0, false
	}
	return uint(id), true
}

// CreateMetaIdoRequest 创建注册窗口请求。
// registration_end == registration_start 表示关闭自助注册。
type CreateMetaIdoRequest struct {
	RoundIDs          []uint `json:"round_ids"`
	RegistrationStart int64  `json:"registration_start" binding:"required"`
	RegistrationEnd   int64  `json:"registration_end" binding:"required"`
}

// CreateMetaIdo 创建注册窗口并挂载轮次
func CreateMetaIdo(c *gin.Context) {
	var request CreateMetaIdoRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := Engine.CreateMetaIDO(request.RoundIDs,
		timeFromUnix(request.RegistrationStart), timeFromUnix(request.RegistrationEnd))
	if err != nil {
		abortEngineError(c, err)
		return
	}

	persistMetaIdoByID(id)
	for _, roundID := range request.RoundIDs {
		persistRoundByID(roundID)
	}
	publishEvent("meta_ido_created", map[string]interface{}{"meta_ido_id": id})
	c.JSON(http.StatusCreated, gin.H{"meta_ido_id": id})
}

// ManageRoundRequest 挂载 / 摘除轮次请求
type ManageRoundRequest struct {
	RoundID uint `json:"round_id" binding:"required"`
	Add     bool `json:"add"`
}

// ManageMetaIdoRound 挂载或摘除轮次；归属关系双向唯一
func ManageMetaIdoRound(c *gin.Context) {
	id, ok := metaIDParam(c)
	if !ok {
		return
	}
	var request ManageRoundRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := Engine.ManageRound(id, request.RoundID, request.Add); err != nil {
		abortEngineError(c, err)
		return
	}
	persistRoundByID(request.RoundID)
	c.JSON(http.StatusOK, gin.H{"message": "meta ido rounds updated"})
}

// GetMetaIdo 查询注册窗口
func GetMetaIdo(c *gin.Context) {
	id, ok := metaIDParam(c)
	if !ok {
		return
	}
	view, err := Engine.MetaIDOSnapshot(id)
	if err != nil {
		abortEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                 view.ID,
		"round_ids":          view.RoundIDs,
		"registration_start": view.RegistrationStart,
		"registration_end":   view.RegistrationEnd,
		"registered_count":   view.RegisteredCount,
	})
}

// RegisterRequest 自助注册请求
type RegisterRequest struct {
	Account string `json:"account" binding:"required"`
}

// RegisterSelf 窗口内自助注册，注册时定格 rank / 乘数快照
func RegisterSelf(c *gin.Context) {
	id, ok := metaIDParam(c)
	if !ok {
		return
	}
	var request RegisterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rank, multiplierBps, err := Engine.RegisterSelf(id, request.Account)
	if err != nil {
		abortEngineError(c, err)
		return
	}

	persistRegistration(id, request.Account, rank, multiplierBps, false)
	publishEvent("registered", map[string]interface{}{
		"meta_ido_id": id, "account": request.Account, "rank": rank,
	})
	c.JSON(http.StatusOK, gin.H{
		"account":        request.Account,
		"rank":           rank,
		"multiplier_bps": multiplierBps,
	})
}

// AdminAccountsRequest 管理端批量注册 / 注销请求
type AdminAccountsRequest struct {
	Accounts []string `json:"accounts" binding:"required"`
}

// AdminRegister 管理员批量注册，绕过窗口与单调 rank 约束
func AdminRegister(c *gin.Context) {
	id, ok := metaIDParam(c)
	if !ok {
		return
	}
	var request AdminAccountsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := Engine.AdminRegister(id, request.Accounts); err != nil {
		abortEngineError(c, err)
		return
	}
	for _, account := range request.Accounts {
		view, registered, err := Engine.Registration(id, account)
		if err != nil || !registered {
			continue
		}
		persistRegistration(id, account, view.Rank, view.MultiplierBps, true)
	}
	c.JSON(http.StatusOK, gin.H{"message": "accounts registered"})
}

// AdminDeregister 管理员批量注销，未注册的账户静默跳过
func AdminDeregister(c *gin.Context) {
	id, ok := metaIDParam(c)
	if !ok {
		return
	}
	var request AdminAccountsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := Engine.AdminDeregister(id, request.Accounts); err != nil {
		abortEngineError(c, err)
		return
	}
	deleteRegistrations(id, request.Accounts)
	c.JSON(http.StatusOK, gin.H{"message": "accounts deregistered"})
}

// DelayRegistrationEnd 注册截止只能后移，上限 initial + 14 天
func DelayRegistrationEnd(c *gin.Context) {
	id, ok := metaIDParam(c)
	if !ok {
		return
	}
	var request DelayTimeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := Engine.DelayRegistrationEnd(id, timeFromUnix(request.NewTime)); err != nil {
		abortEngineError(c, err)
		return
	}
	persistMetaIdoByID(id)
	c.JSON(http.StatusOK, gin.H{"message": "registration end delayed"})
}

// GetRegistration 查询单账户注册快照
func GetRegistration(c *gin.Context) {
	id, ok := metaIDParam(c)
	if !ok {
		return
	}
	account := c.Param("account")
	view, registered, err := Engine.Registration(id, account)
	if err != nil {
		abortEngineError(c, err)
		return
	}
	if !registered {
		c.JSON(http.StatusOK, gin.H{"account": account, "registered": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account":        account,
		"registered":     true,
		"rank":           view.Rank,
		"multiplier_bps": view.MultiplierBps,
	})
}

// ListRegistrations 导出 MetaIDO 的全部注册快照
func ListRegistrations(c *gin.Context) {
	id, ok := metaIDParam(c)
	if !ok {
		return
	}
	views, err := Engine.Registrations(id)
	if err != nil {
		abortEngineError(c, err)
		return
	}
	out := make([]gin.H, 0, len(views))
	for _, view := range views {
		out = append(out, gin.H{
			"account":        view.Account,
			"rank":           view.Rank,
			"multiplier_bps": view.MultiplierBps,
		})
	}
	c.JSON(http.StatusOK, out)
}
