package handlers

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"idocontrol/internal/models"
	dbconfig "idocontrol/pkg/config"
)

// TokenConfigRequest represents the request body for token config operations
type TokenConfigRequest struct {
	Mint     string  `json:"mint" binding:"required"`
	Symbol   string  `json:"symbol" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Decimals *int    `json:"decimals" binding:"required"`
	LogoURI  *string `json:"logo_uri"`
}

// sanitizeString removes null bytes and ensures valid UTF-8
func sanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r == utf8.RuneError {
				v = append(v, ' ')
			} else {
				v = append(v, r)
			}
		}
		return string(v)
	}
	return s
}

// validateAndSanitizeURL checks if the URL is valid and returns a sanitized version
func validateAndSanitizeURL(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// ListTokenConfigs 分页列出代币登记
func ListTokenConfigs(c *gin.Context) {
	pageStr := c.DefaultQuery("page", "1")
	pageSizeStr := c.DefaultQuery("page_size", "10")

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(pageSizeStr)
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize

	var totalCount int64
	if err := dbconfig.DB.Model(&models.TokenConfig{}).Count(&totalCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var tokens []models.TokenConfig
	if err := dbconfig.DB.Order("id DESC").Offset(offset).Limit(pageSize).Find(&tokens).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(pageSize)))
	c.JSON(http.StatusOK, gin.H{
		"data": tokens,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total_count": totalCount,
			"total_pages": totalPages,
			"has_next":    page < totalPages,
			"has_prev":    page > 1,
		},
	})
}

// GetTokenConfigByMint 按 mint 查单个代币
func GetTokenConfigByMint(c *gin.Context) {
	mint := c.Param("mint")
	var token models.TokenConfig
	if err := dbconfig.DB.Where("mint = ?", mint).First(&token).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.JSON(http.StatusOK, token)
}

// CreateTokenConfig 登记新代币；mint 唯一
func CreateTokenConfig(c *gin.Context) {
	var request TokenConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *request.Decimals < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decimals must not be negative"})
		return
	}

	logoURI := ""
	if request.LogoURI != nil {
		logoURI = validateAndSanitizeURL(*request.LogoURI)
	}
	token := models.TokenConfig{
		Mint:     request.Mint,
		Symbol:   sanitizeString(request.Symbol),
		Name:     sanitizeString(request.Name),
		Decimals: *request.Decimals,
		LogoURI:  logoURI,
	}
	if err := dbconfig.DB.Create(&token).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, token)
}

// UpdateTokenConfig 更新代币登记。decimals 一旦有轮次引用就不可再改，
// 轮次的分配换算全靠它。
func UpdateTokenConfig(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var request TokenConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var token models.TokenConfig
	if err := dbconfig.DB.First(&token, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	if *request.Decimals != token.Decimals {
		var roundCount int64
		if err := dbconfig.DB.Model(&models.IdoRound{}).
			Where("ido_token = ?", token.Mint).
			Count(&roundCount).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if roundCount > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":       "Cannot change decimals: there are rounds using this token",
				"round_count": roundCount,
			})
			return
		}
	}

	token.Mint = request.Mint
	token.Symbol = sanitizeString(request.Symbol)
	token.Name = sanitizeString(request.Name)
	token.Decimals = *request.Decimals
	if request.LogoURI != nil {
		token.LogoURI = validateAndSanitizeURL(*request.LogoURI)
	}

	if err := dbconfig.DB.Save(&token).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, token)
}

// DeleteTokenConfig 删除代币登记；被轮次引用的代币不允许删除
func DeleteTokenConfig(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var token models.TokenConfig
	err = dbconfig.DB.First(&token, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var roundCount int64
	if err := dbconfig.DB.Model(&models.IdoRound{}).
		Where("ido_token = ? OR buy_token = ? OR fy_token = ?", token.Mint, token.Mint, token.Mint).
		Count(&roundCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check round dependencies"})
		return
	}
	if roundCount > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "Cannot delete token: there are rounds using this token",
			"round_count": roundCount,
		})
		return
	}

	if err := dbconfig.DB.Delete(&models.TokenConfig{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Token config deleted successfully"})
}
