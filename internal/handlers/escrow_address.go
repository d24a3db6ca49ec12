package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"idocontrol/internal/models"
	dbconfig "idocontrol/pkg/config"
	idosolana "idocontrol/pkg/solana"
)

func escrowKeyManager() *idosolana.EscrowKeyManager {
	return idosolana.NewEscrowKeyManager(dbconfig.DB, os.Getenv("KEYSTORE_PASSWORD"))
}

// ListEscrowAddresses 列出全部托管地址（不含密文）
func ListEscrowAddresses(c *gin.Context) {
	var addresses []models.EscrowAddress
	if err := dbconfig.DB.Order("id ASC").Find(&addresses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, addresses)
}

// CreateEscrowAddressRequest 生成托管地址请求
type CreateEscrowAddressRequest struct {
	Label string `json:"label"`
}

// CreateEscrowAddress 生成新托管地址，私钥加密入库
func CreateEscrowAddress(c *gin.Context) {
	var request CreateEscrowAddressRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if os.Getenv("KEYSTORE_PASSWORD") == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Keystore password not configured"})
		return
	}

	entry, err := escrowKeyManager().GenerateEscrowAddress(request.Label)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// VerifyEscrowAddress 核验某地址的密文可解密，并回写标记
func VerifyEscrowAddress(c *gin.Context) {
	address := c.Param("address")
	if err := escrowKeyManager().VerifyKey(address); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "private_key_vaild": true})
}
