package solana

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/blocto/solana-go-sdk/types"
	"gorm.io/gorm"

	"idocontrol/internal/models"
)

// EscrowKeyManager 负责托管地址的密钥生成、加解密与入库
type EscrowKeyManager struct {
	db       *gorm.DB
	password string
}

func NewEscrowKeyManager(db *gorm.DB, password string) *EscrowKeyManager {
	return &EscrowKeyManager{db: db, password: password}
}

// GenerateEscrowAddress 生成新托管地址，私钥 AES-256-GCM 加密后写入 escrow_address 表
func (km *EscrowKeyManager) GenerateEscrowAddress(label string) (*models.EscrowAddress, error) {
	account := types.NewAccount()

	encrypted, err := encryptPrivateKey(account.PrivateKey, km.password)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}

	entry := models.EscrowAddress{
		Address:         account.PublicKey.ToBase58(),
		Label:           label,
		Enabled:         true,
		PrivateKeyVaild: true,
		EncryptedKey:    encrypted,
	}
	if err := km.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to save escrow address: %w", err)
	}
	return &entry, nil
}

// LoadEscrowAccount 按地址取出并解密私钥，校验解密结果与地址一致
func (km *EscrowKeyManager) LoadEscrowAccount(address string) (*types.Account, error) {
	var entry models.EscrowAddress
	err := km.db.Where("address = ?", address).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("escrow address %s not found", address)
	}
	if err != nil {
		return nil, err
	}
	if !entry.PrivateKeyVaild {
		return nil, fmt.Errorf("escrow address %s has no valid private key", address)
	}

	privateKey, err := decryptPrivateKey(entry.EncryptedKey, km.password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt private key: %w", err)
	}

	account, err := types.AccountFromBytes(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create account from private key: %w", err)
	}
	if account.PublicKey.ToBase58() != address {
		return nil, fmt.Errorf("address mismatch: expected %s, got %s", address, account.PublicKey.ToBase58())
	}
	return &account, nil
}

// VerifyKey 核验某地址的密文能否正常解密，并回写 private_key_vaild 标记
func (km *EscrowKeyManager) VerifyKey(address string) error {
	_, err := km.LoadEscrowAccount(address)
	if err != nil {
		km.db.Model(&models.EscrowAddress{}).Where("address = ?", address).
			Update("private_key_vaild", false)
		return err
	}
	return km.db.Model(&models.EscrowAddress{}).Where("address = ?", address).
		Update("private_key_vaild", true).Error
}

// encryptPrivateKey encrypts a private key using AES-256-GCM
func encryptPrivateKey(privateKey []byte, password string) (string, error) {
	key := deriveKey(password) // 32-byte key for AES-256
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Combine nonce and ciphertext for storage
	ciphertext := gcm.Seal(nonce, nonce, privateKey, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decryptPrivateKey decrypts a private key using AES-256-GCM
func decryptPrivateKey(encryptedKey string, password string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	key := deriveKey(password)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertext = ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// deriveKey creates a 32-byte key from a password using SHA-256
func deriveKey(password string) []byte {
	hash := sha256.Sum256([]byte(password))
	return hash[:]
}
