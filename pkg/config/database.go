package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"idocontrol/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB initializes the database connection
func InitDB() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Shanghai",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(50)           // 设置空闲连接池中的最大连接数
	sqlDB.SetMaxOpenConns(200)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置连接可复用的最大时间

	DB = db

	// Auto migrate all models
	err = DB.AutoMigrate(
		&models.TokenConfig{},
		&models.IdoRound{},
		&models.RoundPosition{},
		&models.RoundParticipant{},
		&models.IdoFundTransferRecord{},
		&models.TokenReservation{},
		&models.MetaIdo{},
		&models.MetaIdoRegistration{},
		&models.RankLevelConfig{},
		&models.CustodyBalance{},
		&models.CustodyTransfer{},
		&models.RoundSettleRecord{},
		&models.IdoEventLog{},
		&models.EscrowAddress{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
}
