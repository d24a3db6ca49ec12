package main

import (
	"encoding/json"
	"log"

	"idocontrol/internal/handlers"
	"idocontrol/internal/handlers/business"
	"idocontrol/internal/models"
	"idocontrol/pkg/config"

	"github.com/robfig/cron/v3"
	logrus "github.com/sirupsen/logrus"
)

// idoEvent 是 api 进程发布到 ido_events 队列的消息结构
type idoEvent struct {
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
}

func main() {
	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	config.InitDB()

	// Initialize RabbitMQ
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	// 定时任务：筹资快照与预留覆盖审计
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", func() {
		if err := business.SnapshotRoundFunding(); err != nil {
			logrus.Errorf("Round funding snapshot failed: %v", err)
		}
	}); err != nil {
		logrus.Fatal("Failed to schedule funding snapshot: ", err)
	}
	if _, err := c.AddFunc("@every 5m", func() {
		if err := business.AuditReservationCoverage(); err != nil {
			logrus.Errorf("Reservation audit failed: %v", err)
		}
	}); err != nil {
		logrus.Fatal("Failed to schedule reservation audit: ", err)
	}
	c.Start()
	defer c.Stop()

	msgConsumer, err := config.NewConsumer(handlers.EventQueue)
	if err != nil {
		logrus.Fatal("Failed to create consumer: ", err)
	}
	defer msgConsumer.Close()

	logrus.Info("IDO event worker started, waiting for messages...")

	err = msgConsumer.Consume(func(msg []byte) error {
		var event idoEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			logrus.Errorf("Failed to unmarshal message: %v", err)
			// 消息本身坏了，重回队列也救不回来
			return nil
		}
		if event.EventType == "" {
			logrus.Warnf("Discarding message without event_type: %s", string(msg))
			return nil
		}

		record := models.IdoEventLog{
			EventType: event.EventType,
			Payload:   models.JSONB(event.Payload),
		}
		if err := config.DB.Create(&record).Error; err != nil {
			logrus.Errorf("Failed to persist event %s: %v", event.EventType, err)
			return err
		}

		logrus.WithFields(logrus.Fields{
			"event_type": event.EventType,
		}).Info("Event persisted")
		return nil
	})

	if err != nil {
		log.Fatal("Failed to start consumer: ", err)
	}
}
