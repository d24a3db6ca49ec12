package config

import (
	"fmt"
	"log"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var RabbitMQ *amqp.Connection

const (
	rabbitMaxRetries = 10
	rabbitRetryDelay = 3 * time.Second
)

func rabbitURL() string {
	vhost := os.Getenv("RABBITMQ_VHOST")
	if vhost == "" {
		vhost = "/"
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s%s",
		os.Getenv("RABBITMQ_USER"),
		os.Getenv("RABBITMQ_PASSWORD"),
		os.Getenv("RABBITMQ_HOST"),
		os.Getenv("RABBITMQ_PORT"),
		vhost,
	)
}

// InitRabbitMQ 带重试地建立连接；事件总线不可用时直接退出，
// 由进程管理器拉起重试
func InitRabbitMQ() {
	url := rabbitURL()

	var conn *amqp.Connection
	var err error

	for i := 0; i < rabbitMaxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			RabbitMQ = conn
			log.Printf("Successfully connected to RabbitMQ at %s", os.Getenv("RABBITMQ_HOST"))
			return
		}

		if i < rabbitMaxRetries-1 {
			log.Printf("Failed to connect to RabbitMQ (attempt %d/%d): %v. Retrying in %v...",
				i+1, rabbitMaxRetries, err, rabbitRetryDelay)
			time.Sleep(rabbitRetryDelay)
		}
	}

	log.Fatalf("Failed to connect to RabbitMQ after %d attempts: %v", rabbitMaxRetries, err)
}
