package main

import (
	"os"

	"idocontrol/internal/handlers/business"
	dbconfig "idocontrol/pkg/config"

	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"
)

func main() {
	os.MkdirAll("logs", 0755)
	file, err := os.OpenFile("logs/reservation_audit.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		logger.SetOutput(file)
	} else {
		logger.Warn("无法打开日志文件，日志将输出到标准输出")
	}

	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logger.InfoLevel)

	dbconfig.InitDB()
	logger.Info("> 数据库连接初始化完成")

	c := cron.New(cron.WithSeconds())

	// 每5分钟执行一次
	_, err = c.AddFunc("0 */5 * * * *", func() {
		logger.Info("> 开始预留覆盖审计")
		if err := business.AuditReservationCoverage(); err != nil {
			logger.Errorf("> 预留覆盖审计失败: %v", err)
			return
		}
		logger.Info("> 预留覆盖审计完成")
	})
	if err != nil {
		logger.Fatalf("> 添加定时任务失败: %v", err)
	}

	logger.Info("> 定时任务已启动，每5分钟执行一次")
	c.Start()

	select {}
}
