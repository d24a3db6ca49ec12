package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const liveInterval = 3 * time.Second

// RoundLiveFeed 升级为 websocket，按固定间隔推送轮次快照。
// 客户端断开或轮次查询失败时结束连接。
func RoundLiveFeed(c *gin.Context) {
	id, ok := roundIDParam(c)
	if !ok {
		return
	}
	if _, err := Engine.RoundSnapshot(id); err != nil {
		abortEngineError(c, err)
		return
	}

	conn, err := liveUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			// 只用读循环探测客户端关闭，消息内容忽略
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(liveInterval)
	defer ticker.Stop()

	for {
		view, err := Engine.RoundSnapshot(id)
		if err != nil {
			return
		}
		if err := conn.WriteJSON(BuildRoundResp(view)); err != nil {
			return
		}
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
