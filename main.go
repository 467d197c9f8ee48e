package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/qianlnk/avalon/config"
	"github.com/qianlnk/avalon/models"
	"github.com/qianlnk/avalon/services"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有跨域请求，生产环境中应该更严格
		},
	}

	gameManager  *services.GameManager
	webSocketMgr *services.WebSocketManager
)

func init() {
	// 设置日志格式，包含文件名和行号
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	opts := services.EngineOptions{
		RejectLimit:     cfg.Game.RejectLimit,
		StalemateWinner: models.Team(cfg.Game.StalemateWinner),
	}

	var llm *services.LLMConfig
	if cfg.AI.UseLLM {
		llm = &services.LLMConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		}
		log.Printf("初始化完成: 使用LLM决策（%s / %s）", cfg.LLM.Provider, cfg.LLM.Model)
	} else {
		log.Println("初始化完成: 使用规则策略决策")
	}

	gameManager = services.NewGameManager(opts, llm)
	webSocketMgr = services.NewWebSocketManager(gameManager)

	r := gin.Default()

	// 设置跨域中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// WebSocket事件直播
	r.GET("/ws", func(c *gin.Context) {
		gameID := c.Query("game")
		if gameID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "缺少game参数"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("升级WebSocket连接失败: %v", err)
			return
		}

		if err := webSocketMgr.HandleConnection(gameID, ws); err != nil {
			log.Printf("接入观战连接失败: %v", err)
			ws.Close()
		}
	})

	// API路由组
	api := r.Group("/api")
	{
		api.GET("/health", healthCheck)

		api.POST("/games", createGame)
		api.GET("/games/:id", getGame)
		api.GET("/games/:id/players/:playerId", getPlayerView)
		api.GET("/games/:id/history", getHistory)
		api.POST("/games/:id/step", stepGame)
		api.POST("/games/:id/auto-play", autoPlayGame)
	}

	// 启动服务器
	log.Printf("服务器启动在 %s", cfg.Server.Addr)
	if err := r.Run(cfg.Server.Addr); err != nil {
		log.Fatal("服务器启动失败:", err)
	}
}

// API处理函数
func createGame(c *gin.Context) {
	var req struct {
		PlayerCount int      `json:"player_count" binding:"required"`
		Names       []string `json:"names"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := gameManager.CreateGame(req.PlayerCount, req.Names)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, view)
}

func getGame(c *gin.Context) {
	view, err := gameManager.View(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, view)
}

// 获取某个玩家视角的视图，含角色、可见信息和信念快照
func getPlayerView(c *gin.Context) {
	playerID, err := strconv.Atoi(c.Param("playerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的玩家ID"})
		return
	}

	view, err := gameManager.PlayerView(c.Param("id"), playerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, view)
}

func getHistory(c *gin.Context) {
	events, err := gameManager.History(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

func stepGame(c *gin.Context) {
	view, err := gameManager.Step(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(stepErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, view)
}

func autoPlayGame(c *gin.Context) {
	view, err := gameManager.AutoPlay(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(stepErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, view)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
}

// stepErrorStatus 把推进错误映射为HTTP状态码
func stepErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrGameOver), errors.Is(err, services.ErrDecisionRejected):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
