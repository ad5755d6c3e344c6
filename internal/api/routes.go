package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"debate_hub/internal/api/handlers"
	"debate_hub/internal/middleware"
	"debate_hub/internal/service"
)

func SetupRoutes(r *gin.Engine, services *service.Services) {
	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(services.User)
	debateHandler := handlers.NewDebateHandler(services.Debate)
	wsHandler := handlers.NewWebSocketHandler(services.Hub)

	// API 路由群組
	api := r.Group("/api")

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	// 公開路由
	{
		// 用戶認證相關
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)

		// 基本的健康檢查
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	// 需要驗證的路由
	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware())
	{
		// 辯論房間相關
		debates := authorized.Group("/debates")
		{
			// 基本操作
			debates.GET("", debateHandler.ListDebates)   // 獲取辯論列表
			debates.POST("", debateHandler.CreateDebate) // 創建辯論
			debates.GET("/:id", debateHandler.GetDebate) // 獲取辯論信息

			// 房間參與
			debates.POST("/:id/join", debateHandler.JoinDebate)   // 加入辯論
			debates.POST("/:id/leave", debateHandler.LeaveDebate) // 離開辯論
			debates.POST("/:id/end", debateHandler.EndDebate)     // 主持人結束辯論

			// 主持人操作
			debates.PUT("/:id/status", debateHandler.ChangeStatus)     // 手動推進狀態
			debates.PUT("/:id/settings", debateHandler.ChangeSettings) // 更新房間設定

			// 訊息
			debates.POST("/:id/messages", debateHandler.SendMessage) // 發送訊息
			debates.GET("/:id/messages", debateHandler.GetMessages)  // 獲取訊息列表

			// 剩餘時間查詢
			debates.GET("/:id/time", debateHandler.GetRemainingTime)
		}

		// WebSocket 連接點，訂閱哪些辯論由連線上的 join/leave 訊息決定
		authorized.GET("/ws", wsHandler.HandleWebSocket)
	}
}
