package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"debate_hub/internal/models"
	"debate_hub/internal/service"
)

// DebateHandler 處理與辯論房間相關的請求
type DebateHandler struct {
	debateService *service.DebateService
}

// NewDebateHandler 創建一個新的 DebateHandler 實例
func NewDebateHandler(debateService *service.DebateService) *DebateHandler {
	return &DebateHandler{debateService: debateService}
}

// CreateDebate 處理創建新辯論的請求
func (h *DebateHandler) CreateDebate(c *gin.Context) {
	var input struct {
		Title       string           `json:"title" binding:"required"`
		Description string           `json:"description"`
		Languages   []string         `json:"languages"`
		Topics      []string         `json:"topics"`
		Capacity    int              `json:"capacity" binding:"required"`
		StartTime   *time.Time       `json:"start_time"`
		TimeLimit   int              `json:"time_limit"`
		Settings    *models.Settings `json:"settings"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")

	debate, err := h.debateService.CreateDebate(userID.(uint), service.CreateDebateInput{
		Title:       input.Title,
		Description: input.Description,
		Languages:   input.Languages,
		Topics:      input.Topics,
		Capacity:    input.Capacity,
		StartTime:   input.StartTime,
		TimeLimit:   input.TimeLimit,
		Settings:    input.Settings,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, debate)
}

// ListDebates 處理獲取辯論列表的請求
func (h *DebateHandler) ListDebates(c *gin.Context) {
	debates, err := h.debateService.ListDebates()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "無法取得辯論列表"})
		return
	}

	c.JSON(http.StatusOK, debates)
}

// GetDebate 處理獲取辯論訊息的請求
func (h *DebateHandler) GetDebate(c *gin.Context) {
	debateID, err := parseDebateID(c)
	if err != nil {
		return
	}

	debate, err := h.debateService.GetDebate(debateID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, debate)
}

// JoinDebate 處理加入辯論的請求
func (h *DebateHandler) JoinDebate(c *gin.Context) {
	debateID, err := parseDebateID(c)
	if err != nil {
		return
	}

	userID, _ := c.Get("userID")

	debate, err := h.debateService.JoinDebate(debateID, userID.(uint))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, debate)
}

// LeaveDebate 處理離開辯論的請求
func (h *DebateHandler) LeaveDebate(c *gin.Context) {
	debateID, err := parseDebateID(c)
	if err != nil {
		return
	}

	userID, _ := c.Get("userID")

	debate, err := h.debateService.LeaveDebate(debateID, userID.(uint))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, debate)
}

// EndDebate 處理結束辯論的請求
func (h *DebateHandler) EndDebate(c *gin.Context) {
	debateID, err := parseDebateID(c)
	if err != nil {
		return
	}

	userID, _ := c.Get("userID")

	debate, err := h.debateService.EndDebate(debateID, userID.(uint))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, debate)
}

// ChangeStatus 處理主持人手動變更狀態的請求
func (h *DebateHandler) ChangeStatus(c *gin.Context) {
	debateID, err := parseDebateID(c)
	if err != nil {
		return
	}

	var input struct {
		Status models.DebateStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")

	debate, err := h.debateService.ChangeStatus(debateID, userID.(uint), input.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, debate)
}

// ChangeSettings 處理主持人更新房間設定的請求
func (h *DebateHandler) ChangeSettings(c *gin.Context) {
	debateID, err := parseDebateID(c)
	if err != nil {
		return
	}

	var input models.Settings
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")

	debate, err := h.debateService.ChangeSettings(debateID, userID.(uint), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, debate)
}

// SendMessage 處理發送訊息的請求
func (h *DebateHandler) SendMessage(c *gin.Context) {
	debateID, err := parseDebateID(c)
	if err != nil {
		return
	}

	var input struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")

	message, err := h.debateService.SendMessage(debateID, userID.(uint), input.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// GetMessages 處理獲取辯論訊息列表的請求
func (h *DebateHandler) GetMessages(c *gin.Context) {
	debateID, err := parseDebateID(c)
	if err != nil {
		return
	}

	messages, err := h.debateService.GetMessages(debateID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// GetRemainingTime 處理查詢剩餘時間的請求
func (h *DebateHandler) GetRemainingTime(c *gin.Context) {
	debateID, err := parseDebateID(c)
	if err != nil {
		return
	}

	remaining, err := h.debateService.RemainingSeconds(debateID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"remaining_time": remaining})
}

// parseDebateID 解析路徑中的辯論 ID，失敗時直接回應 400
func parseDebateID(c *gin.Context) (uint, error) {
	debateID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的辯論ID"})
		return 0, err
	}
	return uint(debateID), nil
}
