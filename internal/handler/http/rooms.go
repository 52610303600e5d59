package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"room-reservation/internal/domain"
	"room-reservation/internal/service"
)

// RoomHandler 封装了预留/确认/取消/离开以及统计读路径的 HTTP 处理逻辑
type RoomHandler struct {
	reservations *service.ReservationService
	stats        *service.StatsService
}

// NewRoomHandler 创建 RoomHandler 实例
func NewRoomHandler(reservations *service.ReservationService, stats *service.StatsService) *RoomHandler {
	return &RoomHandler{reservations: reservations, stats: stats}
}

// ReserveRequest 定义预留请求的结构体
type ReserveRequest struct {
	RoomType string `json:"room_type" binding:"required"`
	Region   string `json:"region"` // 可选，空串表示不限区域
}

// RoomResponse 定义返回给客户端的房间视图
type RoomResponse struct {
	RoomID    uint      `json:"room_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Region    string    `json:"region"`
	Capacity  int       `json:"capacity"`
	Occupancy int       `json:"occupancy"`
	Available int       `json:"available"`
	ServedAt  time.Time `json:"served_at"`
}

func newRoomResponse(room *domain.Room) RoomResponse {
	return RoomResponse{
		RoomID:    room.ID,
		Name:      room.Name,
		Type:      room.Type,
		Region:    room.Region,
		Capacity:  room.Capacity,
		Occupancy: room.Occupancy,
		Available: room.Available(),
		ServedAt:  time.Now(),
	}
}

// Reserve 处理预留请求
func (h *RoomHandler) Reserve(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logCtx.WithError(err).Warn("Handler.Reserve: invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: room_type is required")
		return
	}

	room, err := h.reservations.Reserve(c.Request.Context(), userID, req.RoomType, req.Region)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.Reserve: reservation failed")
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, newRoomResponse(room))
}

// Confirm 处理确认请求
func (h *RoomHandler) Confirm(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	room, err := h.reservations.Confirm(c.Request.Context(), userID, roomID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID}).
			WithError(err).Warn("Handler.Confirm: confirmation failed")
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, newRoomResponse(room))
}

// Cancel 处理取消预留请求（PENDING 会话）
func (h *RoomHandler) Cancel(c *gin.Context) {
	h.end(c, h.reservations.Cancel, "cancelled")
}

// Release 处理离开请求（CONFIRMED 会话）
func (h *RoomHandler) Release(c *gin.Context) {
	h.end(c, h.reservations.Release, "released")
}

// Stats 返回指定房间类型的即时统计
func (h *RoomHandler) Stats(c *gin.Context) {
	roomType := c.Query("type")
	if roomType == "" {
		ErrorResponse(c, http.StatusBadRequest, "Query parameter 'type' is required")
		return
	}
	stats, err := h.stats.GetStats(c.Request.Context(), roomType)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, stats)
}

// Analytics 返回指定房间的占用快照分析
func (h *RoomHandler) Analytics(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	windowDays, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	analytics, err := h.stats.GetAnalytics(c.Request.Context(), roomID, windowDays)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, analytics)
}

func (h *RoomHandler) end(c *gin.Context, op func(ctx context.Context, userID, roomID uint) error, verb string) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	if err := op(c.Request.Context(), userID, roomID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Session " + verb, "room_id": roomID})
}

// parseRoomID 解析路径参数中的房间 ID
func parseRoomID(c *gin.Context) (uint, bool) {
	roomIDStr := c.Param("roomId")
	roomID, err := strconv.ParseUint(roomIDStr, 10, 64)
	if err != nil || roomID == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid room id")
		return 0, false
	}
	return uint(roomID), true
}
