package handlers

import (
	"net/http"
	"strconv"

	"chat-relay/internal/models"

	"github.com/gin-gonic/gin"
)

// PresenceSource answers presence queries from the live relay state.
type PresenceSource interface {
	Presence(userID uint) models.Presence
	OnlineUsers() []uint
}

type PresenceHandler struct {
	source PresenceSource
}

func NewPresenceHandler(source PresenceSource) *PresenceHandler {
	return &PresenceHandler{source: source}
}

type OnlineUsersResponse struct {
	Users []uint `json:"users"`
	Count int    `json:"count"`
}

// @Summary List online users
// @Description Ids of every user with at least one live connection
// @Tags presence
// @Produce json
// @Security BearerAuth
// @Success 200 {object} OnlineUsersResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /presence/online [get]
func (h *PresenceHandler) GetOnlineUsers(c *gin.Context) {
	users := h.source.OnlineUsers()
	c.JSON(http.StatusOK, OnlineUsersResponse{Users: users, Count: len(users)})
}

// @Summary Get user presence
// @Description Online, typing or offline state of one user
// @Tags presence
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} models.Presence
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /presence/{userId} [get]
func (h *PresenceHandler) GetUserPresence(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid user id",
			Details: c.Param("userId"),
		})
		return
	}

	c.JSON(http.StatusOK, h.source.Presence(uint(id)))
}
