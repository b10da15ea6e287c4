package subscription

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ironsan2kk-pixel/back-sub000/internal/api"
	"github.com/ironsan2kk-pixel/back-sub000/internal/channel"
	"github.com/ironsan2kk-pixel/back-sub000/internal/logger"
	"github.com/ironsan2kk-pixel/back-sub000/internal/membership"
	"github.com/ironsan2kk-pixel/back-sub000/internal/user"
)

type Handler struct {
	service  *Service
	users    user.Repository
	channels channel.Repository
	members  membership.Client
}

func NewHandler(service *Service, users user.Repository, channels channel.Repository, members membership.Client) *Handler {
	return &Handler{
		service:  service,
		users:    users,
		channels: channels,
		members:  members,
	}
}

func (h *Handler) ListByUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	subs, err := h.service.ListByUser(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("Listing subscriptions for user %d failed: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list subscriptions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

type GrantRequest struct {
	UserID       int64  `json:"user_id" binding:"required"`
	TargetType   string `json:"target_type" binding:"required,oneof=channel package"`
	TargetID     int64  `json:"target_id" binding:"required"`
	DurationDays *int   `json:"duration_days" binding:"required,gte=0"`
}

// Grant is the administrative path: access without a payment.
func (h *Handler) Grant(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	ctx := c.Request.Context()

	u, err := h.users.GetByID(ctx, req.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	channels, err := h.channels.ResolveChannels(ctx, channel.TargetType(req.TargetType), req.TargetID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	invites := []gin.H{}
	for _, ch := range channels {
		sub, err := h.service.Grant(ctx, u.ID, ch.ID, *req.DurationDays, false)
		if err != nil {
			logger.Errorf("Manual grant failed for user %d channel %d: %v", u.ID, ch.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "grant failed"})
			return
		}

		link, err := h.members.GrantAccess(ctx, ch.TelegramChatID, u.TelegramID, sub.ExpiresAt)
		if err != nil {
			logger.Errorf("Invite issue failed for user %d channel %d: %v", u.ID, ch.ID, err)
			invites = append(invites, gin.H{"channel_id": ch.ID, "error": "invite failed"})
			continue
		}
		invites = append(invites, gin.H{"channel_id": ch.ID, "link": link})
	}

	c.JSON(http.StatusCreated, gin.H{"invites": invites})
}

type TrialRequest struct {
	UserID    int64 `json:"user_id" binding:"required"`
	ChannelID int64 `json:"channel_id" binding:"required"`
}

var errTrialUsed = errors.New("trial already used")

// Trial issues the one free trial a (user, channel) pair ever gets.
func (h *Handler) Trial(c *gin.Context) {
	var req TrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	ctx := c.Request.Context()

	u, err := h.users.GetByID(ctx, req.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	ch, err := h.channels.GetChannelByID(ctx, req.ChannelID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}
	if ch.TrialDays <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "channel has no trial"})
		return
	}

	used, err := h.service.HasUsedTrial(ctx, u.ID, ch.ID)
	if err != nil {
		logger.Errorf("Trial check failed for user %d channel %d: %v", u.ID, ch.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "trial check failed"})
		return
	}
	if used {
		c.JSON(http.StatusConflict, gin.H{"error": errTrialUsed.Error()})
		return
	}

	sub, err := h.service.Grant(ctx, u.ID, ch.ID, ch.TrialDays, true)
	if errors.Is(err, ErrTrialNotAllowed) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logger.Errorf("Trial grant failed for user %d channel %d: %v", u.ID, ch.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "trial grant failed"})
		return
	}

	link, err := h.members.GrantAccess(ctx, ch.TelegramChatID, u.TelegramID, sub.ExpiresAt)
	if err != nil {
		logger.Errorf("Trial invite failed for user %d channel %d: %v", u.ID, ch.ID, err)
		c.JSON(http.StatusCreated, gin.H{"subscription": sub, "warning": "invite failed, retry grant"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"subscription": sub, "link": link})
}
