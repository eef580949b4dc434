package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/balloonhub/marketplace-server/internal/service/messaging"
)

// MessageHandlers provides HTTP handlers for the messaging endpoints.
type MessageHandlers struct {
	service      *messaging.Service
	authRequired bool
	log          *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(service *messaging.Service, authRequired bool, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		service:      service,
		authRequired: authRequired,
		log:          logger,
	}
}

// SendMessageRequest represents the send message request body.
// Fields are validated by the messaging service so that the error names the missing field.
type SendMessageRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	ListingID  string `json:"listingId"`
	Content    string `json:"content"`
}

// Conversations lists the user's conversations, most recently active first.
// GET /api/messages/conversations/:userId
func (h *MessageHandlers) Conversations(c *gin.Context) {
	userID := c.Param("userId")
	if !authorizeUser(c, h.authRequired, userID) {
		return
	}

	convs, err := h.service.Conversations(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to fetch conversations")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch conversations"})
		return
	}

	c.JSON(http.StatusOK, toConversationResponses(convs))
}

// Thread returns the chronological thread and marks incoming messages read.
// GET /api/messages/:userId/:listingId/:otherUserId
func (h *MessageHandlers) Thread(c *gin.Context) {
	userID := c.Param("userId")
	listingID := c.Param("listingId")
	otherUserID := c.Param("otherUserId")
	if !authorizeUser(c, h.authRequired, userID) {
		return
	}

	thread, err := h.service.OpenThread(c.Request.Context(), userID, listingID, otherUserID)
	if err != nil {
		h.log.Error().Err(err).
			Str("user_id", userID).
			Str("listing_id", listingID).
			Str("other_user_id", otherUserID).
			Msg("failed to fetch messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, toMessageResponses(thread))
}

// Send appends a new message.
// POST /api/messages
func (h *MessageHandlers) Send(c *gin.Context) {
	var req SendMessageRequest
	if !bindJSON(c, &req) {
		h.log.Debug().Msg("invalid send message request")
		return
	}
	if req.SenderID != "" && !authorizeUser(c, h.authRequired, req.SenderID) {
		return
	}

	msg, err := h.service.Send(c.Request.Context(), messaging.SendInput{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		ListingID:  req.ListingID,
		Content:    req.Content,
	})
	if err != nil {
		if text, ok := validationMessage(err); ok {
			h.log.Debug().Err(err).Msg("rejected message")
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: text})
			return
		}
		h.log.Error().Err(err).
			Str("sender_id", req.SenderID).
			Str("receiver_id", req.ReceiverID).
			Str("listing_id", req.ListingID).
			Msg("failed to send message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to send message"})
		return
	}

	h.log.Debug().Str("message_id", msg.ID).Str("listing_id", msg.ListingID).Msg("message sent")
	c.JSON(http.StatusCreated, toMessageResponse(msg))
}
