package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin/render"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/balloonhub/marketplace-server/internal/auth"
	"github.com/balloonhub/marketplace-server/internal/config"
	"github.com/balloonhub/marketplace-server/internal/core"
	"github.com/balloonhub/marketplace-server/internal/proto"
)

// wsPattern is served by a plain net/http mux ahead of the gin router: gin's
// response writer refuses to be hijacked once the upgrade headers are flushed.
const wsPattern = "GET /api/ws/{userId}"

// WSHandler upgrades HTTP connections and bridges them to core.Client.
// The connection is push-only: the server sends conversation events and
// ignores anything but control frames from the client.
type WSHandler struct {
	hub          *core.Hub
	auth         *auth.Service
	authRequired bool
	clientBuffer int
	accept       *websocket.AcceptOptions
	log          *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler. authService is only consulted
// when cfg.Auth.Required is set.
func NewWSHandler(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	accept := &websocket.AcceptOptions{}
	if len(cfg.CORSAllowedOrigins) == 0 || cfg.CORSAllowedOrigins[0] == "*" {
		accept.InsecureSkipVerify = true
	} else {
		accept.OriginPatterns = cfg.CORSAllowedOrigins
	}
	return &WSHandler{
		hub:          hub,
		auth:         authService,
		authRequired: cfg.Auth.Required,
		clientBuffer: cfg.Notify.ClientBuffer,
		accept:       accept,
		log:          logger,
	}
}

// ServeHTTP streams conversation events for one user.
// GET /api/ws/{userId}
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(HeaderRequestID, requestID)
	logger := h.log.With().Str("request_id", requestID).Str("user_id", userID).Logger()

	if status, msg := h.authorize(r, userID); status != http.StatusOK {
		logger.Debug().Int("status", status).Str("reason", msg).Msg("ws upgrade rejected")
		writeError(w, status, msg)
		return
	}

	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		logger.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()

	client := core.NewClient(uuid.NewString(), userID, h.clientBuffer)
	if !h.hub.RegisterClient(client) {
		conn.Close(websocket.StatusTryAgainLater, "server shutting down")
		return
	}
	defer h.hub.UnregisterClient(client)

	start := time.Now()
	logger.Info().Str("client_id", client.ID).Msg("ws connected")

	// CloseRead handles control frames and cancels ctx once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	if err := wsjson.Write(ctx, conn, proto.Outbound{
		Type: proto.OutboundTypeReady,
		Data: proto.ReadyData{UserID: userID, Protocol: proto.ProtocolVersion},
	}); err != nil {
		logger.Debug().Err(err).Str("client_id", client.ID).Msg("write ws ready")
		return
	}

	err = h.writeLoop(ctx, conn, client)
	logger.Info().Str("client_id", client.ID).Dur("duration", time.Since(start)).Msg("ws disconnected")
	switch {
	case err == nil:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	case errors.Is(err, context.Canceled):
		conn.Close(websocket.StatusNormalClosure, "closing")
	default:
		if s := websocket.CloseStatus(err); s == websocket.StatusNormalClosure || s == websocket.StatusGoingAway {
			return
		}
		logger.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		conn.Close(websocket.StatusInternalError, "internal error")
	}
}

// authorize mirrors AuthMiddleware and authorizeUser for the upgrade request.
func (h *WSHandler) authorize(r *http.Request, userID string) (int, string) {
	if !h.authRequired {
		return http.StatusOK, ""
	}
	token, err := bearerToken(r)
	if err != nil {
		return http.StatusUnauthorized, err.Error()
	}
	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		return http.StatusUnauthorized, "invalid token"
	}
	if claims.UserID != userID {
		return http.StatusForbidden, "forbidden"
	}
	return http.StatusOK, ""
}

// writeLoop returns nil when the hub closes the client's channel.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(client.UserID, event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// writeError renders an ErrorResponse outside of gin.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = render.JSON{Data: ErrorResponse{Error: msg}}.Render(w)
}
