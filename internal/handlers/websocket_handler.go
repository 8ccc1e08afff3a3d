package handlers

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/handlers/ws"
	"go.uber.org/zap"
)

const maxFrameBytes = 64 * 1024

type WebSocketHandler struct {
	hub   *ws.Hub
	chat  ws.ChatBackend
	log   *zap.Logger
	debug bool
}

func NewWebSocketHandler(hub *ws.Hub, chat ws.ChatBackend, log *zap.Logger, debug bool) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, chat: chat, log: log, debug: debug}
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		_ = c.Close()
		return
	}

	// Check if client supports gzip compression (via query param or header)
	supportsGzip := c.Query("gzip") == "1" || c.Headers("X-Supports-Gzip") == "1"

	client := h.hub.Register(userID, c, supportsGzip)
	defer h.hub.Unregister(client)

	pongTimeout := h.hub.Config().PongTimeout
	c.SetReadLimit(maxFrameBytes)
	_ = c.SetReadDeadline(time.Now().Add(pongTimeout))
	c.SetPongHandler(func(string) error {
		h.hub.Touch(client)
		return c.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgCtx := &ws.MessageContext{
		Ctx:    ctx,
		Client: client,
		Hub:    h.hub,
		Chat:   h.chat,
		Log:    h.log,
	}

	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read failed", zap.Uint("user_id", userID), zap.Error(err))
			}
			break
		}
		_ = c.SetReadDeadline(time.Now().Add(pongTimeout))

		if h.debug {
			h.log.Debug("ws_recv", zap.Uint("user_id", userID), zap.Int("frame_type", messageType), zap.Int("size", len(messageBytes)))
		}

		// Decompress if binary message (gzip compressed)
		if messageType == websocket.BinaryMessage {
			decompressed, err := ws.DecompressMessage(messageBytes)
			if err != nil {
				h.hub.Send(client, ws.ErrorResponse{Type: ws.FrameError, Code: "decompression_failed", Error: "Failed to decompress message"})
				continue
			}
			messageBytes = decompressed
		}

		msg, err := ws.Deserialize(messageBytes)
		if err != nil {
			h.hub.Send(client, ws.ErrorResponse{Type: ws.FrameError, Code: "invalid_message", Error: "Invalid message format"})
			continue
		}

		if err := msg.Process(msgCtx); err != nil {
			h.log.Debug("websocket message rejected", zap.String("type", msg.GetType()), zap.Uint("user_id", userID), zap.Error(err))
			ws.SendError(msgCtx, err)
		}
	}
}
