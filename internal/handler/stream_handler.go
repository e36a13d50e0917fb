package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketplace-backend/internal/events"
	"github.com/shinyyama/marketplace-backend/internal/logging"
	"github.com/shinyyama/marketplace-backend/internal/service"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

type StreamHandler struct {
	convs    service.ConversationService
	sub      events.Subscriber
	upgrader websocket.Upgrader
}

func NewStreamHandler(convs service.ConversationService, sub events.Subscriber, checkOrigin func(*http.Request) bool) *StreamHandler {
	return &StreamHandler{
		convs: convs,
		sub:   sub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Stream pushes the conversation's events to a websocket until either side
// goes away. Frames sent by the client are ignored.
func (h *StreamHandler) Stream(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	if _, err := h.convs.Authorize(c.Request().Context(), convID, uid); err != nil {
		return writeServiceError(c, err, "failed to open stream")
	}

	// The subscription outlives the request context once the connection is
	// hijacked, so it gets its own.
	ctx, cancel := context.WithCancel(logging.WithLogger(context.Background(), logging.Ctx(c.Request().Context())))
	defer cancel()
	feed, err := h.sub.Subscribe(ctx, convID)
	if err != nil {
		if errors.Is(err, events.ErrUnsupported) {
			return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("unavailable", "live updates are disabled"))
		}
		return writeServiceError(c, err, "failed to open stream")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the error response.
		return nil
	}
	defer conn.Close()

	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-feed:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return nil
			}
			if err := conn.WriteJSON(ev); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
