package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketplace-backend/internal/directory"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/service"
)

type ConversationHandler struct {
	convs service.ConversationService
	msgs  service.MessageService
}

func NewConversationHandler(convs service.ConversationService, msgs service.MessageService) *ConversationHandler {
	return &ConversationHandler{convs: convs, msgs: msgs}
}

type ConversationResponse struct {
	ConversationID uint64             `json:"conversationId"`
	BuyerUID       string             `json:"buyerUid"`
	SellerUID      string             `json:"sellerUid"`
	ProductID      *uint64            `json:"productId,omitempty"`
	LastMessage    string             `json:"lastMessage"`
	LastMessageAt  *string            `json:"lastMessageAt,omitempty"`
	CreatedAt      string             `json:"createdAt"`
	UpdatedAt      string             `json:"updatedAt"`
	Counterpart    *directory.Profile `json:"counterpart,omitempty"`
	UnreadCount    int64              `json:"unreadCount"`
	HasUnread      bool               `json:"hasUnread"`
}

type MessageResponse struct {
	ID              uint64  `json:"id"`
	ConversationID  uint64  `json:"conversationId"`
	SenderUID       string  `json:"senderUid"`
	SenderName      string  `json:"senderName"`
	SenderAvatarURL *string `json:"senderAvatarUrl"`
	Body            string  `json:"body"`
	IsRead          bool    `json:"isRead"`
	CreatedAt       string  `json:"createdAt"`
}

type CreateConversationRequest struct {
	CounterpartyUID string  `json:"counterpartyUid"`
	ProductID       *uint64 `json:"productId"`
}

type MessageRequest struct {
	Body string `json:"body"`
}

func toConversationResponse(cv *model.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ConversationID: cv.ID,
		BuyerUID:       cv.BuyerUID,
		SellerUID:      cv.SellerUID,
		ProductID:      cv.ProductID,
		LastMessage:    cv.LastMessage,
		CreatedAt:      cv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      cv.UpdatedAt.Format(time.RFC3339),
	}
	if cv.LastMessageAt != nil {
		s := cv.LastMessageAt.Format(time.RFC3339Nano)
		resp.LastMessageAt = &s
	}
	return resp
}

func toMessageResponse(m service.MessageView) MessageResponse {
	return MessageResponse{
		ID:              m.ID,
		ConversationID:  m.ConversationID,
		SenderUID:       m.SenderUID,
		SenderName:      m.SenderName,
		SenderAvatarURL: m.SenderAvatarURL,
		Body:            m.Body,
		IsRead:          m.IsRead,
		CreatedAt:       m.CreatedAt.Format(time.RFC3339Nano),
	}
}

func (h *ConversationHandler) List(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	rows, err := h.convs.ListForUser(c.Request().Context(), uid)
	if err != nil {
		return writeServiceError(c, err, "failed to fetch conversations")
	}
	resp := make([]ConversationResponse, 0, len(rows))
	for _, row := range rows {
		r := toConversationResponse(&row.Conversation)
		counterpart := row.Counterpart
		r.Counterpart = &counterpart
		r.UnreadCount = row.UnreadCount
		r.HasUnread = row.UnreadCount > 0
		resp = append(resp, r)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) Create(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	cv, created, err := h.convs.CreateOrGet(c.Request().Context(), uid, req.CounterpartyUID, req.ProductID)
	if err != nil {
		return writeServiceError(c, err, "failed to create conversation")
	}
	return c.JSON(createdStatus(created), toConversationResponse(cv))
}

func (h *ConversationHandler) CreateFromProduct(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	productID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid product id"))
	}
	cv, created, err := h.convs.CreateForProduct(c.Request().Context(), uid, productID)
	if err != nil {
		return writeServiceError(c, err, "failed to create conversation")
	}
	return c.JSON(createdStatus(created), toConversationResponse(cv))
}

func (h *ConversationHandler) Get(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	ctx := c.Request().Context()
	cv, err := h.convs.Authorize(ctx, convID, uid)
	if err != nil {
		return writeServiceError(c, err, "failed to fetch conversation")
	}
	resp := toConversationResponse(cv)
	if n, err := h.msgs.UnreadCount(ctx, cv.ID, uid); err == nil {
		resp.UnreadCount = n
		resp.HasUnread = n > 0
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) ListMessages(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	ctx := c.Request().Context()
	if _, err := h.convs.Authorize(ctx, convID, uid); err != nil {
		return writeServiceError(c, err, "failed to fetch messages")
	}
	msgs, err := h.msgs.List(ctx, convID)
	if err != nil {
		return writeServiceError(c, err, "failed to fetch messages")
	}
	resp := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, toMessageResponse(m))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) CreateMessage(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	ctx := c.Request().Context()
	if _, err := h.convs.Authorize(ctx, convID, uid); err != nil {
		return writeServiceError(c, err, "failed to send message")
	}
	msg, err := h.msgs.Send(ctx, convID, uid, req.Body)
	if err != nil {
		return writeServiceError(c, err, "failed to send message")
	}
	return c.JSON(http.StatusCreated, toMessageResponse(*msg))
}

func (h *ConversationHandler) MarkRead(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	n, err := h.msgs.MarkRead(c.Request().Context(), convID, uid)
	if err != nil {
		return writeServiceError(c, err, "failed to mark read")
	}
	return c.JSON(http.StatusOK, map[string]int64{"updated": n})
}

func (h *ConversationHandler) DeleteMessage(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	msgID, ok := parseID(c, "msgId")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid message id"))
	}
	if err := h.msgs.Delete(c.Request().Context(), convID, msgID, uid); err != nil {
		return writeServiceError(c, err, "failed to delete message")
	}
	return c.NoContent(http.StatusNoContent)
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
