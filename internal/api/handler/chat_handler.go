package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docuchat/admin-gateway/internal/core/domain"
	"github.com/docuchat/admin-gateway/internal/core/ports"
)

// ChatHandler exposes the retrieval-augmented chat.
type ChatHandler struct {
	chat ports.ChatService
}

func NewChatHandler(chat ports.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type askRequest struct {
	ConversationID string  `json:"conversation_id"`
	Query          string  `json:"query" validate:"required,min=1"`
	FileType       string  `json:"file_type"`
	TopK           int     `json:"k"`
	Threshold      float64 `json:"similarity_threshold"`
}

// Ask answers a question against the document corpus.
//
// @Summary      Ask the document corpus
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        body  body      askRequest  true  "Question and retrieval parameters"
// @Success      200   {object}  domain.ChatAnswer
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/chat [post]
func (h *ChatHandler) Ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	answer, err := h.chat.Ask(c.Request().Context(), domain.ChatQuery{
		ConversationID: req.ConversationID,
		Query:          req.Query,
		FileType:       req.FileType,
		TopK:           req.TopK,
		Threshold:      req.Threshold,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, answer)
}

// History returns a conversation transcript in ask order.
//
// @Summary      Conversation history
// @Tags         chat
// @Produce      json
// @Param        id  path  string  true  "Conversation ID"
// @Success      200  {array}   domain.ChatExchange
// @Failure      404  {object}  map[string]string
// @Router       /api/chat/{id} [get]
func (h *ChatHandler) History(c echo.Context) error {
	exchanges, err := h.chat.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, exchanges)
}
