package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"gopherai-docchat/internal/app"
	"gopherai-docchat/internal/model"
	"gopherai-docchat/internal/pkg/markdown"
	"gopherai-docchat/internal/transport/http/middleware"
	"gopherai-docchat/internal/transport/http/response"
)

type ChatService interface {
	AskQuestion(ctx context.Context, input app.AskQuestionInput) (string, error)
	ListChats(ctx context.Context, tokenIdentifier string, documentID uint) ([]model.ChatRecord, error)
}

type ChatHandler struct {
	chatService ChatService
}

type AskQuestionRequest struct {
	Question string `json:"question" binding:"required,notblank,max=4000"`
}

type ChatRecordView struct {
	model.ChatRecord
	HTML string `json:"html,omitempty"`
}

func NewChatHandler(chatService ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Ask(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req AskQuestionRequest
	if !bindJSON(c, &req) {
		return
	}

	answer, err := h.chatService.AskQuestion(c.Request.Context(), app.AskQuestionInput{
		TokenIdentifier: middleware.TokenIdentifier(c),
		DocumentID:      id,
		Question:        req.Question,
	})
	if err != nil {
		writeError(c, err, "ask question failed")
		return
	}
	response.OK(c, gin.H{"answer": answer})
}

// List returns the chat records of a document. With render=html every record
// also carries its text rendered from markdown.
func (h *ChatHandler) List(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	records, err := h.chatService.ListChats(c.Request.Context(), middleware.TokenIdentifier(c), id)
	if err != nil {
		writeError(c, err, "list chats failed")
		return
	}

	if c.Query("render") != "html" {
		response.OK(c, records)
		return
	}

	views := make([]ChatRecordView, 0, len(records))
	for _, r := range records {
		view := ChatRecordView{ChatRecord: r}
		if rendered, err := markdown.ToHTML(r.Text); err == nil {
			view.HTML = rendered
		}
		views = append(views, view)
	}
	response.OK(c, views)
}
