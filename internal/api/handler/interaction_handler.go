package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/video-gateway/internal/api/upstream"
)

const (
	quizPath    = "/interact/generate-quiz/"
	chatPath    = "/interact/chat-with-content/"
	summaryPath = "/interact/generate-summary/"
	articlePath = "/interact/convert-to-article/"
)

// GenerateQuiz handles POST /generate-quiz
func (h *InteractionHandler) GenerateQuiz(c *gin.Context) {
	h.proxy(c, upstream.RoleQuiz, quizPath,
		"selected_index", "user_id", "total_questions", "hard_questions")
}

// ChatWithContent handles POST /chat-with-content
func (h *InteractionHandler) ChatWithContent(c *gin.Context) {
	h.proxy(c, upstream.RoleChat, chatPath,
		"selected_index", "user_id", "user_query", "chat_history")
}

// GenerateSummary handles POST /generate-summary
func (h *InteractionHandler) GenerateSummary(c *gin.Context) {
	h.proxy(c, upstream.RoleSummary, summaryPath,
		"selected_index", "user_id", "summary_length")
}

// ConvertToArticle handles POST /convert-to-article
// The interaction service answers with Markdown, which is relayed untouched.
func (h *InteractionHandler) ConvertToArticle(c *gin.Context) {
	body, ok := bindBody(c, "selected_index", "user_id")
	if !ok {
		return
	}

	reply, err := h.interaction.Forward(c.Request.Context(), upstream.RoleArticle, http.MethodPost, articlePath, nil, body)
	if err != nil {
		RespondError(c, err)
		return
	}

	relayRaw(c, reply, contentTypeMarkdown)
}

// proxy forwards the whole request body to path once required is satisfied.
func (h *InteractionHandler) proxy(c *gin.Context, role, path string, required ...string) {
	body, ok := bindBody(c, required...)
	if !ok {
		return
	}

	h.logger.Debug("Forwarding interaction request", slog.String("role", role))

	proxyJSON(c, h.interaction, role, http.MethodPost, path, nil, body)
}
