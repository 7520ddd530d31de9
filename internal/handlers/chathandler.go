package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/talent-dashboard/internal/dtos"
	"github.com/justsurfingit/talent-dashboard/internal/models"
	"github.com/justsurfingit/talent-dashboard/internal/services"
	"github.com/justsurfingit/talent-dashboard/internal/views"
)

// maxListed caps how many records of each collection are given to the model.
const maxListed = 30

type ChatHandler struct {
	Chat *services.ChatService
	View *views.View
}

func NewChatHandler(chat *services.ChatService, v *views.View) *ChatHandler {
	return &ChatHandler{Chat: chat, View: v}
}

// Reply is the POST /chat endpoint
func (h *ChatHandler) Reply(c *gin.Context) {
	var req dtos.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	reply, err := h.Chat.Reply(c.Request.Context(), h.View.User.Username, req.Message, describe(h.View))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Chat failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, dtos.ChatResponse{Reply: reply})
}

// Reset is the DELETE /chat endpoint
func (h *ChatHandler) Reset(c *gin.Context) {
	h.Chat.Reset(h.View.User.Username)
	c.Status(http.StatusNoContent)
}

// describe renders what the view currently shows as plain text context.
func describe(v *views.View) string {
	var b strings.Builder
	for _, col := range v.Collections() {
		lines := listing(col.Records())
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", col.Name())
		for i, line := range lines {
			if i == maxListed {
				fmt.Fprintf(&b, "- ... and %d more\n", len(lines)-maxListed)
				break
			}
			b.WriteString("- " + line + "\n")
		}
	}
	return b.String()
}

func listing(records any) []string {
	var lines []string
	switch rs := records.(type) {
	case []models.Job:
		for _, j := range rs {
			lines = append(lines, fmt.Sprintf("%s at %s (%s)", j.Title, j.Company, j.Location))
		}
	case []models.Course:
		for _, c := range rs {
			lines = append(lines, fmt.Sprintf("%s by %s, %.2f", c.Title, c.Trainer, c.Price))
		}
	case []models.Applicant:
		for _, a := range rs {
			lines = append(lines, fmt.Sprintf("%s <%s>: %s", a.Name, a.Email, a.Status))
		}
	case []models.User:
		for _, u := range rs {
			lines = append(lines, fmt.Sprintf("%s (%s)", u.Username, u.Role))
		}
	}
	return lines
}
