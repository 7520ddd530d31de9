package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

var ErrChatDisabled = errors.New("chat assistant is not configured")

// maxTranscript bounds the messages kept per user, excluding the system prompt.
const maxTranscript = 20

const chatSystemPrompt = `You are the help assistant of a job and course marketplace dashboard.
You help employees find jobs and courses, trainers manage their courses and applicants,
and admins manage accounts. Answer briefly in plain text. Only use the listings given
in the context; if something is not listed, say you do not know.`

// ChatService backs the dashboard's chat widget.
type ChatService struct {
	// Client is nil when no model is configured.
	Client llms.Model

	mu          sync.Mutex
	transcripts map[string][]llms.MessageContent
}

// NewChatService initializes a Gemini-backed assistant. An empty apiKey
// yields a disabled service rather than an error.
func NewChatService(ctx context.Context, apiKey, model string) (*ChatService, error) {
	if apiKey == "" {
		log.Println("[chat] GEMINI_API_KEY not set, chat widget disabled")
		return NewChatServiceWithModel(nil), nil
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return NewChatServiceWithModel(llm), nil
}

func NewChatServiceWithModel(m llms.Model) *ChatService {
	return &ChatService{
		Client:      m,
		transcripts: make(map[string][]llms.MessageContent),
	}
}

func (s *ChatService) Enabled() bool { return s.Client != nil }

// Reply answers message for user. listing describes what the user's view
// currently shows and is sent as context with every turn.
func (s *ChatService) Reply(ctx context.Context, user, message, listing string) (string, error) {
	if s.Client == nil {
		return "", ErrChatDisabled
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("empty message")
	}

	s.mu.Lock()
	history := append([]llms.MessageContent(nil), s.transcripts[user]...)
	s.mu.Unlock()

	system := chatSystemPrompt
	if listing != "" {
		system += "\n\n### CONTEXT:\n" + listing
	}
	turn := llms.TextParts(llms.ChatMessageTypeHuman, message)

	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	messages = append(messages, history...)
	messages = append(messages, turn)

	resp, err := s.Client.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	reply := strings.TrimSpace(resp.Choices[0].Content)

	s.mu.Lock()
	t := append(s.transcripts[user], turn, llms.TextParts(llms.ChatMessageTypeAI, reply))
	if len(t) > maxTranscript {
		t = t[len(t)-maxTranscript:]
	}
	s.transcripts[user] = t
	s.mu.Unlock()

	return reply, nil
}

// Reset forgets user's transcript.
func (s *ChatService) Reset(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcripts, user)
}
