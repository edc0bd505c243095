package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskmanager/backend/internal/models"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrAssistantNotConfigured is returned when no API key was provided.
var ErrAssistantNotConfigured = errors.New("assistant not configured")

// Assistant answers free-text questions over a user's task list using a chat
// model.
type Assistant struct {
	client  *openai.Client
	model   openai.ChatModel
	timeout time.Duration
}

// NewAssistant returns a disabled assistant when apiKey is empty; callers get
// ErrAssistantNotConfigured instead of a startup failure, since the chat
// feature is optional.
func NewAssistant(apiKey string, timeout time.Duration) *Assistant {
	if apiKey == "" {
		return &Assistant{timeout: timeout}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Assistant{
		client:  &client,
		model:   openai.ChatModelGPT4oMini,
		timeout: timeout,
	}
}

func (a *Assistant) Enabled() bool { return a.client != nil }

// Answer sends the user's tasks plus their question to the chat model.
func (a *Assistant) Answer(ctx context.Context, tasks []models.Task, question string) (string, error) {
	if a.client == nil {
		return "", ErrAssistantNotConfigured
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question cannot be empty")
	}

	req := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String("You are a helpful personal task assistant. Answer the user's question using only their current task list."),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(fmt.Sprintf("User's Current Tasks:\n%s\n\nUser's Query: %s", FormatTaskList(tasks), question)),
					},
				},
			},
		},
		Temperature: openai.Float(0.3),
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion received")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// FormatTaskList renders tasks as the numbered list fed into the prompt.
func FormatTaskList(tasks []models.Task) string {
	if len(tasks) == 0 {
		return "No tasks available."
	}

	var sb strings.Builder
	for i, task := range tasks {
		description := task.Description
		if description == "" {
			description = "No description"
		}
		due := "No due date"
		if task.DueDate != nil {
			due = task.DueDate.Format("2006-01-02 15:04")
		}
		sb.WriteString(fmt.Sprintf("%d. %s - %s (Due: %s)\n", i+1, task.Title, description, due))
	}
	return strings.TrimRight(sb.String(), "\n")
}
