package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/moodmate/backend/internal/logging"
	"github.com/zhouzirui/moodmate/backend/internal/model/chat"
	"github.com/zhouzirui/moodmate/backend/internal/model/persona"
)

// ErrEmptyReply is returned when the model hands back no message at all.
var ErrEmptyReply = errors.New("model returned no message")

// Client builds the prompt for a turn and asks the chat model for a reply.
type Client struct {
	chatModel model.ChatModel
	persona   persona.Persona
	template  prompt.ChatTemplate
	logger    *log.Logger
}

// NewClient creates a completion client for the given persona.
func NewClient(chatModel model.ChatModel, p persona.Persona, logger *log.Logger) *Client {
	return &Client{
		chatModel: chatModel,
		persona:   p,
		template: prompt.FromMessages(
			schema.FString,
			schema.SystemMessage("{system}"),
			schema.MessagesPlaceholder("history", true),
			schema.UserMessage("{query}"),
		),
		logger: logging.Component(logger, "ai"),
	}
}

// ChatModel 返回底层的聊天模型
func (c *Client) ChatModel() model.ChatModel {
	return c.chatModel
}

// BuildMessages returns the system directive, the replayed transcript and the new message, in that order.
func (c *Client) BuildMessages(ctx context.Context, session chat.Session, userText string) ([]*schema.Message, error) {
	messages, err := c.template.Format(ctx, map[string]any{
		"system":  BuildSystemPrompt(c.persona, session.DisplayName),
		"history": buildHistoryMessages(session.Transcript),
		"query":   userText,
	})
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}
	return messages, nil
}

// Generate performs one blocking completion. Failures are returned inside the Result.
func (c *Client) Generate(ctx context.Context, session chat.Session, userText string) Result {
	if c.chatModel == nil {
		return Failed(errors.New("chat model not configured"))
	}

	messages, err := c.BuildMessages(ctx, session, userText)
	if err != nil {
		return Failed(err)
	}

	response, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		c.logger.Warn("completion failed", "kind", Classify(err), "err", err)
		return Failed(err)
	}
	if response == nil {
		return Failed(ErrEmptyReply)
	}

	c.logger.Debug("completion succeeded", "messages", len(messages), "length", len(response.Content))
	return Ok(response.Content)
}

// Complete returns the reply text, or "⚠️ Error: <details>" on any failure.
func (c *Client) Complete(ctx context.Context, session chat.Session, userText string) string {
	return c.Generate(ctx, session, userText).Reply()
}

func buildHistoryMessages(transcript []chat.Turn) []*schema.Message {
	if len(transcript) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(transcript)*2)
	for _, turn := range transcript {
		history = append(history,
			schema.UserMessage(turn.UserText),
			schema.AssistantMessage(turn.BotText, nil),
		)
	}
	return history
}
