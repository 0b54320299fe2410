// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/normqa/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LLM implements ai.LLM using OpenAI-compatible chat APIs.
type LLM struct {
	client     llms.Model
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// newLLM is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newLLM(config *ai.Config) (*LLM, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &LLM{
		client:     client,
		maxRetries: config.MaxRetries,
		baseDelay:  config.RetryBaseDelay,
		logger:     slog.Default().With("component", "openai-llm"),
	}, nil
}

// NewLLM creates a new completion service using the provided configuration.
//
// Returns ai.LLM interface to enforce abstraction.
func NewLLM(config *ai.Config) (ai.LLM, error) {
	return newLLM(config)
}

// Generate produces a text completion for the prompt.
func (l *LLM) Generate(ctx context.Context, prompt, system string) (string, error) {
	var content []llms.MessageContent
	if system != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		})
	}
	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})
	return l.complete(ctx, content)
}

// GenerateJSON produces a completion and parses it into out, applying
// lenient JSON recovery before giving up.
func (l *LLM) GenerateJSON(ctx context.Context, prompt, system string, out any) error {
	var content []llms.MessageContent
	if system != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		})
	}
	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})

	text, err := l.completeWith(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		return err
	}
	if err := ParseJSONLenient(text, out); err != nil {
		l.logger.Warn("unparseable JSON completion", "response", truncateForLog(text), "err", err)
		return err
	}
	return nil
}

// GenerateChat produces a completion over a full message history.
func (l *LLM) GenerateChat(ctx context.Context, messages []ai.ChatMessage, system string) (string, error) {
	var content []llms.MessageContent
	if system != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		})
	}
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case "assistant":
			role = llms.ChatMessageTypeAI
		case "system":
			role = llms.ChatMessageTypeSystem
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}
	return l.complete(ctx, content)
}

func (l *LLM) complete(ctx context.Context, content []llms.MessageContent) (string, error) {
	return l.completeWith(ctx, content, llms.WithTemperature(0.1))
}

func (l *LLM) completeWith(ctx context.Context, content []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	var text string
	err := retryRateLimited(ctx, func() error {
		response, err := l.client.GenerateContent(ctx, content, opts...)
		if err != nil {
			return err
		}
		if len(response.Choices) < 1 {
			return ai.ErrEmptyCompletion
		}
		text = response.Choices[0].Content
		return nil
	}, l.maxRetries, l.baseDelay)
	if err != nil {
		l.logger.Error("completion failed", "err", err)
		return "", err
	}
	return text, nil
}

// truncateForLog keeps logged model responses readable.
func truncateForLog(s string) string {
	const max = 300
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
