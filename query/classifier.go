package query

import (
	"context"
	"regexp"
	"strings"

	"github.com/poiesic/normqa/ai"
	"github.com/poiesic/normqa/core"
)

const (
	intentQuery = "query"
	intentChat  = "chat"
)

// embedded binary payloads (base64 data URIs) stripped before chat replies
var dataURIRe = regexp.MustCompile(`data:[a-zA-Z0-9.+/-]+;base64,[A-Za-z0-9+/=]+`)

// classify decides whether the latest user message needs document search or
// a conversational reply. Defaults to query on any provider failure: doing
// real work beats silently skipping search.
func (e *Engine) classify(ctx context.Context, messages []core.Message) string {
	if len(messages) == 0 {
		return intentQuery
	}

	window := windowMessages(messages, e.historyWindow)

	var out struct {
		Intent string `json:"intent"`
	}
	err := e.callLLM(func() error {
		return e.llm.GenerateJSON(ctx, buildClassifierPrompt(window), classifierSystem, &out)
	})
	if err != nil {
		e.logger.Warn("intent classification failed, defaulting to query", "err", err)
		return intentQuery
	}

	if strings.EqualFold(strings.TrimSpace(out.Intent), intentChat) {
		return intentChat
	}
	return intentQuery
}

// chatReply produces a conversational answer over the windowed history,
// with embedded binary payloads stripped.
func (e *Engine) chatReply(ctx context.Context, messages []core.Message) (string, error) {
	window := windowMessages(messages, e.historyWindow)

	chat := make([]ai.ChatMessage, 0, len(window))
	for _, m := range window {
		chat = append(chat, ai.ChatMessage{
			Role:    m.Role,
			Content: stripPayloads(m.Content),
		})
	}

	var reply string
	err := e.callLLM(func() error {
		var genErr error
		reply, genErr = e.llm.GenerateChat(ctx, chat, chatPersona)
		return genErr
	})
	if err != nil {
		e.logger.Error("chat reply failed", "err", err)
		return "", err
	}
	return reply, nil
}

// windowMessages returns the last n messages.
func windowMessages(messages []core.Message, n int) []core.Message {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

func stripPayloads(content string) string {
	return dataURIRe.ReplaceAllString(content, "[attachment removed]")
}
