package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/shantoislamdev/llmprobe/internal/config"
	"github.com/shantoislamdev/llmprobe/internal/streamevent"
	"github.com/shantoislamdev/llmprobe/internal/transporterr"
)

// anthropicTransport drives the Anthropic Messages streaming protocol. Unlike
// the OpenAI-shaped adapters, the event kind arrives on the SSE "event:"
// line, and usage is split across message_start (input tokens) and
// message_delta (cumulative output tokens).
type anthropicTransport struct {
	cfg    *config.Config
	client *http.Client
}

type anthropicMessage struct {
	Usage *anthropicUsage `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  *int `json:"input_tokens"`
	OutputTokens *int `json:"output_tokens"`
}

type anthropicContentDelta struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Thinking string `json:"thinking"`
}

// anthropicStreamEvent is the union of fields that appear across the
// message_start / content_block_delta / message_delta / error payloads. Only
// the fields relevant to one event type are populated on any given message.
type anthropicStreamEvent struct {
	Type    string                 `json:"type"`
	Message *anthropicMessage      `json:"message"`
	Delta   *anthropicContentDelta `json:"delta"`
	Usage   *anthropicUsage        `json:"usage"` // present on message_delta, cumulative output
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (t *anthropicTransport) Open(ctx context.Context, req Request) (Stream, error) {
	body := map[string]any{
		"model":  t.cfg.Model,
		"stream": true,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	maxTokens := 1024
	if req.MaxOutputTokens != nil {
		maxTokens = *req.MaxOutputTokens
	}
	body["max_tokens"] = maxTokens

	resp, err := doPostStream(ctx, t.client, t.cfg.URL, authHeaders(t.cfg), body)
	if err != nil {
		return nil, err
	}

	cs := newChannelStream(resp.Body)
	go t.readLoop(cs, resp.Body)
	return cs, nil
}

func (t *anthropicTransport) readLoop(cs *channelStream, body io.ReadCloser) {
	defer cs.finish()

	var inputTokens *int

	scanner := newSSEScanner(body)
	for {
		sse, err := scanner.next()
		if err != nil {
			if err != io.EOF {
				cs.emit(streamevent.NewError(transporterr.Protocol("reading anthropic stream", err)))
			}
			return
		}

		var ev anthropicStreamEvent
		if err := json.Unmarshal([]byte(sse.data), &ev); err != nil {
			cs.emit(streamevent.NewError(transporterr.Parse("decoding anthropic event", err)))
			return
		}

		switch sse.name {
		case "message_start":
			if ev.Message != nil && ev.Message.Usage != nil {
				inputTokens = ev.Message.Usage.InputTokens
			}
		case "content_block_delta":
			if ev.Delta == nil {
				continue
			}
			switch ev.Delta.Type {
			case "text_delta":
				if ev.Delta.Text != "" {
					cs.emit(streamevent.NewContentDelta(ev.Delta.Text))
				}
			case "thinking_delta":
				if ev.Delta.Thinking != "" {
					cs.emit(streamevent.NewReasoningDelta(ev.Delta.Thinking))
				}
			}
		case "message_delta":
			if ev.Usage != nil {
				cs.emit(streamevent.NewUsage(streamevent.TokenUsage{
					InputTokens:  inputTokens,
					OutputTokens: ev.Usage.OutputTokens,
					TotalTokens:  sumTokens(inputTokens, ev.Usage.OutputTokens),
				}))
			}
		case "error":
			message := "anthropic stream error"
			if ev.Error != nil && ev.Error.Message != "" {
				message = ev.Error.Message
			}
			cs.emit(streamevent.NewError(transporterr.Protocol(message, nil)))
			return
		case "message_stop":
			return
		default:
			// ping, content_block_start, content_block_stop: ignored.
		}
	}
}

func sumTokens(a, b *int) *int {
	if a == nil || b == nil {
		return nil
	}
	total := *a + *b
	return &total
}
