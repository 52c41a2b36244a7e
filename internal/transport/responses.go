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

// responsesTransport drives the OpenAI Responses API. Events are
// discriminated by a top-level "type" field rather than by the choices[]
// shape chat completions use; the text payload may arrive under either
// "delta" or "text" depending on event type.
type responsesTransport struct {
	cfg    *config.Config
	client *http.Client
}

type responsesEvent struct {
	Type     string `json:"type"`
	Delta    string `json:"delta"`
	Text     string `json:"text"`
	Response *struct {
		Usage *responsesUsage `json:"usage"`
	} `json:"response"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type responsesUsage struct {
	InputTokens         *int `json:"input_tokens"`
	OutputTokens        *int `json:"output_tokens"`
	TotalTokens         *int `json:"total_tokens"`
	OutputTokensDetails *struct {
		ReasoningTokens *int `json:"reasoning_tokens"`
	} `json:"output_tokens_details"`
}

func (t *responsesTransport) Open(ctx context.Context, req Request) (Stream, error) {
	body := map[string]any{
		"model":  t.cfg.Model,
		"input":  req.Prompt,
		"stream": true,
	}
	if req.MaxOutputTokens != nil {
		body["max_output_tokens"] = *req.MaxOutputTokens
	}

	resp, err := doPostStream(ctx, t.client, t.cfg.URL, authHeaders(t.cfg), body)
	if err != nil {
		return nil, err
	}

	cs := newChannelStream(resp.Body)
	go t.readLoop(cs, resp.Body)
	return cs, nil
}

func (t *responsesTransport) readLoop(cs *channelStream, body io.ReadCloser) {
	defer cs.finish()

	scanner := newSSEScanner(body)
	for {
		sse, err := scanner.next()
		if err != nil {
			if err != io.EOF {
				cs.emit(streamevent.NewError(transporterr.Protocol("reading responses stream", err)))
			}
			return
		}

		var ev responsesEvent
		if err := json.Unmarshal([]byte(sse.data), &ev); err != nil {
			cs.emit(streamevent.NewError(transporterr.Parse("decoding responses event", err)))
			return
		}

		text := ev.Delta
		if text == "" {
			text = ev.Text
		}

		switch ev.Type {
		case "response.output_text.delta":
			if text != "" {
				cs.emit(streamevent.NewContentDelta(text))
			}
		case "response.reasoning_text.delta", "response.reasoning.delta":
			if text != "" {
				cs.emit(streamevent.NewReasoningDelta(text))
			}
		case "response.completed":
			if ev.Response != nil && ev.Response.Usage != nil {
				u := ev.Response.Usage
				cs.emit(streamevent.NewUsage(streamevent.TokenUsage{
					InputTokens:     u.InputTokens,
					OutputTokens:    u.OutputTokens,
					TotalTokens:     u.TotalTokens,
					ReasoningTokens: reasoningTokensOfResponses(u),
				}))
			}
		case "error":
			message := "responses api error"
			if ev.Error != nil && ev.Error.Message != "" {
				message = ev.Error.Message
			}
			cs.emit(streamevent.NewError(transporterr.Protocol(message, nil)))
			return
		default:
			// ping, response.created, response.output_item.* etc: ignored.
		}
	}
}

func reasoningTokensOfResponses(u *responsesUsage) *int {
	if u.OutputTokensDetails == nil {
		return nil
	}
	return u.OutputTokensDetails.ReasoningTokens
}
