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

// chatTransport drives the OpenAI-compatible chat completions protocol:
// data: {json}\n\n chunks containing choices[].delta, terminated by
// data: [DONE].
type chatTransport struct {
	cfg    *config.Config
	client *http.Client
}

// chatChunk is the subset of a chat completion stream chunk this reader
// cares about. reasoning_content and reasoning are both accepted since
// servers disagree on which field name they use for hidden chain-of-thought.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
			Reasoning        string `json:"reasoning"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage"`
}

type chatUsage struct {
	PromptTokens            *int `json:"prompt_tokens"`
	CompletionTokens        *int `json:"completion_tokens"`
	TotalTokens             *int `json:"total_tokens"`
	CompletionTokensDetails *struct {
		ReasoningTokens *int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details"`
}

func (t *chatTransport) Open(ctx context.Context, req Request) (Stream, error) {
	body := map[string]any{
		"model": t.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
		"stream": true,
		"stream_options": map[string]bool{
			"include_usage": true,
		},
	}
	if req.MaxOutputTokens != nil {
		body["max_tokens"] = *req.MaxOutputTokens
	}

	resp, err := doPostStream(ctx, t.client, t.cfg.URL, authHeaders(t.cfg), body)
	if err != nil {
		return nil, err
	}

	cs := newChannelStream(resp.Body)
	go t.readLoop(cs, resp.Body)
	return cs, nil
}

func (t *chatTransport) readLoop(cs *channelStream, body io.ReadCloser) {
	defer cs.finish()

	scanner := newSSEScanner(body)
	for {
		ev, err := scanner.next()
		if err != nil {
			if err != io.EOF {
				cs.emit(streamevent.NewError(transporterr.Protocol("reading chat stream", err)))
			}
			return
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(ev.data), &chunk); err != nil {
			cs.emit(streamevent.NewError(transporterr.Parse("decoding chat chunk", err)))
			return
		}

		if chunk.Usage != nil {
			cs.emit(streamevent.NewUsage(streamevent.TokenUsage{
				InputTokens:     chunk.Usage.PromptTokens,
				OutputTokens:    chunk.Usage.CompletionTokens,
				TotalTokens:     chunk.Usage.TotalTokens,
				ReasoningTokens: reasoningTokensOf(chunk.Usage),
			}))
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			cs.emit(streamevent.NewContentDelta(delta.Content))
		}
		reasoning := delta.ReasoningContent
		if reasoning == "" {
			reasoning = delta.Reasoning
		}
		if reasoning != "" {
			cs.emit(streamevent.NewReasoningDelta(reasoning))
		}
	}
}

func reasoningTokensOf(u *chatUsage) *int {
	if u.CompletionTokensDetails == nil {
		return nil
	}
	return u.CompletionTokensDetails.ReasoningTokens
}
