package transport

import (
	"net/http/httptest"
	"testing"

	"github.com/shantoislamdev/llmprobe/internal/config"
	"github.com/shantoislamdev/llmprobe/internal/streamevent"
	"github.com/shantoislamdev/llmprobe/internal/transporterr"
)

const anthropicStreamBody = `event: message_start
data: {"type":"message_start","message":{"usage":{"input_tokens":25}}}

event: ping
data: {"type":"ping"}

event: content_block_start
data: {"type":"content_block_start"}

event: content_block_delta
data: {"type":"content_block_delta","delta":{"type":"thinking_delta","thinking":"hmm"}}

event: content_block_delta
data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello"}}

event: content_block_stop
data: {"type":"content_block_stop"}

event: message_delta
data: {"type":"message_delta","usage":{"output_tokens":17}}

event: message_stop
data: {"type":"message_stop"}

`

func TestAnthropicTransport_NormalizesEvents(t *testing.T) {
	srv := httptest.NewServer(sseHandler(anthropicStreamBody))
	defer srv.Close()

	tr, err := New(testConfig(srv.URL, config.FlavorAnthropicMessages), srv.Client())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	events := drain(t, tr)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3 (ping/block framing ignored): %+v", len(events), events)
	}

	if events[0].Kind != streamevent.ReasoningDelta || events[0].Text != "hmm" {
		t.Errorf("event 0 = %+v, want reasoning from thinking_delta", events[0])
	}
	if events[1].Kind != streamevent.ContentDelta || events[1].Text != "Hello" {
		t.Errorf("event 1 = %+v, want content from text_delta", events[1])
	}

	usage := events[2]
	if usage.Kind != streamevent.Usage {
		t.Fatalf("event 2 = %+v, want usage from message_delta", usage)
	}
	if usage.Usage.InputTokens == nil || *usage.Usage.InputTokens != 25 {
		t.Errorf("input tokens = %v, want 25 carried over from message_start", usage.Usage.InputTokens)
	}
	if usage.Usage.OutputTokens == nil || *usage.Usage.OutputTokens != 17 {
		t.Errorf("output tokens = %v, want 17", usage.Usage.OutputTokens)
	}
	if usage.Usage.TotalTokens == nil || *usage.Usage.TotalTokens != 42 {
		t.Errorf("total tokens = %v, want 42 (input + output)", usage.Usage.TotalTokens)
	}
}

func TestAnthropicTransport_ErrorEvent(t *testing.T) {
	body := `event: error
data: {"type":"error","error":{"message":"overloaded"}}

`
	srv := httptest.NewServer(sseHandler(body))
	defer srv.Close()

	tr, _ := New(testConfig(srv.URL, config.FlavorAnthropicMessages), srv.Client())
	events := drain(t, tr)

	if len(events) != 1 || events[0].Kind != streamevent.ErrorEvent {
		t.Fatalf("got %+v, want a single error event", events)
	}
	if kind, _ := transporterr.KindOf(events[0].Err); kind != transporterr.KindProtocol {
		t.Errorf("error kind = %q, want protocol", kind)
	}
}

func TestAnthropicTransport_EmptyDeltasDropped(t *testing.T) {
	body := `event: content_block_delta
data: {"type":"content_block_delta","delta":{"type":"text_delta","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"real"}}

event: message_stop
data: {"type":"message_stop"}

`
	srv := httptest.NewServer(sseHandler(body))
	defer srv.Close()

	tr, _ := New(testConfig(srv.URL, config.FlavorAnthropicMessages), srv.Client())
	events := drain(t, tr)

	if len(events) != 1 || events[0].Text != "real" {
		t.Fatalf("got %+v, want only the non-empty delta", events)
	}
}
