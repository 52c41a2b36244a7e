package transport

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxSSELineSize bounds a single SSE line. The default bufio.Scanner limit
// (64 KiB) is too small for long completions or large tool-call arguments.
const maxSSELineSize = 1 * 1024 * 1024

// sseEvent is one parsed Server-Sent Event: the joined "data:" payload plus
// the "event:" field name, when the server sets one (Anthropic does; OpenAI
// chat/responses streams rely on a type field inside the JSON payload
// instead).
type sseEvent struct {
	name string
	data string
}

// sseScanner reads Server-Sent Events from a response body. It joins
// multi-line data fields, skips comments and blank keep-alives, and detects
// the "[DONE]" sentinel OpenAI-compatible servers use to end a stream.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &sseScanner{scanner: scanner}
}

// next returns the next event, or io.EOF when the stream or the [DONE]
// sentinel is reached.
func (s *sseScanner) next() (sseEvent, error) {
	var dataLines []string
	var eventName string

	flush := func() (sseEvent, bool) {
		if len(dataLines) == 0 {
			return sseEvent{}, false
		}
		return sseEvent{name: eventName, data: strings.Join(dataLines, "\n")}, true
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if ev, ok := flush(); ok {
				return ev, nil
			}
			eventName = ""
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "event:") {
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return sseEvent{}, io.EOF
			}
			dataLines = append(dataLines, data)
			continue
		}

		// id:, retry:, anything else: not needed by this reader.
	}

	if err := s.scanner.Err(); err != nil {
		return sseEvent{}, fmt.Errorf("sse scanner: %w", err)
	}

	if ev, ok := flush(); ok {
		return ev, nil
	}
	return sseEvent{}, io.EOF
}
