package gradio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const maxEventLine = 4 << 20

type event struct {
	Name string
	Data string
}

// readEvents parses a server-sent event stream and hands every dispatched
// event to fn until fn returns false or the stream ends.
func readEvents(r io.Reader, fn func(event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxEventLine)

	var cur event
	var data []string

	dispatch := func() bool {
		if cur.Name == "" && len(data) == 0 {
			return true
		}

		cur.Data = strings.Join(data, "\n")
		keepGoing := fn(cur)

		cur = event{}
		data = data[:0]

		return keepGoing
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if !dispatch() {
				return nil
			}

			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			cur.Name = value
		case "data":
			data = append(data, value)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read event stream: %w", err)
	}

	dispatch()

	return nil
}

func readStreamResult(body io.Reader, eventID EventID) ([]json.RawMessage, error) {
	var out []json.RawMessage
	var resultErr error
	done := false

	err := readEvents(body, func(ev event) bool {
		switch ev.Name {
		case "complete":
			done = true
			if err := json.Unmarshal([]byte(ev.Data), &out); err != nil {
				resultErr = fmt.Errorf("%w: failed to unmarshal complete event: %v", ErrInvalidResponse, err)
			} else if out == nil {
				resultErr = fmt.Errorf("%w: complete event without data", ErrInvalidResponse)
			}

			return false
		case "error":
			done = true
			resultErr = &JobFailedError{
				EventID: eventID,
				Message: errorMessage(ev.Data),
			}

			return false
		default: // generating, heartbeat
			return true
		}
	})
	if err != nil {
		return nil, err
	}

	if !done {
		return nil, fmt.Errorf("%w: event stream ended before completion", ErrInvalidResponse)
	}

	if resultErr != nil {
		return nil, resultErr
	}

	return out, nil
}

// errorMessage unwraps the payload of an error event, which is either null,
// a JSON string or free text depending on the server version.
func errorMessage(data string) string {
	data = strings.TrimSpace(data)
	if data == "" || data == "null" {
		return ""
	}

	var msg string
	if err := json.Unmarshal([]byte(data), &msg); err == nil {
		return msg
	}

	return data
}
