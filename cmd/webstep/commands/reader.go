package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/loykin/webstep/pkg/message"
	"github.com/tidwall/gjson"
)

const maxLineBytes = 16 << 20

// readMessages parses one message per non-blank line. Accepted shapes:
//
//	{"headers":{"k":"v"},"payload":["a","b"]}
//	{"payload":"single item"}
//	{"control":true,"headers":{}}
func readMessages(r io.Reader, fn func(message.Message) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		msg, err := parseMessage(text)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(msg); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}

func parseMessage(text string) (message.Message, error) {
	if !gjson.Valid(text) {
		return message.Message{}, fmt.Errorf("invalid JSON")
	}
	doc := gjson.Parse(text)
	if !doc.IsObject() {
		return message.Message{}, fmt.Errorf("message must be a JSON object")
	}

	var headers map[string]string
	if h := doc.Get("headers"); h.IsObject() {
		headers = map[string]string{}
		h.ForEach(func(k, v gjson.Result) bool {
			headers[k.String()] = v.String()
			return true
		})
	}
	if doc.Get("control").Bool() {
		return message.NewControl(headers), nil
	}

	var payload []string
	switch p := doc.Get("payload"); {
	case p.IsArray():
		for _, item := range p.Array() {
			payload = append(payload, itemText(item))
		}
	case p.Exists():
		payload = []string{itemText(p)}
	}
	return message.NewData(headers, payload...), nil
}

// itemText keeps strings as-is and passes nested JSON through raw.
func itemText(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.String()
	}
	return v.Raw
}
