package relayerapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrRelayer is wrapped by errors reported inside a relayer envelope.
var ErrRelayer = errors.New("relayer: request rejected")

// Extract unwraps the payload of a relayer or chainstore response.
//
// Relayer responses look like {"status":"success","response":{...}} and
// chainstore responses like {"result":...}. A {"status":"error"} envelope
// becomes an error wrapping ErrRelayer. Bodies without either field are
// returned unchanged. When the payload is itself a JSON-encoded string
// holding a document (chainstore double-encodes values), the inner document
// is returned.
func Extract(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var envelope struct {
		Status   string          `json:"status"`
		Message  string          `json:"message"`
		Response json.RawMessage `json:"response"`
		Result   json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return append([]byte(nil), trimmed...), nil
	}
	if envelope.Status == "error" || envelope.Status == "failure" {
		msg := envelope.Message
		if msg == "" {
			msg = string(envelope.Response)
		}
		return nil, fmt.Errorf("%w: %s", ErrRelayer, msg)
	}

	payload := envelope.Response
	if payload == nil {
		payload = envelope.Result
	}
	if payload == nil {
		return append([]byte(nil), trimmed...), nil
	}
	return unwrapEncoded(payload), nil
}

// Decode extracts the payload and unmarshals it into out. An empty body
// decodes as JSON null.
func Decode(body []byte, out any) error {
	payload, err := Extract(body)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		payload = []byte("null")
	}
	return json.Unmarshal(payload, out)
}

func unwrapEncoded(payload json.RawMessage) []byte {
	var asString string
	if err := json.Unmarshal(payload, &asString); err == nil {
		decoded := asString
		for i := 0; i < 4; i++ {
			unquoted, err := strconv.Unquote(decoded)
			if err != nil {
				break
			}
			decoded = unquoted
		}
		var inner json.RawMessage
		if err := json.Unmarshal([]byte(decoded), &inner); err == nil {
			return append([]byte(nil), inner...)
		}
	}
	return append([]byte(nil), payload...)
}

// Success wraps payload in a success envelope.
func Success(payload any) map[string]any {
	return map[string]any{"status": "success", "response": payload}
}

// Failure builds an error envelope.
func Failure(message string) map[string]any {
	return map[string]any{"status": "error", "message": message}
}
