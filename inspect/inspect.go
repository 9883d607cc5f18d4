// Package inspect renders oracle request objects for human inspection.
//
// Request and response payloads live on the ledger hex-encoded; this package
// decodes them, pretty-prints embedded JSON, and pulls the assistant message
// out of an OpenAI-style response body so an operator can read the result
// without chasing nested fields.
package inspect

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// truncation limits for the simplified message view.
const (
	systemPreviewLen = 500
	userPreviewLen   = 100
	bodyPreviewLen   = 200
)

// DecodeHex decodes a 0x-prefixed hex string to UTF-8 text.
func DecodeHex(s string) string {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return "[Unable to decode hex]"
	}
	return string(b)
}

// FormatTimestamp renders a millisecond timestamp as a date string.
func FormatTimestamp(ms string) string {
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return ms
	}
	return time.UnixMilli(n).Format("2006-01-02 15:04:05")
}

// requestObject mirrors the ledger's object response shape; only the fields
// the report shows are decoded.
type requestObject struct {
	Data []struct {
		ID           string `json:"id"`
		ObjectType   string `json:"object_type"`
		Owner        string `json:"owner"`
		CreatedAt    string `json:"created_at"`
		UpdatedAt    string `json:"updated_at"`
		DecodedValue struct {
			Value struct {
				// Numeric fields arrive as decimal strings on the wire.
				Amount         string `json:"amount"`
				RequestAccount string `json:"request_account"`
				Oracle         string `json:"oracle"`
				ResponseStatus string `json:"response_status"`
				Params         struct {
					Value struct {
						URL     string `json:"url"`
						Method  string `json:"method"`
						Headers string `json:"headers"`
						Body    string `json:"body"`
					} `json:"value"`
				} `json:"params"`
				Response optionVec `json:"response"`
				Notify   optionVec `json:"notify"`
			} `json:"value"`
		} `json:"decoded_value"`
	} `json:"data"`
}

// optionVec is the Move Option<vector<u8>> encoding.
type optionVec struct {
	Value struct {
		Vec struct {
			Value [][]string `json:"value"`
		} `json:"vec"`
	} `json:"value"`
}

// first returns the inner hex string, if present.
func (o optionVec) first() (string, bool) {
	v := o.Value.Vec.Value
	if len(v) == 0 || len(v[0]) == 0 {
		return "", false
	}
	return v[0][0], true
}

// chatMessage is one entry of an OpenAI-style messages array.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SimplifyRequestBody pretty-prints a request body, truncating chat message
// content so prompts do not drown the report.
func SimplifyRequestBody(body string) string {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		if len(body) > bodyPreviewLen {
			body = body[:bodyPreviewLen]
		}
		return body + "...\n(Request body truncated for readability)"
	}

	if rawMessages, ok := parsed["messages"].([]interface{}); ok {
		simplified := make([]chatMessage, 0, len(rawMessages))
		for _, raw := range rawMessages {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			msg := chatMessage{Role: "unknown"}
			if role, ok := entry["role"].(string); ok {
				msg.Role = role
			}
			if content, ok := entry["content"].(string); ok {
				msg.Content = content
			}

			limit := userPreviewLen
			if msg.Role == "system" {
				limit = systemPreviewLen
			}
			if len(msg.Content) > limit {
				msg.Content = msg.Content[:limit] + "... (truncated)"
			}
			simplified = append(simplified, msg)
		}
		parsed["messages"] = simplified
	}

	out, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return body
	}
	return string(out)
}

// AssistantContent extracts the assistant message from an OpenAI-style
// response body. Returns false when the shape does not match.
func AssistantContent(body string) (string, bool) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return "", false
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", false
	}
	return resp.Choices[0].Message.Content, true
}

// Render writes a human-readable report of an oracle request object.
func Render(w io.Writer, raw []byte) error {
	var obj requestObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("decode object response: %w", err)
	}
	if len(obj.Data) == 0 {
		return fmt.Errorf("no object data found")
	}

	entry := obj.Data[0]
	value := entry.DecodedValue.Value

	fmt.Fprintf(w, "\n===== Oracle Request Object =====\n\n")
	fmt.Fprintf(w, "ID: %s\n", entry.ID)
	fmt.Fprintf(w, "Type: %s\n", entry.ObjectType)
	fmt.Fprintf(w, "Owner: %s\n", entry.Owner)
	fmt.Fprintf(w, "Created: %s\n", FormatTimestamp(entry.CreatedAt))
	fmt.Fprintf(w, "Updated: %s\n", FormatTimestamp(entry.UpdatedAt))

	fmt.Fprintf(w, "\n===== Request Details =====\n\n")
	if value.Amount != "" {
		fmt.Fprintf(w, "Amount: %s (Gas)\n", value.Amount)
	}
	if value.RequestAccount != "" {
		fmt.Fprintf(w, "Requester: %s\n", value.RequestAccount)
	}
	if value.Oracle != "" {
		fmt.Fprintf(w, "Oracle: %s\n", value.Oracle)
	}

	params := value.Params.Value
	fmt.Fprintf(w, "\n===== HTTP Request =====\n\n")
	if params.URL != "" {
		fmt.Fprintf(w, "URL: %s\n", params.URL)
	}
	if params.Method != "" {
		fmt.Fprintf(w, "Method: %s\n", params.Method)
	}
	if params.Headers != "" {
		fmt.Fprintf(w, "\nHeaders:\n%s\n", params.Headers)
	}
	if params.Body != "" {
		fmt.Fprintf(w, "\nRequest Body:\n%s\n", SimplifyRequestBody(params.Body))
	}

	if hexStr, ok := value.Notify.first(); ok {
		fmt.Fprintf(w, "\n===== Callback Details =====\n\n")
		fmt.Fprintf(w, "Callback: %s\n", DecodeHex(hexStr))
	}

	fmt.Fprintf(w, "\n===== Response =====\n\n")
	if value.ResponseStatus != "" {
		fmt.Fprintf(w, "Status: %s\n", value.ResponseStatus)
	}

	if hexStr, ok := value.Response.first(); ok {
		decoded := DecodeHex(hexStr)
		fmt.Fprintf(w, "\nResponse Content:\n")

		var pretty interface{}
		if err := json.Unmarshal([]byte(decoded), &pretty); err == nil {
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Fprintf(w, "%s\n", out)
			if content, ok := AssistantContent(decoded); ok {
				fmt.Fprintf(w, "\n===== AI Response Content =====\n\n%s\n", content)
			}
		} else {
			fmt.Fprintf(w, "%s\n", decoded)
		}
	} else {
		fmt.Fprintf(w, "\nNo response content available\n")
	}

	fmt.Fprintf(w, "\n===== End of Oracle Request Details =====\n\n")
	return nil
}
