// Package web is the HTTP transport for the gateway: exactly two routes,
// GET /health and POST /chat.
package web

// audioInput is the wire shape of an inline audio attachment.
type audioInput struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type clientInfo struct {
	TraceID string `json:"traceId"`
}

// chatRequest is the POST /chat request body.
type chatRequest struct {
	SessionID string      `json:"sessionId"`
	Message   string      `json:"message"`
	Audio     *audioInput `json:"audio,omitempty"`
	VoiceMode bool        `json:"voiceMode"`
	Client    *clientInfo `json:"client,omitempty"`
}

type audioOutput struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type toolTraceEntry struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMs int64  `json:"durationMs"`
}

type warningEntry struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// chatResponse is the POST /chat 200 response body.
type chatResponse struct {
	SessionID string           `json:"sessionId"`
	Language  string           `json:"language"`
	Reply     string           `json:"reply"`
	Audio     *audioOutput     `json:"audio,omitempty"`
	ToolTrace []toolTraceEntry `json:"toolTrace,omitempty"`
	Warnings  []warningEntry   `json:"warnings,omitempty"`
}

// errorResponse is the body of every non-2xx response. A RATE_LIMITED
// error additionally carries retryAfter.
type errorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Status     int    `json:"status"`
	TraceID    string `json:"traceId,omitempty"`
	Details    string `json:"details,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}
