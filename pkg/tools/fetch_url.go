package tools

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// FetchURLMaxBytes bounds the response body read into the tool result.
const FetchURLMaxBytes = 1 << 20

// FetchURLTool performs an HTTP GET, giving the `network` kind named
// in §4.3's tool-kind enum an actual implementation. Disabled unless
// explicitly registered by the caller.
type FetchURLTool struct {
	Client *http.Client
}

func NewFetchURLTool() *FetchURLTool {
	return &FetchURLTool{Client: &http.Client{Timeout: 15 * time.Second}}
}

func (t *FetchURLTool) Definition() Definition {
	return Definition{
		Name:        "fetch_url",
		Description: "Fetches a URL over HTTP GET and returns the response body.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string"},
			},
			"required": []any{"url"},
		},
		Kind:             KindNetwork,
		RequiresApproval: true,
	}
}

type fetchURLInput struct {
	URL string `json:"url"`
}

func (t *FetchURLTool) Invoke(ctx context.Context, call Call) (Result, error) {
	var in fetchURLInput
	if err := DecodeInput(call, &in); err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	if strings.TrimSpace(in.URL) == "" {
		return ErrorResult(call.ID, "url is required"), nil
	}
	if !strings.HasPrefix(in.URL, "http://") && !strings.HasPrefix(in.URL, "https://") {
		return ErrorResult(call.ID, "url must be http(s)"), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, nil)
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, FetchURLMaxBytes))
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	if resp.StatusCode >= 400 {
		return Result{ID: call.ID, OK: false, Error: resp.Status, Parts: []Part{{Type: PartText, Text: string(body)}}}, nil
	}
	return TextResult(call.ID, string(body)), nil
}
