package upstream

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"genai-console/internal/domain/generation"
)

// Client talks to the hosted generation provider. Responses stream back as
// the raw body; parsing belongs to the framer, not the transport.
type Client struct {
	http   *resty.Client
	apiKey string
	logger zerolog.Logger
}

func NewClient(baseURL, apiKey string, logger zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "text/event-stream")
	return &Client{
		http:   httpClient,
		apiKey: apiKey,
		logger: logger.With().Str("component", "upstream_client").Logger(),
	}
}

var _ generation.StreamOpener = (*Client)(nil)

// wire shapes for the provider request body.
type generatePayload struct {
	Model             string            `json:"model"`
	Contents          []contentPayload  `json:"contents"`
	SystemInstruction string            `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type contentPayload struct {
	Role  string        `json:"role"`
	Parts []partPayload `json:"parts"`
}

type partPayload struct {
	Text       string       `json:"text,omitempty"`
	InlineData *blobPayload `json:"inlineData,omitempty"`
}

type blobPayload struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	ThinkingBudget   *int     `json:"thinkingBudget,omitempty"`
	ImageAspectRatio string   `json:"imageAspectRatio,omitempty"`
	ImageResolution  string   `json:"imageResolution,omitempty"`
	Modalities       []string `json:"responseModalities,omitempty"`
}

// OpenStream issues the streaming generate call and hands back the raw body.
// The caller owns closing it.
func (c *Client) OpenStream(ctx context.Context, req *generation.UpstreamRequest) (io.ReadCloser, error) {
	payload := buildPayload(req)

	request := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetBody(payload)
	if c.apiKey != "" {
		request.SetHeader("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := request.Post("/v1/generate:stream")
	if err != nil {
		return nil, fmt.Errorf("open upstream stream: %w", err)
	}

	if resp.StatusCode() != 200 {
		body := readLimited(resp.RawBody(), 4096)
		resp.RawBody().Close()
		c.logger.Error().Int("status", resp.StatusCode()).Str("body", body).
			Msg("upstream rejected generate request")
		return nil, fmt.Errorf("upstream returned status %d: %s", resp.StatusCode(), body)
	}

	return resp.RawBody(), nil
}

func buildPayload(req *generation.UpstreamRequest) *generatePayload {
	payload := &generatePayload{
		Model:             req.Model,
		SystemInstruction: req.SystemInstruction,
	}
	for _, content := range req.Contents {
		cp := contentPayload{Role: content.Role}
		for _, part := range content.Parts {
			pp := partPayload{Text: part.Text}
			if part.InlineData != nil {
				pp.InlineData = &blobPayload{
					Data:     base64.StdEncoding.EncodeToString(part.InlineData.Data),
					MimeType: part.InlineData.MimeType,
				}
			}
			cp.Parts = append(cp.Parts, pp)
		}
		payload.Contents = append(payload.Contents, cp)
	}

	if req.Temperature != nil || req.ThinkingBudget != nil ||
		req.ImageAspectRatio != "" || req.ImageResolution != "" || len(req.Modalities) > 0 {
		payload.GenerationConfig = &generationConfig{
			Temperature:      req.Temperature,
			ThinkingBudget:   req.ThinkingBudget,
			ImageAspectRatio: req.ImageAspectRatio,
			ImageResolution:  req.ImageResolution,
			Modalities:       req.Modalities,
		}
	}
	return payload
}

func readLimited(r io.Reader, limit int64) string {
	raw, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return ""
	}
	return string(raw)
}
