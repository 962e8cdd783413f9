package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	contractx "github.com/avanse/counselor/agent/contract"
)

const maxResponseSizeBytes = 2 << 20

// GeminiConfig configures the Generative Language REST adapter.
type GeminiConfig struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"https://generativelanguage.googleapis.com/v1beta"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"gemini-2.5-flash"`
	Temperature float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	Search      bool          `envconfig:"SEARCH" split_words:"true" default:"true"`
}

// Gemini speaks the Generative Language generateContent wire protocol with
// per-request API keys. Grounding citations are surfaced when the backend
// attaches search results.
type Gemini struct {
	baseURL     string
	model       string
	temperature float32
	search      bool
	httpClient  *http.Client
}

func NewGemini(cfg GeminiConfig) *Gemini {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gemini{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
		search:      cfg.Search,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (g *Gemini) Provider() contractx.Provider { return contractx.ProviderGemini }

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"system_instruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  geminiGenConfig  `json:"generationConfig"`
	Tools             []map[string]any `json:"tools,omitempty"`
}

type geminiGenConfig struct {
	Temperature float32 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		GroundingMetadata struct {
			GroundingChunks []struct {
				Web struct {
					Title string `json:"title"`
					URI   string `json:"uri"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *Gemini) Send(ctx context.Context, req contractx.SendRequest) (contractx.SendResult, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = g.model
	}

	payload := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: composeSystem(req)}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.UserQuery}}},
		},
		GenerationConfig: geminiGenConfig{Temperature: g.temperature},
	}
	if g.search {
		payload.Tools = []map[string]any{{"google_search": map[string]any{}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return contractx.SendResult{}, classify(g.Provider(), 0, fmt.Sprintf("marshal request: %v", err))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, model, req.Credential)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return contractx.SendResult{}, classify(g.Provider(), 0, fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return contractx.SendResult{}, classify(g.Provider(), 0, fmt.Sprintf("execute request: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return contractx.SendResult{}, classify(g.Provider(), resp.StatusCode, fmt.Sprintf("read response: %v", err))
	}

	var decoded geminiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return contractx.SendResult{}, classify(g.Provider(), resp.StatusCode, fmt.Sprintf("decode response: %v", err))
	}

	if decoded.Error != nil {
		msg := decoded.Error.Message
		if decoded.Error.Status != "" {
			msg = decoded.Error.Status + ": " + msg
		}
		return contractx.SendResult{}, classify(g.Provider(), resp.StatusCode, msg)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return contractx.SendResult{}, classify(g.Provider(), resp.StatusCode, fmt.Sprintf("http status=%d body=%s", resp.StatusCode, string(raw)))
	}
	if len(decoded.Candidates) == 0 {
		return contractx.SendResult{}, classify(g.Provider(), resp.StatusCode, "no candidates in response")
	}

	cand := decoded.Candidates[0]
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		text.WriteString(part.Text)
	}

	var citations []contractx.Citation
	for _, chunk := range cand.GroundingMetadata.GroundingChunks {
		if chunk.Web.URI == "" {
			continue
		}
		citations = append(citations, contractx.Citation{Title: chunk.Web.Title, URL: chunk.Web.URI})
	}

	return contractx.SendResult{Text: text.String(), Citations: citations}, nil
}
