package llmsvc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/ai"
)

const (
	apiVersion     = "v1beta"
	apiKeyHeader   = "x-goog-api-key"
	maxSSELineSize = 1 << 20
	requestTimeout = 60 * time.Second
)

type (
	part struct {
		Text string `json:"text"`
	}

	content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}

	generateRequest struct {
		Contents          []content `json:"contents"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}

	generateResponse struct {
		Candidates []struct {
			Content      content `json:"content"`
			FinishReason string  `json:"finishReason"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}

	errorResponse struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
)

func (r generateResponse) text() string {
	var b strings.Builder
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Gemini talks to the Generative Language REST API.
type Gemini struct {
	baseURL string
	http    *http.Client // streaming, no overall timeout
	rest    *rest.Client
}

var _ ai.LLM = (*Gemini)(nil)

func NewGemini(conf *core.Config) *Gemini {
	return &Gemini{
		baseURL: strings.TrimRight(conf.Gemini.BaseURL, "/"),
		http:    &http.Client{},
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: requestTimeout}},
	}
}

func (g *Gemini) modelURL(model, method string) string {
	return fmt.Sprintf("%s/%s/models/%s:%s", g.baseURL, apiVersion, url.PathEscape(model), method)
}

// buildRequest maps chat messages to Gemini contents. System messages become the system instruction.
func buildRequest(system string, msgs []ai.Message) generateRequest {
	req := generateRequest{Contents: make([]content, 0, len(msgs))}
	var sys []string
	if system != "" {
		sys = append(sys, system)
	}
	for _, m := range msgs {
		switch m.Role {
		case ai.RoleSystem:
			sys = append(sys, m.Content)
		case ai.RoleAssistant:
			req.Contents = append(req.Contents, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
		}
	}
	if len(sys) > 0 {
		req.SystemInstruction = &content{Parts: []part{{Text: strings.Join(sys, "\n\n")}}}
	}
	return req
}

// send runs a buffered call through the rest client, bound to ctx.
func (g *Gemini) send(ctx context.Context, r rest.Request) (*rest.Response, error) {
	req, err := rest.BuildRequestObject(r)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	res, err := g.rest.MakeRequest(req.WithContext(ctx))
	if err != nil {
		return nil, unreachable(ctx, err)
	}
	return rest.BuildResponse(res)
}

// unreachable reports a transport failure without the request URL.
func unreachable(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	return errors.Wrap(ai.ErrUnreachable, err.Error())
}

// providerError turns a non 2xx answer into an *ai.ProviderError.
func providerError(status int, body []byte) error {
	var er errorResponse
	msg := http.StatusText(status)
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		msg = er.Error.Message
	}
	return &ai.ProviderError{StatusCode: status, Message: msg}
}

// Stream calls streamGenerateContent with server-sent events and hands over each text chunk.
func (g *Gemini) Stream(ctx context.Context, apiKey, model string, msgs []ai.Message, onDelta func(string) error) error {
	body, err := json.Marshal(buildRequest("", msgs))
	if err != nil {
		return errors.Wrap(err, "marshalling request")
	}

	u := g.modelURL(model, "streamGenerateContent") + "?alt=sse"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(apiKeyHeader, apiKey)

	res, err := g.http.Do(req)
	if err != nil {
		return unreachable(ctx, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
		return providerError(res.StatusCode, b)
	}

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxSSELineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk generateResponse
		if err = json.Unmarshal([]byte(data), &chunk); err != nil {
			return errors.Wrap(err, "decoding stream chunk")
		}
		if text := chunk.text(); text != "" {
			if err = onDelta(text); err != nil {
				return errors.Wrap(err, "writing delta")
			}
		}
	}
	return errors.Wrap(scanner.Err(), "reading stream")
}

// Generate returns the whole answer of a single prompt.
func (g *Gemini) Generate(ctx context.Context, apiKey, model, system, prompt string) (string, error) {
	body, err := json.Marshal(buildRequest(system, []ai.Message{{Role: ai.RoleUser, Content: prompt}}))
	if err != nil {
		return "", errors.Wrap(err, "marshalling request")
	}

	res, err := g.send(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: g.modelURL(model, "generateContent"),
		Headers: map[string]string{"Content-Type": "application/json", apiKeyHeader: apiKey},
		Body:    body,
	})
	if err != nil {
		return "", err
	}
	if res.StatusCode/100 != 2 {
		return "", providerError(res.StatusCode, []byte(res.Body))
	}

	var gr generateResponse
	if err = json.Unmarshal([]byte(res.Body), &gr); err != nil {
		return "", errors.Wrap(err, "decoding response")
	}
	if gr.PromptFeedback.BlockReason != "" {
		return "", &ai.ProviderError{StatusCode: http.StatusBadRequest, Message: "prompt blocked: " + gr.PromptFeedback.BlockReason}
	}
	return gr.text(), nil
}

// ValidateKey lists the models, which any valid key may do.
func (g *Gemini) ValidateKey(ctx context.Context, apiKey string) error {
	res, err := g.send(ctx, rest.Request{
		Method:  rest.Get,
		BaseURL: fmt.Sprintf("%s/%s/models", g.baseURL, apiVersion),
		Headers: map[string]string{apiKeyHeader: apiKey},
	})
	if err != nil {
		return err
	}
	if res.StatusCode/100 != 2 {
		return providerError(res.StatusCode, []byte(res.Body))
	}
	return nil
}
