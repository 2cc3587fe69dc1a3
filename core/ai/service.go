package ai

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/report"
)

var (
	// errors
	ErrNotFound        = errors.New("AI config not found")
	ErrNotConfigured   = errors.New("AI service is not configured")
	errUnsupportedType = errors.New("unsupported provider type")
	errAPIKeyRequired  = errors.New("apiKey is required")
	errEmptyGeneration = errors.New("the model returned no text")
)

const (
	keyValidMsg         = "API key is valid"
	reportSystemPrompt  = "You are an assistant helping teachers follow the progress of young English learners. Write in a warm and encouraging tone."
	summaryMaxRuneCount = 280
)

type (
	ConfigRepository interface {
		// GetConfig returns ErrNotFound when the provider was never configured.
		GetConfig(ctx context.Context, provider string) (ProviderConfig, error)
		// SaveConfig upserts on provider.
		SaveConfig(ctx context.Context, cfg ProviderConfig) (ProviderConfig, error)
	}

	ServiceInterface interface {
		Chat(ctx context.Context, req ChatRequest, w io.Writer) error
		GetConfig(ctx context.Context, provider string) (ConfigStatus, error)
		SaveConfig(ctx context.Context, sc SaveConfig) (ConfigStatus, error)
		TestKey(ctx context.Context, tc TestConfig) (TestResult, error)
	}

	Service struct {
		repo   ConfigRepository
		llm    LLM
		sealer *core.Sealer
		conf   *core.Config
	}
)

var (
	_ ServiceInterface = (*Service)(nil)
	_ report.Generator = (*Service)(nil)
)

func NewService(repo ConfigRepository, llm LLM, sealer *core.Sealer, conf *core.Config) *Service {
	return &Service{repo: repo, llm: llm, sealer: sealer, conf: conf}
}

// resolveKey picks the key of the request, then the environment, then the active stored config.
func (svc *Service) resolveKey(ctx context.Context, reqKey string) (string, string, error) {
	if reqKey != "" {
		return reqKey, SourceRequest, nil
	}
	if svc.conf.Gemini.APIKey != "" {
		return svc.conf.Gemini.APIKey, SourceEnv, nil
	}

	cfg, err := svc.repo.GetConfig(ctx, ProviderGemini)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return "", SourceNone, nil
		}
		return "", "", errors.Wrap(err, "getting AI config")
	}
	if !cfg.IsActive || cfg.APIKeySealed == "" {
		return "", SourceNone, nil
	}
	key, err := svc.sealer.Open(cfg.APIKeySealed)
	if err != nil {
		return "", "", errors.Wrap(err, "opening sealed API key")
	}
	return key, SourceDatabase, nil
}

// Chat streams the model answer to w. Nothing is written when an error occurs before the stream starts.
func (svc *Service) Chat(ctx context.Context, req ChatRequest, w io.Writer) error {
	key, _, err := svc.resolveKey(ctx, req.APIKey)
	if err != nil {
		return err
	}
	if key == "" {
		return ErrNotConfigured
	}

	return svc.llm.Stream(ctx, key, svc.conf.Gemini.FlashModel, req.Messages, func(delta string) error {
		_, err := io.WriteString(w, delta)
		return err
	})
}

func (svc *Service) GetConfig(ctx context.Context, provider string) (ConfigStatus, error) {
	provider = core.CleanString(provider, true /* lower */)
	if provider == "" {
		provider = ProviderGemini
	}
	if !isProvider(provider) {
		return ConfigStatus{}, core.NewValidationError(errUnsupportedType)
	}

	key, source, err := svc.resolveKey(ctx, "")
	if err != nil {
		return ConfigStatus{}, err
	}
	status := ConfigStatus{Provider: provider, Configured: key != "", Source: source}
	if key != "" {
		status.APIKeyPreview = core.MaskSecret(key)
	}
	return status, nil
}

// SaveConfig seals and stores the key. An empty key deactivates the provider.
func (svc *Service) SaveConfig(ctx context.Context, sc SaveConfig) (ConfigStatus, error) {
	now := time.Now().UTC()
	cfg := ProviderConfig{Provider: sc.Provider, CreatedAt: now, UpdatedAt: now}
	if sc.APIKey != "" {
		sealed, err := svc.sealer.Seal(sc.APIKey)
		if err != nil {
			return ConfigStatus{}, errors.Wrap(err, "sealing API key")
		}
		cfg.APIKeySealed = sealed
		cfg.IsActive = true
	}
	if _, err := svc.repo.SaveConfig(ctx, cfg); err != nil {
		return ConfigStatus{}, errors.Wrap(err, "saving AI config")
	}
	return svc.GetConfig(ctx, sc.Provider)
}

// TestKey checks a key against the provider.
// Rejections come back as *ProviderError, network failures as ErrUnreachable.
func (svc *Service) TestKey(ctx context.Context, tc TestConfig) (TestResult, error) {
	typ := core.CleanString(tc.Type, true /* lower */)
	key := core.CleanString(tc.Config.APIKey)
	if !isProvider(typ) {
		return TestResult{}, core.NewValidationError(errUnsupportedType)
	}
	if key == "" {
		return TestResult{}, core.NewValidationError(errAPIKeyRequired)
	}
	if err := svc.llm.ValidateKey(ctx, key); err != nil {
		return TestResult{}, err
	}
	return TestResult{Success: true, Message: keyValidMsg}, nil
}

// GenerateReport writes a report with the pro model.
func (svc *Service) GenerateReport(ctx context.Context, in report.GenerationInput) (report.Generation, error) {
	key, _, err := svc.resolveKey(ctx, "")
	if err != nil {
		return report.Generation{}, err
	}
	if key == "" {
		return report.Generation{}, ErrNotConfigured
	}

	model := svc.conf.Gemini.ProModel
	text, err := svc.llm.Generate(ctx, key, model, reportSystemPrompt, reportPrompt(in))
	if err != nil {
		return report.Generation{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return report.Generation{}, errEmptyGeneration
	}
	return report.Generation{Summary: summarize(text), Body: text, Model: model}, nil
}

func reportPrompt(in report.GenerationInput) string {
	var b strings.Builder
	kind := "a single session analysis"
	if in.ReportType == report.TypeQuarterly {
		kind = "a quarterly summary"
	}
	fmt.Fprintf(&b, "Write %s report for the student %q.\n", kind, in.Student.Name)
	b.WriteString("Start with a one paragraph summary, then detail strengths, difficulties and advice for the parents.\n\n")

	if in.HasRadar {
		m := in.Radar
		b.WriteString("Competency scores (0-100):\n")
		fmt.Fprintf(&b, "- language application: %.0f\n", m.LanguageApplication)
		fmt.Fprintf(&b, "- communication and collaboration: %.0f\n", m.CommunicationCollaboration)
		fmt.Fprintf(&b, "- problem solving: %.0f\n", m.ProblemSolving)
		fmt.Fprintf(&b, "- proactive exploration: %.0f\n", m.ProactiveExploration)
		fmt.Fprintf(&b, "- creative expression: %.0f\n", m.CreativeExpression)
		fmt.Fprintf(&b, "- intrinsic motivation: %.0f\n\n", m.IntrinsicMotivation)
	}

	if len(in.Errors) > 0 {
		b.WriteString("Recurring mistakes:\n")
		for _, e := range in.Errors {
			fmt.Fprintf(&b, "- [%s] %q seen %d time(s)", e.ErrorType, e.ErrorContent, e.Frequency)
			if e.CorrectContent != "" {
				fmt.Fprintf(&b, ", correct form %q", e.CorrectContent)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No recurring mistakes were recorded.\n")
	}
	return b.String()
}

// summarize keeps the first paragraph, cut to summaryMaxRuneCount.
func summarize(text string) string {
	sum := strings.TrimSpace(strings.SplitN(text, "\n\n", 2)[0])
	if r := []rune(sum); len(r) > summaryMaxRuneCount {
		sum = string(r[:summaryMaxRuneCount-1]) + "…"
	}
	return sum
}
