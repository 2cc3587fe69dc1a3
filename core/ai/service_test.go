package ai_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/ai"
	"github.com/Ing-la/future-navigator/core/radar"
	"github.com/Ing-la/future-navigator/core/report"
	"github.com/Ing-la/future-navigator/core/student"
	inmemdb "github.com/Ing-la/future-navigator/storage/database/inmem"
)

// fakeLLM answers with canned text and remembers the last call.
type fakeLLM struct {
	key, model, prompt string
	msgs               []ai.Message
	answer             string
	err                error
}

func (f *fakeLLM) Stream(_ context.Context, apiKey, model string, msgs []ai.Message, onDelta func(string) error) error {
	f.key, f.model, f.msgs = apiKey, model, msgs
	if f.err != nil {
		return f.err
	}
	for _, w := range strings.SplitAfter(f.answer, " ") {
		if err := onDelta(w); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeLLM) Generate(_ context.Context, apiKey, model, _, prompt string) (string, error) {
	f.key, f.model, f.prompt = apiKey, model, prompt
	return f.answer, f.err
}

func (f *fakeLLM) ValidateKey(_ context.Context, apiKey string) error {
	f.key = apiKey
	return f.err
}

type fixture struct {
	svc  *ai.Service
	llm  *fakeLLM
	repo ai.ConfigRepository
	conf *core.Config
}

func newFixture(t *testing.T, envKey string) fixture {
	t.Helper()
	conf := &core.Config{Gemini: core.GeminiConfig{APIKey: envKey, FlashModel: "flash", ProModel: "pro"}}
	sealer, err := core.NewSealer("test-secret")
	require.NoError(t, err)
	llm := &fakeLLM{answer: "Hello dear teacher"}
	repo := inmemdb.NewAIConfigRepository(inmemdb.Open())
	return fixture{svc: ai.NewService(repo, llm, sealer, conf), llm: llm, repo: repo, conf: conf}
}

func TestService_Chat(t *testing.T) {
	ctx := context.Background()
	msgs := []ai.Message{{Role: ai.RoleUser, Content: "hi"}}

	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t, "")
		var buf bytes.Buffer
		err := f.svc.Chat(ctx, ai.ChatRequest{Messages: msgs}, &buf)
		assert.Equal(t, ai.ErrNotConfigured, errors.Cause(err))
		assert.Zero(t, buf.Len())
	})

	t.Run("key precedence", func(t *testing.T) {
		f := newFixture(t, "env-key")
		_, err := f.svc.SaveConfig(ctx, ai.SaveConfig{Provider: ai.ProviderGemini, APIKey: "db-key"})
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, f.svc.Chat(ctx, ai.ChatRequest{Messages: msgs, APIKey: "req-key"}, &buf))
		assert.Equal(t, "req-key", f.llm.key)
		assert.Equal(t, "flash", f.llm.model)
		assert.Equal(t, "Hello dear teacher", buf.String())

		require.NoError(t, f.svc.Chat(ctx, ai.ChatRequest{Messages: msgs}, &buf))
		assert.Equal(t, "env-key", f.llm.key)

		f.conf.Gemini.APIKey = ""
		require.NoError(t, f.svc.Chat(ctx, ai.ChatRequest{Messages: msgs}, &buf))
		assert.Equal(t, "db-key", f.llm.key)
	})

	t.Run("provider error", func(t *testing.T) {
		f := newFixture(t, "env-key")
		f.llm.err = &ai.ProviderError{StatusCode: 429, Message: "quota"}
		err := f.svc.Chat(ctx, ai.ChatRequest{Messages: msgs}, &bytes.Buffer{})
		var perr *ai.ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, 429, perr.StatusCode)
	})
}

func TestService_SaveConfig(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")

	status, err := f.svc.SaveConfig(ctx, ai.SaveConfig{Provider: ai.ProviderGemini, APIKey: "AIzaSy-secret-key"})
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Equal(t, ai.SourceDatabase, status.Source)
	assert.NotContains(t, status.APIKeyPreview, "secret")

	cfg, err := f.repo.GetConfig(ctx, ai.ProviderGemini)
	require.NoError(t, err)
	assert.True(t, cfg.IsActive)
	assert.NotContains(t, cfg.APIKeySealed, "AIzaSy", "keys are stored sealed")

	status, err = f.svc.SaveConfig(ctx, ai.SaveConfig{Provider: ai.ProviderGemini})
	require.NoError(t, err)
	assert.Equal(t, ai.ConfigStatus{Provider: ai.ProviderGemini, Source: ai.SourceNone}, status)

	updated, err := f.repo.GetConfig(ctx, ai.ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, updated.ID, "saving upserts on provider")
	assert.False(t, updated.IsActive)
}

func TestService_TestKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")

	tc := ai.TestConfig{Type: " Gemini "}
	tc.Config.APIKey = " key-1 "
	res, err := f.svc.TestKey(ctx, tc)
	require.NoError(t, err)
	assert.Equal(t, ai.TestResult{Success: true, Message: "API key is valid"}, res)
	assert.Equal(t, "key-1", f.llm.key)

	f.llm.err = errors.Wrap(ai.ErrUnreachable, "dial tcp")
	_, err = f.svc.TestKey(ctx, tc)
	assert.Equal(t, ai.ErrUnreachable, errors.Cause(err))
}

func TestService_GenerateReport(t *testing.T) {
	ctx := context.Background()
	in := report.GenerationInput{
		ReportType: report.TypeQuarterly,
		Student:    student.Student{Name: "Mia"},
		Errors:     []student.LearningError{{ErrorType: student.ErrorGrammar, ErrorContent: "he go", CorrectContent: "he goes", Frequency: 3}},
		Radar:      radar.Metrics{LanguageApplication: 80},
		HasRadar:   true,
	}

	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t, "")
		_, err := f.svc.GenerateReport(ctx, in)
		assert.Equal(t, ai.ErrNotConfigured, errors.Cause(err))
	})

	t.Run("generated", func(t *testing.T) {
		f := newFixture(t, "env-key")
		f.llm.answer = "  Mia made great progress.\n\nStrengths: reading.  "
		gen, err := f.svc.GenerateReport(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "pro", gen.Model)
		assert.Equal(t, "Mia made great progress.", gen.Summary)
		assert.Equal(t, "Mia made great progress.\n\nStrengths: reading.", gen.Body)

		assert.Contains(t, f.llm.prompt, "quarterly summary")
		assert.Contains(t, f.llm.prompt, `"Mia"`)
		assert.Contains(t, f.llm.prompt, "language application: 80")
		assert.Contains(t, f.llm.prompt, `"he go" seen 3 time(s), correct form "he goes"`)
	})

	t.Run("long summary is cut", func(t *testing.T) {
		f := newFixture(t, "env-key")
		f.llm.answer = strings.Repeat("a", 500)
		gen, err := f.svc.GenerateReport(ctx, in)
		require.NoError(t, err)
		assert.Len(t, []rune(gen.Summary), 280)
		assert.True(t, strings.HasSuffix(gen.Summary, "…"))
	})

	t.Run("empty answer", func(t *testing.T) {
		f := newFixture(t, "env-key")
		f.llm.answer = " \n "
		_, err := f.svc.GenerateReport(ctx, in)
		assert.Error(t, err)
	})
}
