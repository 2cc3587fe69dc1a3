package ai

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Ing-la/future-navigator/core"
)

// Providers
const ProviderGemini = "gemini"

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Key sources
const (
	SourceRequest  = "request"
	SourceEnv      = "env"
	SourceDatabase = "database"
	SourceNone     = "none"
)

var Providers = []string{ProviderGemini}

type Message struct {
	Role    string `json:"role" validate:"required,chatrole"`
	Content string `json:"content" validate:"required"`
}

type ChatRequest struct {
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
	APIKey   string    `json:"apiKey"`
}

func (cr *ChatRequest) Validate(validate *validator.Validate) error {
	cr.APIKey = core.CleanString(cr.APIKey)
	for i := range cr.Messages {
		cr.Messages[i].Role = core.CleanString(cr.Messages[i].Role, true /* lower */)
	}
	return validate.Struct(cr)
}

// ProviderConfig is an ai_config row. The key is kept sealed.
type ProviderConfig struct {
	ID           string
	Provider     string
	APIKeySealed string
	IsActive     bool
	CreatedAt    time.Time // UTC
	UpdatedAt    time.Time // UTC
}

// ConfigStatus never exposes the key itself.
type ConfigStatus struct {
	Provider      string `json:"provider"`
	Configured    bool   `json:"configured"`
	Source        string `json:"source"`
	APIKeyPreview string `json:"apiKeyPreview,omitempty"`
}

type SaveConfig struct {
	Provider string `json:"provider" validate:"required,aiprovider"`
	APIKey   string `json:"apiKey"`
}

func (sc *SaveConfig) Validate(validate *validator.Validate) error {
	sc.Provider = core.CleanString(sc.Provider, true /* lower */)
	sc.APIKey = core.CleanString(sc.APIKey)
	return validate.Struct(sc)
}

type TestConfig struct {
	Type   string `json:"type"`
	Config struct {
		APIKey string `json:"apiKey"`
	} `json:"config"`
}

type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
