package summarizer

import (
	"context"
	"fmt"
	"strings"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// Credentials lists the AI providers the server recognizes.
type Credentials struct {
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	GeminiKey     string
	GeminiModel   string
}

func (c Credentials) any() bool {
	return strings.TrimSpace(c.OpenAIKey) != "" || strings.TrimSpace(c.GeminiKey) != ""
}

// Config selects the engine once at startup.
type Config struct {
	Provider    string
	Credentials Credentials
}

// ConfigFromCredentials picks the AI engine when any provider key is set.
// forced may be "basic" or "ai" to override the choice; "ai" without
// credentials still falls back to basic.
func ConfigFromCredentials(creds Credentials, forced string) Config {
	forced = strings.ToLower(strings.TrimSpace(forced))
	provider := EngineBasic
	if creds.any() && forced != EngineBasic {
		provider = EngineAI
	}
	return Config{Provider: provider, Credentials: creds}
}

// New builds the engine described by cfg. OpenAI wins when both keys exist.
func New(ctx context.Context, cfg Config, log waLog.Logger) (Engine, error) {
	if log == nil {
		log = waLog.Noop
	}
	switch cfg.Provider {
	case EngineBasic, "":
		log.Infof("using basic summary engine")
		return NewBasicEngine(), nil
	case EngineAI:
	default:
		return nil, fmt.Errorf("unknown summary provider %q", cfg.Provider)
	}

	creds := cfg.Credentials
	var (
		completer Completer
		err       error
	)
	switch {
	case strings.TrimSpace(creds.OpenAIKey) != "":
		completer, err = NewOpenAICompleter(creds.OpenAIKey, creds.OpenAIBaseURL, creds.OpenAIModel, nil)
	case strings.TrimSpace(creds.GeminiKey) != "":
		completer, err = NewGeminiCompleter(ctx, creds.GeminiKey, creds.GeminiModel, log.Sub("Gemini"))
	default:
		return nil, fmt.Errorf("ai summary provider selected without credentials")
	}
	if err != nil {
		return nil, err
	}
	log.Infof("using ai summary engine provider=%s", completer.Provider())
	return NewAIEngine(completer, log.Sub("AI")), nil
}
