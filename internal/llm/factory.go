package llm

import (
	"github.com/plan2fund/fundextract/internal/model"
)

// NewProvider selects and constructs the active provider. The custom
// endpoint takes precedence; OpenAI is used only when no custom endpoint is
// configured. There is no silent no-op path: with neither configured this
// fails with a ConfigurationError.
func NewProvider(config Config) (Provider, error) {
	switch {
	case config.CustomEndpoint != "":
		return NewCustomProvider(config)

	case config.OpenAIAPIKey != "":
		return NewOpenAIProvider(config)

	default:
		return nil, &model.ConfigurationError{
			Reason: "LLM extraction required: set CUSTOM_LLM_ENDPOINT or OPENAI_API_KEY",
		}
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(cfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		CustomEndpoint: cfg.CustomEndpoint,
		CustomAPIKey:   cfg.CustomAPIKey,
		CustomModel:    cfg.CustomModel,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIModel:    cfg.OpenAIModel,
		Timeout:        cfg.Timeout,
		HTTPProxy:      httpCfg.HTTPProxy,
		HTTPSProxy:     httpCfg.HTTPSProxy,
		NoProxy:        httpCfg.NoProxy,
	}
}
