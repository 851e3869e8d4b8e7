package media

import (
	"fmt"
	"os"
	"strings"

	"reelscope/internal/config"
	"reelscope/internal/language"
	"reelscope/internal/platform"
	"reelscope/internal/services"
)

// RequestInput is the wire form of a pipeline request.
type RequestInput struct {
	URL           string  `json:"url"`
	ModelSize     string  `json:"model_size,omitempty"`
	Language      *string `json:"language,omitempty"`
	InstaUsername *string `json:"insta_username,omitempty"`
	InstaPassword *string `json:"insta_password,omitempty"`
	MaxComments   *int    `json:"max_comments,omitempty"`
	CookiesFile   *string `json:"cookies_file,omitempty"`
}

// Credentials is an optional username/password pair for comment fetching.
type Credentials struct {
	Username string
	Password string
}

// Request is a validated, immutable pipeline request.
type Request struct {
	URL         string
	Platform    platform.Platform
	ModelSize   string
	Language    string
	Credentials *Credentials
	MaxComments int
	CookiesFile string
}

// RequestDefaults carries the configured fallbacks applied during validation.
type RequestDefaults struct {
	ModelSize   string
	MaxComments int
}

// DefaultsFromConfig extracts request defaults from the pipeline section.
func DefaultsFromConfig(cfg *config.Config) RequestDefaults {
	if cfg == nil {
		return RequestDefaults{ModelSize: "base", MaxComments: 200}
	}
	return RequestDefaults{ModelSize: cfg.Pipeline.DefaultModel, MaxComments: cfg.Pipeline.MaxComments}
}

// NewRequest validates input and freezes it into a Request. Every failure is
// tagged services.ErrValidation so callers can reject it before a run exists.
func NewRequest(in RequestInput, defaults RequestDefaults) (Request, error) {
	url := platform.CleanURL(in.URL)
	if url == "" {
		return Request{}, invalid("url is required")
	}

	model := strings.ToLower(strings.TrimSpace(in.ModelSize))
	if model == "" {
		model = defaults.ModelSize
	}
	if model == "" {
		model = "base"
	}
	if !config.IsSupportedModel(model) {
		return Request{}, invalid(fmt.Sprintf("model_size %q must be one of %s", in.ModelSize, strings.Join(config.SupportedModels, ", ")))
	}

	var lang string
	if in.Language != nil {
		resolved, err := language.ResolveHint(*in.Language)
		if err != nil {
			return Request{}, invalid(err.Error())
		}
		lang = resolved
	}

	maxComments := defaults.MaxComments
	if maxComments <= 0 {
		maxComments = 200
	}
	if in.MaxComments != nil {
		switch {
		case *in.MaxComments < 0:
			return Request{}, invalid("max_comments must be a positive integer")
		case *in.MaxComments > 0:
			maxComments = *in.MaxComments
		}
	}

	var creds *Credentials
	if in.InstaUsername != nil && strings.TrimSpace(*in.InstaUsername) != "" {
		creds = &Credentials{Username: strings.TrimSpace(*in.InstaUsername)}
		if in.InstaPassword != nil {
			creds.Password = *in.InstaPassword
		}
	}

	var cookies string
	if in.CookiesFile != nil && strings.TrimSpace(*in.CookiesFile) != "" {
		expanded, err := config.ExpandPath(strings.TrimSpace(*in.CookiesFile))
		if err != nil {
			return Request{}, invalid(err.Error())
		}
		if info, err := os.Stat(expanded); err != nil || info.IsDir() {
			return Request{}, invalid(fmt.Sprintf("cookies_file %q is not a readable file", *in.CookiesFile))
		}
		cookies = expanded
	}

	return Request{
		URL:         url,
		Platform:    platform.Detect(url),
		ModelSize:   model,
		Language:    lang,
		Credentials: creds,
		MaxComments: maxComments,
		CookiesFile: cookies,
	}, nil
}

func invalid(message string) error {
	return services.Wrap(services.ErrValidation, "request", "validate", message, nil)
}
