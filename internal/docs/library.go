package docs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-coverage/internal/models"
)

// DefaultBaseURL is the documentation site used for generated entries.
const DefaultBaseURL = "https://docs.datadoghq.com"

// Library serves integration setup documentation from a YAML pack, generating
// a default entry for integrations the pack does not describe.
type Library struct {
	baseURL string
	entries map[string]models.IntegrationDocs
	logger  *slog.Logger
}

// PackFile is the YAML root structure.
type PackFile struct {
	BaseURL      string                            `yaml:"baseURL"`
	Integrations map[string]models.IntegrationDocs `yaml:"integrations"`
}

// NewLibrary loads the documentation pack at path. An empty path or missing
// file yields a library with generated entries only.
func NewLibrary(path string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lib := &Library{baseURL: DefaultBaseURL, entries: map[string]models.IntegrationDocs{}, logger: logger}
	if path == "" {
		return lib, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("documentation pack not found, using generated entries", slog.String("path", path))
			return lib, nil
		}
		return nil, fmt.Errorf("read documentation pack: %w", err)
	}
	var pack PackFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse documentation pack: %w", err)
	}
	if pack.BaseURL != "" {
		lib.baseURL = strings.TrimRight(pack.BaseURL, "/")
	}
	for key, entry := range pack.Integrations {
		lib.entries[strings.ToLower(key)] = entry
	}
	logger.Info("documentation pack loaded", slog.String("path", path), slog.Int("integrations", len(lib.entries)))
	return lib, nil
}

// GetIntegrationDocumentation returns documentation for integration. Pack
// entries with blank fields are completed from the generated defaults.
func (l *Library) GetIntegrationDocumentation(ctx context.Context, integration string) (models.IntegrationDocs, error) {
	if err := ctx.Err(); err != nil {
		return models.IntegrationDocs{}, err
	}
	key := strings.ToLower(strings.TrimSpace(integration))
	if key == "" {
		return models.IntegrationDocs{}, errors.New("integration is required")
	}

	generated := l.generated(key)
	entry, ok := l.entries[key]
	if !ok {
		return generated, nil
	}
	if entry.Description == "" {
		entry.Description = generated.Description
	}
	if entry.SetupURL == "" {
		entry.SetupURL = generated.SetupURL
	}
	if entry.MetricsURL == "" {
		entry.MetricsURL = generated.MetricsURL
	}
	if len(entry.SetupSteps) == 0 {
		entry.SetupSteps = generated.SetupSteps
	} else {
		entry.SetupSteps = append([]string(nil), entry.SetupSteps...)
	}
	return entry, nil
}

func (l *Library) generated(key string) models.IntegrationDocs {
	if key == models.CustomIntegration {
		return models.IntegrationDocs{
			Description: "Submit custom metrics through DogStatsD or the API",
			SetupURL:    l.baseURL + "/metrics/custom_metrics/",
			MetricsURL:  l.baseURL + "/metrics/custom_metrics/dogstatsd_metrics_submission/",
			SetupSteps: []string{
				"Install the Datadog Agent with DogStatsD enabled",
				"Instrument the application with a DogStatsD client library",
				"Emit the metric under a stable name and verify it in the Metrics Summary",
			},
		}
	}
	page := l.baseURL + "/integrations/" + key + "/"
	return models.IntegrationDocs{
		Description: fmt.Sprintf("Set up %s integration", key),
		SetupURL:    page,
		MetricsURL:  page + "#metrics",
		SetupSteps: []string{
			"Install the Datadog Agent on hosts running " + key,
			fmt.Sprintf("Enable the check in conf.d/%s.d/conf.yaml", key),
			"Restart the Agent and confirm the check with `datadog-agent status`",
		},
	}
}
