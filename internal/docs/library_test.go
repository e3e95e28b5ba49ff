package docs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryLoadsPack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "integrations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`baseURL: https://docs.example.com/
integrations:
  NGINX:
    description: Monitor NGINX
    setupSteps: ["enable stub_status", "configure nginx.d"]
  mysql:
    setupURL: https://mysql.example.com/setup
`), 0o644))

	lib, err := NewLibrary(path, nil)
	require.NoError(t, err)

	nginx, err := lib.GetIntegrationDocumentation(context.Background(), "nginx")
	require.NoError(t, err)
	assert.Equal(t, "Monitor NGINX", nginx.Description)
	assert.Equal(t, "https://docs.example.com/integrations/nginx/", nginx.SetupURL)
	assert.Equal(t, []string{"enable stub_status", "configure nginx.d"}, nginx.SetupSteps)

	mysql, err := lib.GetIntegrationDocumentation(context.Background(), "mysql")
	require.NoError(t, err)
	assert.Equal(t, "https://mysql.example.com/setup", mysql.SetupURL)
	assert.Len(t, mysql.SetupSteps, 3)
}

func TestLibraryGeneratedEntries(t *testing.T) {
	lib, err := NewLibrary("", nil)
	require.NoError(t, err)

	redis, err := lib.GetIntegrationDocumentation(context.Background(), "redis")
	require.NoError(t, err)
	assert.Equal(t, "https://docs.datadoghq.com/integrations/redis/", redis.SetupURL)
	assert.Equal(t, "https://docs.datadoghq.com/integrations/redis/#metrics", redis.MetricsURL)

	custom, err := lib.GetIntegrationDocumentation(context.Background(), "custom")
	require.NoError(t, err)
	assert.Contains(t, custom.SetupURL, "/metrics/custom_metrics/")

	_, err = lib.GetIntegrationDocumentation(context.Background(), " ")
	assert.Error(t, err)
}

func TestLibraryMissingPackFile(t *testing.T) {
	lib, err := NewLibrary(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.NoError(t, err)
	require.NotNil(t, lib)
}

func TestLibraryInvalidPack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("integrations: [unclosed"), 0o644))
	_, err := NewLibrary(path, nil)
	assert.Error(t, err)
}

func TestLibraryHonoursCancelledContext(t *testing.T) {
	lib, _ := NewLibrary("", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lib.GetIntegrationDocumentation(ctx, "nginx")
	assert.ErrorIs(t, err, context.Canceled)
}
