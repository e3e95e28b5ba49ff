package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-coverage/internal/models"
)

func writeCatalogFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

func TestLoadBuildsPrefixIndex(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "nginx_metadata.csv", `metric_name,metric_type,unit_name,description,short_name
nginx.net.connections,gauge,connection,Active connections,conns
nginx.net.request_per_s,rate,request,Requests per second,reqs
nginx.upstream.peers.responses.5xx,count,response,Upstream 5xx,5xx
`)
	writeCatalogFile(t, dir, "amazon_ec2_metadata.csv", `metric_name,metric_type,integration
aws.ec2.cpuutilization,gauge,aws
aws.ec2.network_in,gauge,aws
`)

	idx, outcome := Load(dir, quietLogger())
	require.False(t, outcome.Fallback)
	assert.Equal(t, 2, outcome.Files)
	assert.Equal(t, 5, outcome.Metrics)

	assert.Equal(t, []string{"aws", "nginx"}, idx.Integrations())
	assert.Equal(t, []string{"nginx.net", "nginx.upstream"}, idx.Prefixes("nginx"))
	assert.Equal(t, []string{"aws.ec2"}, idx.Prefixes("aws"))

	def, ok := idx.Definition("nginx.net.request_per_s")
	require.True(t, ok)
	assert.Equal(t, models.MetricTypeRate, def.Type)
	assert.Equal(t, "nginx", def.Integration)

	pattern, ok := idx.Pattern("aws")
	require.True(t, ok)
	assert.Equal(t, "amazon_ec2_metadata.csv", pattern.Source)
	assert.Len(t, idx.MetricNamesFor("aws"), 2)
}

func TestLoadSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "broken_metadata.csv", "name,type\nfoo.bar,gauge\n")
	writeCatalogFile(t, dir, "quoted_metadata.csv", "metric_name,description\n\"redis.net\"x,oops\n")
	writeCatalogFile(t, dir, "redis_metadata.csv", "metric_name,metric_type\nredis.net.clients,gauge\n")
	writeCatalogFile(t, dir, "notes.txt", "ignored")

	idx, outcome := Load(dir, quietLogger())
	require.False(t, outcome.Fallback)
	assert.Equal(t, 2, outcome.Skipped)
	assert.Equal(t, []string{"redis"}, idx.Integrations())
}

func TestLoadMissingDirectoryFallsBack(t *testing.T) {
	idx, outcome := Load(filepath.Join(t.TempDir(), "absent"), quietLogger())
	require.True(t, outcome.Fallback)
	assert.True(t, idx.Fallback())
	assert.Len(t, idx.Integrations(), 12)
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, []string{"azure.vm"}, idx.Prefixes("azure_vm"))
}

func TestLoadEmptyCatalogFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "empty_metadata.csv", "metric_name,metric_type\n")

	idx, outcome := Load(dir, quietLogger())
	require.True(t, outcome.Fallback)
	assert.Equal(t, "no usable metric definitions", outcome.Reason)
	assert.True(t, idx.Fallback())
}

func TestParseCatalogIntegrationOverride(t *testing.T) {
	input := "metric_name,integration\nfoo.bar.baz,\nfoo.bar.qux,custom_app\n"
	key, defs, err := parseCatalog(strings.NewReader(input), "file_key")
	require.NoError(t, err)
	assert.Equal(t, "custom_app", key)
	require.Len(t, defs, 2)
	for _, def := range defs {
		assert.Equal(t, "custom_app", def.Integration)
	}

	key, _, err = parseCatalog(strings.NewReader("metric_name\nfoo.bar.baz\n"), "file_key")
	require.NoError(t, err)
	assert.Equal(t, "file_key", key)
}

func TestIntegrationKeyFromFile(t *testing.T) {
	assert.Equal(t, "amazon_ec2", integrationKeyFromFile("amazon_ec2_metadata.csv"))
	assert.Equal(t, "redis", integrationKeyFromFile("redis.csv"))
}

func TestSummaryAndSearch(t *testing.T) {
	idx := NewIndex(
		models.MetricDefinition{Name: "system.cpu.user", Integration: "system", Type: models.MetricTypeGauge, Description: "CPU user time"},
		models.MetricDefinition{Name: "system.mem.used", Integration: "system", Type: models.MetricTypeGauge},
		models.MetricDefinition{Name: "redis.net.clients", Integration: "redis", Type: models.MetricTypeUnknown, ShortName: "clients"},
	)

	summary := idx.Summary()
	assert.Equal(t, 3, summary.TotalMetrics)
	assert.Equal(t, 2, summary.Integrations)
	assert.Equal(t, 2, summary.IntegrationBreakdown["system"])
	assert.Equal(t, 2, summary.MetricTypes["gauge"])
	assert.False(t, summary.Fallback)

	matches := idx.SearchByKeyword("CPU")
	require.Len(t, matches, 1)
	assert.Equal(t, "system.cpu.user", matches[0].Name)
	assert.Len(t, idx.SearchByKeyword("clients"), 1)
	assert.Empty(t, idx.SearchByKeyword("  "))
}

func TestIntegrationDetail(t *testing.T) {
	idx := NewIndex(
		models.MetricDefinition{Name: "system.cpu.user", Integration: "system", Type: models.MetricTypeGauge},
		models.MetricDefinition{Name: "system.mem.used", Integration: "system", Type: models.MetricTypeGauge},
	)

	detail, ok := idx.Detail("system")
	require.True(t, ok)
	assert.Equal(t, "System", detail.DisplayName)
	assert.Equal(t, []string{"system.cpu", "system.mem"}, detail.Prefixes)
	require.Len(t, detail.Metrics, 2)
	assert.Equal(t, "system.cpu.user", detail.Metrics[0].Name)

	_, ok = idx.Detail("redis")
	assert.False(t, ok)

	fallback, ok := FallbackIndex().Detail("azure_vm")
	require.True(t, ok)
	assert.True(t, fallback.Fallback)
	assert.NotNil(t, fallback.Metrics)
	assert.Empty(t, fallback.Metrics)
}

func TestHolderKeepsPreviousIndexOnFallback(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "redis_metadata.csv", "metric_name\nredis.net.clients\n")

	holder, outcome := NewHolder(dir, quietLogger())
	require.False(t, outcome.Fallback)
	first := holder.Current()

	require.NoError(t, os.Remove(filepath.Join(dir, "redis_metadata.csv")))
	outcome = holder.Reload()
	assert.True(t, outcome.Fallback)
	assert.Same(t, first, holder.Current())

	writeCatalogFile(t, dir, "mysql_metadata.csv", "metric_name\nmysql.performance.queries\n")
	outcome = holder.Reload()
	assert.False(t, outcome.Fallback)
	assert.NotSame(t, first, holder.Current())
	assert.Equal(t, []string{"mysql"}, holder.Current().Integrations())
}

func TestHolderWatchPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "redis_metadata.csv", "metric_name\nredis.net.clients\n")
	holder, _ := NewHolder(dir, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go holder.Watch(ctx, 10*time.Millisecond, nil)

	writeCatalogFile(t, dir, "nginx_metadata.csv", "metric_name\nnginx.net.connections\n")
	require.Eventually(t, func() bool {
		return len(holder.Current().Integrations()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}
