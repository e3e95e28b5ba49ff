package catalog

import "github.com/miradorstack/mirador-coverage/internal/models"

var fallbackPatterns = []models.IntegrationPattern{
	{Key: "aws", Prefixes: []string{"aws."}, DisplayName: "AWS"},
	{Key: "azure", Prefixes: []string{"azure."}, DisplayName: "Azure"},
	{Key: "azure_vm", Prefixes: []string{"azure.vm"}, DisplayName: "Azure VM"},
	{Key: "gcp", Prefixes: []string{"gcp."}, DisplayName: "Google Cloud"},
	{Key: "nginx", Prefixes: []string{"nginx."}, DisplayName: "NGINX"},
	{Key: "mysql", Prefixes: []string{"mysql."}, DisplayName: "MySQL"},
	{Key: "postgresql", Prefixes: []string{"postgresql."}, DisplayName: "PostgreSQL"},
	{Key: "redis", Prefixes: []string{"redis."}, DisplayName: "Redis"},
	{Key: "mongodb", Prefixes: []string{"mongodb."}, DisplayName: "MongoDB"},
	{Key: "docker", Prefixes: []string{"docker."}, DisplayName: "Docker"},
	{Key: "kubernetes", Prefixes: []string{"kubernetes."}, DisplayName: "Kubernetes"},
	{Key: "system", Prefixes: []string{"system."}, DisplayName: "System"},
}

// FallbackIndex returns the built-in pattern set used when no catalog data is
// available. It knows integration keys and prefixes only, no metric definitions.
func FallbackIndex() *Index {
	b := newBuilder()
	for _, fp := range fallbackPatterns {
		b.patterns[fp.Key] = &models.IntegrationPattern{
			Key:         fp.Key,
			Prefixes:    append([]string(nil), fp.Prefixes...),
			DisplayName: fp.DisplayName,
			Source:      "fallback",
		}
	}
	idx := b.build()
	idx.fallback = true
	return idx
}
