package engine

import (
	"testing"

	"github.com/miradorstack/mirador-coverage/internal/models"
)

func TestClassifyPriority(t *testing.T) {
	cases := []struct {
		name string
		want models.Priority
	}{
		{"system.cpu.user", models.PriorityHigh},
		{"app.request.count", models.PriorityMedium},
		{"custom.widget.foo", models.PriorityLow},
		{"nginx.net.connections", models.PriorityHigh},
		{"RabbitMQ.Queue.Messages", models.PriorityHigh},
		{"app.http.response_time", models.PriorityHigh},
		{"app.throughput", models.PriorityMedium},
		{"mysql.performance.queries", models.PriorityLow},
		{"api.error.rate", models.PriorityHigh},
	}
	for _, tc := range cases {
		if got := ClassifyPriority(tc.name); got != tc.want {
			t.Fatalf("ClassifyPriority(%q) = %s, want %s", tc.name, got, tc.want)
		}
	}
}
