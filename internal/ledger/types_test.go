package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		status     Status
		retryCount int
		maxRetries int
		want       bool
	}{
		{name: "scraped_always_claimable", status: StatusScraped, want: true},
		{name: "scraped_ignores_retry_count", status: StatusScraped, retryCount: 99, maxRetries: 3, want: true},
		{name: "failed_below_bound", status: StatusFailed, retryCount: 2, maxRetries: 3, want: true},
		{name: "failed_at_bound", status: StatusFailed, retryCount: 3, maxRetries: 3, want: false},
		{name: "failed_above_bound", status: StatusFailed, retryCount: 4, maxRetries: 3, want: false},
		{name: "processing_never_claimable", status: StatusProcessing, want: false},
		{name: "processed_is_terminal", status: StatusProcessed, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Claimable(tt.status, tt.retryCount, tt.maxRetries))
		})
	}
}
