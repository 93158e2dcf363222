package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		source  Source
		wantErr string
	}{
		{
			name:   "valid_rss",
			source: Source{URI: "https://example.org/feed.xml", Type: SourceTypeRSS, Schedule: "0 * * * *"},
		},
		{
			name:   "valid_web",
			source: Source{URI: "http://example.org/news", Type: SourceTypeWeb, Schedule: "*/15 * * * *"},
		},
		{
			name:   "valid_local",
			source: Source{URI: "file:///srv/drop", Type: SourceTypeLocal, Schedule: "30 2 * * 1"},
		},
		{
			name:    "local_type_with_http_uri",
			source:  Source{URI: "https://example.org", Type: SourceTypeLocal, Schedule: "0 * * * *"},
			wantErr: "requires a file:// URI",
		},
		{
			name:    "web_type_with_file_uri",
			source:  Source{URI: "file:///srv/drop", Type: SourceTypeWeb, Schedule: "0 * * * *"},
			wantErr: "requires an http(s) URI",
		},
		{
			name:    "unsupported_scheme",
			source:  Source{URI: "ftp://example.org/pub", Type: SourceTypeWeb, Schedule: "0 * * * *"},
			wantErr: "unsupported URI scheme",
		},
		{
			name:    "unknown_type",
			source:  Source{URI: "https://example.org", Type: SourceType("SFTP"), Schedule: "0 * * * *"},
			wantErr: "unsupported source type",
		},
		{
			name:    "invalid_schedule",
			source:  Source{URI: "https://example.org", Type: SourceTypeWeb, Schedule: "every hour"},
			wantErr: "invalid schedule",
		},
		{
			name:    "six_field_schedule_rejected",
			source:  Source{URI: "https://example.org", Type: SourceTypeWeb, Schedule: "0 0 * * * *"},
			wantErr: "invalid schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.source.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
