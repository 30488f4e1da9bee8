package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimezone(t *testing.T) {
	tests := []struct {
		tz      string
		want    string
		wantErr bool
	}{
		{"", "UTC", false},
		{"UTC", "UTC", false},
		{"Asia/Shanghai", "Asia/Shanghai", false},
		{"Mars/Olympus", "UTC", true},
	}
	for _, tt := range tests {
		t.Run(tt.tz, func(t *testing.T) {
			loc, err := ParseTimezone(tt.tz)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, loc.String())
			assert.Equal(t, !tt.wantErr, IsValidTimezone(tt.tz))
		})
	}
}

func TestFormatUnix(t *testing.T) {
	loc, err := ParseTimezone("Asia/Shanghai")
	require.NoError(t, err)

	ts := time.Date(2026, 10, 15, 2, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, "2026-10-15 10:00", FormatUnix(ts, loc, "2006-01-02 15:04"))
	assert.Equal(t, "2026-10-15 02:00", FormatUnix(ts, nil, "2006-01-02 15:04"))
}
