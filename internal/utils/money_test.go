package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals int32
		want     int64
		wantErr  bool
	}{
		{"whole units", "50000", 0, 50_000, false},
		{"two decimals", "12.50", 2, 1_250, false},
		{"trailing zeros allowed", "100.00", 0, 100, false},
		{"too precise", "12.345", 2, 0, true},
		{"fraction with zero decimals", "0.5", 0, 0, true},
		{"negative keeps sign", "-3", 0, -3, false},
		{"garbage", "12abc", 2, 0, true},
		{"empty", "", 2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.raw, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidMoney)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "50000", FormatMoney(50_000, 0))
	assert.Equal(t, "12.50", FormatMoney(1_250, 2))
	assert.Equal(t, "-0.05", FormatMoney(-5, 2))
}
