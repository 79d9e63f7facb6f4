package gallery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	limits := PageLimits{Default: 50, Max: 200}

	tests := []struct {
		name    string
		limit   string
		offset  string
		want    Page
		wantErr bool
	}{
		{name: "defaults", want: Page{Limit: 50}},
		{name: "explicit", limit: "10", offset: "20", want: Page{Limit: 10, Offset: 20}},
		{name: "clamped", limit: "1000", want: Page{Limit: 200}},
		{name: "non numeric limit", limit: "ten", wantErr: true},
		{name: "non numeric offset", offset: "1.5", wantErr: true},
		{name: "zero limit", limit: "0", wantErr: true},
		{name: "negative offset", offset: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := limits.ParsePage(tt.limit, tt.offset)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
