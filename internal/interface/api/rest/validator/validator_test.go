package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lego-filestore/internal/domain/file_association"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{" 7 ", 7, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOwner(t *testing.T) {
	o, err := ParseOwner("Widget", "42")
	require.NoError(t, err)
	assert.Equal(t, file_association.OwnerRef{Kind: "Widget", ID: 42}, o)

	_, err = ParseOwner("Widget", "x")
	assert.ErrorIs(t, err, file_association.ErrInvalidOwner)

	_, err = ParseOwner("", "42")
	assert.ErrorIs(t, err, file_association.ErrInvalidOwner)

	_, err = ParseOwner("Widget", "0")
	assert.ErrorIs(t, err, file_association.ErrInvalidOwner)
}

func TestParseLimit(t *testing.T) {
	n, err := ParseLimit("")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = ParseLimit("50")
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	for _, bad := range []string{"0", "1001", "-1", "ten"} {
		_, err = ParseLimit(bad)
		assert.ErrorIs(t, err, ErrInvalidLimit, bad)
	}
}

func TestIDs(t *testing.T) {
	got, err := IDs[file_association.ID]([]int64{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []file_association.ID{3, 1, 2}, got)

	_, err = IDs[file_association.ID]([]int64{1, 0})
	assert.ErrorIs(t, err, ErrInvalidID)
}
