package interfaces

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistenceErrorUnwrapsJoinedCauses(t *testing.T) {
	cause := NewRepositoryError("file.SaveFragment", "file:///tmp/repo0", "write failed", errors.New("disk full"))
	err := NewPersistenceError("persistence.Save", "blob-1", "some fragments couldn't be saved",
		errors.Join(ErrNotFullySaved, cause))

	assert.ErrorIs(t, err, ErrNotFullySaved)

	var repoErr *RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.Equal(t, "file:///tmp/repo0", repoErr.Location)
	assert.Contains(t, err.Error(), `data "blob-1"`)
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "algorithm without cause",
			err:      NewAlgorithmError("", "redundant fragment number must be lower than fragment number", nil),
			expected: "algorithm: redundant fragment number must be lower than fragment number",
		},
		{
			name:     "crypto with op and cause",
			err:      NewCryptoError("aes.Decrypt", "invalid padding", errors.New("bad byte")),
			expected: "aes.Decrypt: invalid padding: bad byte",
		},
		{
			name:     "repository with location",
			err:      NewRepositoryError("mem.LoadFragment", "mem://a", "load failed", ErrFragmentNotFound),
			expected: "mem.LoadFragment: load failed [mem://a]: fragment not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestParseRepositoryLocation(t *testing.T) {
	loc, err := ParseRepositoryLocation("S3://AKID:secret@bucket/prefix/?region=eu-west-1&public=yes")
	require.NoError(t, err)
	assert.Equal(t, "s3", loc.Scheme)
	assert.Equal(t, "bucket", loc.Host)
	assert.Equal(t, "/prefix/", loc.Path)
	assert.Equal(t, "eu-west-1", loc.GetParam("region"))
	assert.True(t, loc.GetParamBool("public"))
	assert.Equal(t, "AKID", loc.User.Username())

	_, err = ParseRepositoryLocation("")
	assert.ErrorIs(t, err, ErrInvalidLocationURI)

	_, err = ParseRepositoryLocation("just-a-path")
	assert.ErrorIs(t, err, ErrInvalidLocationURI)
}

func TestFragmentName(t *testing.T) {
	assert.Equal(t, "report.pdf.frag", FragmentName("report.pdf"))
}
