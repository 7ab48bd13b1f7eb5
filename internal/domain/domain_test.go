package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvmarrod/link-oracle/internal/domain"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.example.com/path?q=1", "www.example.com"},
		{"http://Example.COM", "example.com"},
		{"//cdn.example.com/asset.js", "cdn.example.com"},
		{"/relative/path", ""},
		{"page.html", ""},
	}

	for _, tc := range cases {
		got, err := domain.Extract(tc.url)
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.want, got, tc.url)
	}
}

func TestExtractRoot(t *testing.T) {
	assert.Equal(t, "example.com", domain.ExtractRoot("blog.example.com"))
	assert.Equal(t, "example.com", domain.ExtractRoot("a.b.example.com"))
	assert.Equal(t, "example.com", domain.ExtractRoot("example.com"))
	assert.Equal(t, "localhost", domain.ExtractRoot("localhost"))
}

func TestIsExcluded(t *testing.T) {
	assert.True(t, domain.IsExcluded("facebook.com"))
	assert.True(t, domain.IsExcluded("www.youtube.com"))
	assert.True(t, domain.IsExcluded("ads.example.com"))
	assert.True(t, domain.IsExcluded("analytics.example.com"))

	assert.False(t, domain.IsExcluded("example.com"))
	assert.False(t, domain.IsExcluded("blog.example.com"))
}
