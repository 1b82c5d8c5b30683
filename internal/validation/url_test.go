package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	siteerrors "github.com/conneroisu/sitezone/internal/errors"
)

func TestSafeRedirectPath(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		expectErr bool
	}{
		{name: "root", target: "/"},
		{name: "nested path", target: "/blog/my-post"},
		{name: "path with query", target: "/blog?page=2"},
		{name: "empty", target: "", expectErr: true},
		{name: "relative", target: "blog", expectErr: true},
		{name: "absolute url", target: "https://evil.example.com/", expectErr: true},
		{name: "scheme relative", target: "//evil.example.com", expectErr: true},
		{name: "backslash", target: `/\evil.example.com`, expectErr: true},
		{name: "javascript", target: "javascript:alert(1)", expectErr: true},
		{name: "newline", target: "/a\nLocation: x", expectErr: true},
		{name: "tab", target: "/\t/evil.example.com", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeRedirectPath(tt.target)
			if tt.expectErr {
				require.Error(t, err)
				var se *siteerrors.SiteError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, siteerrors.ErrCodeUnsafeRedirect, se.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, got)
		})
	}
}

func TestWithQueryFlag(t *testing.T) {
	assert.Equal(t, "/blog?preview=1", WithQueryFlag("/blog", "preview", "1"))
	assert.Equal(t, "/blog?page=2&preview=1", WithQueryFlag("/blog?page=2", "preview", "1"))
	assert.Equal(t, "/blog?preview=0", WithQueryFlag("/blog?preview=1", "preview", "0"))
	assert.Equal(t, "/?a=b&preview=0", WithQueryFlag("/?a=b&preview=1", "preview", "0"))
}

func TestValidateBaseURL(t *testing.T) {
	assert.NoError(t, ValidateBaseURL("https://example.com"))
	assert.NoError(t, ValidateBaseURL("http://localhost:3000"))
	assert.Error(t, ValidateBaseURL("ftp://example.com"))
	assert.Error(t, ValidateBaseURL("https://"))
	assert.Error(t, ValidateBaseURL("https://exa mple.com"))
}
