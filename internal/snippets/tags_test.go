package snippets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloPavan/snipshare_api/internal/apperrors"
)

func TestDecodeTags(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "absent", raw: "", want: []string{}},
		{name: "blank", raw: "   ", want: []string{}},
		{name: "null", raw: "null", want: []string{}},
		{name: "empty array", raw: "[]", want: []string{}},
		{name: "values", raw: `["go","a,b"]`, want: []string{"go", "a,b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeTags(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeTagsRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"go", `{"a":1}`, `[1,2]`, `["unterminated"`} {
		_, err := DecodeTags(raw)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrInvalidTags))
		assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Zed", "alpha", "ZED", "", "Alpha "})
	assert.Equal(t, []TagName{
		{Name: "alpha", Key: "alpha"},
		{Name: "Zed", Key: "zed"},
	}, got)
}

func TestPreviewOf(t *testing.T) {
	assert.Equal(t, "", PreviewOf("abc", 0))
	assert.Equal(t, "ab", PreviewOf("abc", 2))
	assert.Equal(t, "abc", PreviewOf("abc", 100))
	assert.Equal(t, "日本", PreviewOf("日本語", 2))
}

func TestLanguagesIncludesDefault(t *testing.T) {
	langs := Languages()
	assert.Contains(t, langs, DefaultLanguage)
	assert.Contains(t, langs, "Go")
}
