package messages

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentOrParts_MarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		content ContentOrParts
		want    string
	}{
		{
			name:    "empty content and parts",
			content: ContentOrParts{},
			want:    "null",
		},
		{
			name:    "simple string content",
			content: ContentOrParts{Content: "hello world"},
			want:    `"hello world"`,
		},
		{
			name:    "whitespace only content marshals as parts",
			content: ContentOrParts{Content: "   "},
			want:    "null",
		},
		{
			name: "text and image parts",
			content: ContentOrParts{
				Parts: []ContentPart{
					Text("describe this"),
					ImageContentPart{URL: "http://example.com/image.jpg", Detail: "low"},
				},
			},
			want: `[{"type":"text","text":"describe this"},{"type":"image","image_url":"http://example.com/image.jpg","detail":"low"}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.content)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestContentOrParts_UnmarshalJSON(t *testing.T) {
	t.Run("string", func(t *testing.T) {
		var c ContentOrParts
		require.NoError(t, json.Unmarshal([]byte(`"hi"`), &c))
		assert.Equal(t, "hi", c.Content)
		assert.Empty(t, c.Parts)
	})

	t.Run("null", func(t *testing.T) {
		var c ContentOrParts
		require.NoError(t, json.Unmarshal([]byte(`null`), &c))
		assert.True(t, c.IsEmpty())
	})

	t.Run("openai wire image form", func(t *testing.T) {
		var c ContentOrParts
		input := `[{"type":"text","text":"look"},{"type":"image_url","image_url":{"url":"http://x/y.png","detail":"high"}}]`
		require.NoError(t, json.Unmarshal([]byte(input), &c))
		require.Len(t, c.Parts, 2)
		assert.Equal(t, Text("look"), c.Parts[0])
		img, ok := c.Parts[1].(ImageContentPart)
		require.True(t, ok)
		assert.Equal(t, "http://x/y.png", img.URL)
		assert.Equal(t, "high", img.Detail)
	})

	t.Run("unknown part type", func(t *testing.T) {
		var c ContentOrParts
		err := json.Unmarshal([]byte(`[{"type":"video","url":"x"}]`), &c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown type "video"`)
	})

	t.Run("text part without text", func(t *testing.T) {
		var c ContentOrParts
		err := json.Unmarshal([]byte(`[{"type":"text"}]`), &c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid text part at 0")
	})
}

func TestContentOrParts_Text(t *testing.T) {
	assert.Equal(t, "plain", ContentOrParts{Content: "plain"}.Text())

	c := ContentOrParts{Parts: []ContentPart{Text("a"), Image("http://x"), Text("b")}}
	assert.Equal(t, "a\nb", c.Text())
}
