package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTML(t *testing.T) {
	out, err := ToHTML("**bold** answer\n\n- one\n- two")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<li>one</li>")
}

func TestToHTML_OmitsRawHTML(t *testing.T) {
	out, err := ToHTML("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestToHTML_Empty(t *testing.T) {
	out, err := ToHTML("")
	require.NoError(t, err)
	assert.Empty(t, out)
}
