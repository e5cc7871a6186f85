package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallback_Empty(t *testing.T) {
	m := Fallback("")
	assert.Equal(t, 0, m.LOC)
	assert.Equal(t, 0, m.SLOC)
	assert.Equal(t, 0, m.LLOC)
	assert.Equal(t, 0, m.Comments)
	assert.Equal(t, 0, m.Blank)
	assert.Equal(t, 0.0, m.Complexity)
}

func TestFallback_HashComments(t *testing.T) {
	text := `# settings loader
import os

# read env
name = os.getenv("NAME")
port = os.getenv("PORT")
debug = False
timeout = 30
retries = 3
print(name, port)
`
	m := Fallback(text)
	assert.Equal(t, 10, m.LOC)
	assert.Equal(t, 9, m.SLOC)
	assert.Equal(t, 7, m.LLOC)
	assert.Equal(t, 2, m.Comments)
	assert.Equal(t, 1, m.Blank)
	assert.Equal(t, 1.0, m.Complexity)
	assert.Equal(t, MethodFallback, m.Method)
}

func TestFallback_CommentFamilies(t *testing.T) {
	text := "// c\n/* block\n * star\n */\n-- sql\n' vb\nREM batch\n<!-- html -->\n; lisp\n% tex\ncode();\n"
	m := Fallback(text)
	assert.Equal(t, 11, m.LOC)
	assert.Equal(t, 10, m.Comments)
	assert.Equal(t, 1, m.LLOC)
}

func TestFallback_LineEndings(t *testing.T) {
	assert.Equal(t, 3, Fallback("a\r\nb\rc").LOC)
	assert.Equal(t, 2, Fallback("a\nb\n").LOC)
	assert.Equal(t, 1, Fallback("\n").LOC)
	assert.Equal(t, 1, Fallback("\n").Blank)
}
