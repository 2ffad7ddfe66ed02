package syntax

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/reflens/internal/types"
)

const goSample = `package main

// add sums two ints.
func add(a, b int) int {
	s := "not an identifier: add"
	_ = s
	return a + b
}
`

func parseGo(t *testing.T) *ParsedFile {
	t.Helper()
	pf, err := NewView().Parse(1, "main.go", []byte(goSample))
	require.NoError(t, err)
	t.Cleanup(pf.Close)
	return pf
}

func TestLanguageForPath(t *testing.T) {
	assert.Equal(t, LangGo, LanguageForPath("src/main.go"))
	assert.Equal(t, LangTypeScript, LanguageForPath("app.tsx"))
	assert.Equal(t, LangCpp, LanguageForPath("inc/util.hpp"))
	assert.Equal(t, LangPHP, LanguageForPath("index.phtml"))
	assert.Equal(t, LangUnknown, LanguageForPath("README.md"))
}

func TestView_ParseUnknownLanguage(t *testing.T) {
	_, err := NewView().Parse(1, "README.md", []byte("# hi"))
	assert.Error(t, err)
}

func TestNodeAt_Classification(t *testing.T) {
	pf := parseGo(t)

	tests := []struct {
		name   string
		needle string // first occurrence locates the offset
		want   types.NodeClass
	}{
		{"function name is an identifier", "add(a", types.NodeIdentifier},
		{"parameter use is an identifier", "a + b", types.NodeIdentifier},
		{"comment text", "sums two ints", types.NodeComment},
		{"string literal content", "not an identifier", types.NodeStringLiteral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off := strings.Index(goSample, tt.needle)
			require.GreaterOrEqual(t, off, 0)
			node := pf.NodeAt(uint32(off))
			require.NotNil(t, node)
			assert.Equal(t, tt.want, Classify(node))
		})
	}
}

func TestNodeAt_OutOfRange(t *testing.T) {
	pf := parseGo(t)
	assert.Nil(t, pf.NodeAt(uint32(len(goSample)+10)))
}

func TestParsedFile_Text(t *testing.T) {
	pf := parseGo(t)
	off := strings.Index(goSample, "add(a")
	node := pf.NodeAt(uint32(off))
	require.NotNil(t, node)
	assert.Equal(t, "add", pf.Text(node))
}

func TestParseCache_ParsesOncePerFile(t *testing.T) {
	cache := NewParseCache(NewView())
	defer cache.Close()

	reads := 0
	read := func() ([]byte, error) {
		reads++
		return []byte(goSample), nil
	}

	pf1, err := cache.Get(7, "main.go", read)
	require.NoError(t, err)
	pf2, err := cache.Get(7, "main.go", read)
	require.NoError(t, err)

	assert.Same(t, pf1, pf2)
	assert.Equal(t, 1, reads)
	assert.Equal(t, 1, cache.Len())
}

func TestParseCache_MemoizesFailures(t *testing.T) {
	cache := NewParseCache(NewView())
	defer cache.Close()

	reads := 0
	boom := errors.New("gone")
	read := func() ([]byte, error) {
		reads++
		return nil, boom
	}

	_, err := cache.Get(3, "gone.go", read)
	require.ErrorIs(t, err, boom)
	_, err = cache.Get(3, "gone.go", read)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, reads)
}
