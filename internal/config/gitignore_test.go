package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitignoreParser_ExclusionPatterns(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{
			name:  "bare file name matches anywhere",
			lines: []string{"secrets.env"},
			want:  []string{"**/secrets.env"},
		},
		{
			name:  "directory pattern becomes a tree glob",
			lines: []string{"node_modules/"},
			want:  []string{"**/node_modules/**"},
		},
		{
			name:  "leading slash anchors to the root",
			lines: []string{"/dist"},
			want:  []string{"dist"},
		},
		{
			name:  "inner slash also anchors to the root",
			lines: []string{"build/output"},
			want:  []string{"build/output"},
		},
		{
			name:  "anchored directory",
			lines: []string{"/target/"},
			want:  []string{"target/**"},
		},
		{
			name:  "negation patterns are dropped",
			lines: []string{"*.log", "!keep.log"},
			want:  []string{"**/*.log"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gp := NewGitignoreParser()
			for _, line := range tt.lines {
				gp.AddPattern(line)
			}
			assert.Equal(t, tt.want, gp.ExclusionPatterns())
		})
	}
}

func TestGitignoreParser_LoadGitignore(t *testing.T) {
	dir := t.TempDir()
	content := "# build output\n\ntarget/\n*.tmp\n!important.tmp\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(content), 0644))

	gp := NewGitignoreParser()
	require.NoError(t, gp.LoadGitignore(dir))

	assert.Equal(t, []string{"**/target/**", "**/*.tmp"}, gp.ExclusionPatterns())
	assert.Equal(t, []string{"**/target/**"}, gp.DirectoryPatterns())
}

func TestGitignoreParser_MissingFile(t *testing.T) {
	gp := NewGitignoreParser()
	require.NoError(t, gp.LoadGitignore(t.TempDir()))
	assert.Empty(t, gp.ExclusionPatterns())
}
