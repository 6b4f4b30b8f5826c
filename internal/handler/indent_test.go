package handler_test

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var spaceIndented = regexp.MustCompile(`^ {4}\S`)

// Go sources under internal/ and cmd/ indent with tabs, as gofmt does.
func TestSourcesIndentWithTabs(t *testing.T) {
	for _, root := range []string{"..", filepath.Join("..", "..", "cmd")} {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".go") {
				return nil
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			sc := bufio.NewScanner(f)
			sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
			for n := 1; sc.Scan(); n++ {
				assert.False(t, spaceIndented.MatchString(sc.Text()), "%s:%d is indented with spaces", path, n)
			}
			return sc.Err()
		})
		require.NoError(t, err)
	}
}
