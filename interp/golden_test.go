package interp_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fabvit86/jsonnet-go/interp"
	"github.com/fabvit86/jsonnet-go/parser"
	"github.com/k14s/difflib"
	"github.com/stretchr/testify/require"
)

// TestGolden evaluates every testdata/*.jsonnet program and compares the
// pretty-printed JSON against the sibling .golden file. Mismatches are
// reported as a line diff.
func TestGolden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.jsonnet"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no golden test programs found")

	for _, path := range paths {
		path := path
		name := strings.TrimSuffix(filepath.Base(path), ".jsonnet")
		t.Run(name, func(t *testing.T) {
			source, err := os.ReadFile(path)
			require.NoError(t, err)
			golden, err := os.ReadFile(strings.TrimSuffix(path, ".jsonnet") + ".golden")
			require.NoError(t, err)

			it := interp.New(interp.Options{Importer: &parser.FileImporter{}})
			tree, err := it.EvaluateSnippet(path, string(source))
			require.NoError(t, err)
			actual, err := interp.EncodeJSON(tree, "  ")
			require.NoError(t, err)

			expected := strings.TrimRight(string(golden), "\n")
			if actual != expected {
				diff := difflib.PPDiff(strings.Split(expected, "\n"), strings.Split(actual, "\n"))
				t.Fatalf("golden mismatch for %s; diff expected...actual:\n%s", path, diff)
			}
		})
	}
}
