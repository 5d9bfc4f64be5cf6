package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withProject creates a temp project directory containing a laurus.yaml
// schema, chdirs into it for the duration of the test, and points
// XDG_CONFIG_HOME at an empty temp dir so no real user config leaks in.
func withProject(t *testing.T, yamlSchema string) (dir string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "laurus.yaml"), []byte(yamlSchema), 0644))

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	return dir
}

func runRoot(t *testing.T, dataDirFlag string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	full := append([]string{"--data", dataDirFlag}, args...)
	root.SetArgs(full)
	err := root.Execute()
	return buf.String(), err
}

const testSchemaYAML = `
schema:
  body:
    kind: text
    indexed: true
    stored: true
`

func TestPutThenCommitThenSearch(t *testing.T) {
	withProject(t, testSchemaYAML)
	data := t.TempDir()

	fieldsPath := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(fieldsPath, []byte(`{"body":"the quick brown fox"}`), 0644))

	out, err := runRoot(t, data, "put", "--id", "doc-1", fieldsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "internal_id=")

	_, err = runRoot(t, data, "commit")
	require.NoError(t, err)

	out, err = runRoot(t, data, "search", "--field", "body", "--term", "fox")
	require.NoError(t, err)
	assert.Contains(t, out, "doc-1")
}

func TestStatsReportsZeroBeforeAnyCommit(t *testing.T) {
	withProject(t, testSchemaYAML)
	data := t.TempDir()

	out, err := runRoot(t, data, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "lexical: segments=0 live=0 deleted=0")
}

func TestPutWithoutReplaceAddsSeparateChunks(t *testing.T) {
	withProject(t, testSchemaYAML)
	data := t.TempDir()

	fieldsPath := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(fieldsPath, []byte(`{"body":"alpha"}`), 0644))

	_, err := runRoot(t, data, "put", "--id", "doc-1", fieldsPath)
	require.NoError(t, err)
	_, err = runRoot(t, data, "put", "--id", "doc-1", fieldsPath)
	require.NoError(t, err)
	_, err = runRoot(t, data, "commit")
	require.NoError(t, err)

	out, err := runRoot(t, data, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "live=2")
}
