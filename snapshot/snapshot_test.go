package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func TestOpenRequiresID(t *testing.T) {
	_, err := Open(t.TempDir(), "  ")
	require.Error(t, err)
}

func TestRecordThenCompare(t *testing.T) {
	dir := t.TempDir()

	b, err := Open(dir, "points")
	require.NoError(t, err)
	out, err := b.Check("origin", point{0, 0})
	require.NoError(t, err)
	assert.Equal(t, StatusNew, out.Status)
	require.NoError(t, b.Save())
	assert.FileExists(t, filepath.Join(dir, "points.json"))

	b, err = Open(dir, "points")
	require.NoError(t, err)
	out, err = b.Check("origin", point{0, 0})
	require.NoError(t, err)
	assert.Equal(t, StatusPass, out.Status)
	assert.Empty(t, out.Diff)

	out, err = b.Check("origin", point{1, 0})
	require.NoError(t, err)
	assert.Equal(t, StatusFail, out.Status)
	assert.Contains(t, out.Diff, "x")
}

func TestCompareIgnoresFormatting(t *testing.T) {
	dir := t.TempDir()
	stored := "{\n  \"list\":   [ 1,2,\n 3 ],\n \"obj\": {\"b\": 2, \"a\": 1}\n}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fmt.json"), []byte(`{"value": `+stored+`}`), 0o644))

	b, err := Open(dir, "fmt")
	require.NoError(t, err)
	out, err := b.Check("value", map[string]any{"list": []int{1, 2, 3}, "obj": map[string]int{"a": 1, "b": 2}})
	require.NoError(t, err)
	assert.Equal(t, StatusPass, out.Status, out.Diff)
}

func TestEmptyFileIsEmptyBook(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blank.json"), nil, 0o644))
	b, err := Open(dir, "blank")
	require.NoError(t, err)
	out, err := b.Check("anything", true)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, out.Status)
}

func TestCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{nope"), 0o644))
	_, err := Open(dir, "bad")
	assert.Error(t, err)
}

func TestCheckRejectsNil(t *testing.T) {
	b, err := Open(t.TempDir(), "nil")
	require.NoError(t, err)
	_, err = b.Check("nothing", nil)
	assert.Error(t, err)
}

func TestSaveOnlyWhenDirty(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(dir, "clean")
	require.NoError(t, err)
	require.NoError(t, b.Save())
	assert.NoFileExists(t, filepath.Join(dir, "clean.json"))
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(dir, "report")
	require.NoError(t, err)
	_, err = b.Check("a", 1)
	require.NoError(t, err)
	require.NoError(t, b.Save())

	b, err = Open(dir, "report")
	require.NoError(t, err)
	_, _ = b.Check("a", 1)
	_, _ = b.Check("b", "fresh")
	_, _ = b.Check("a", 2)

	var buf bytes.Buffer
	require.NoError(t, b.Report(&buf))
	out := buf.String()
	assert.Contains(t, out, "report")
	assert.Contains(t, out, "New snapshot: b")
	assert.Contains(t, out, "Failed: a")
	assert.Contains(t, out, "1 / 3 passed")
	assert.Len(t, b.Outcomes(), 3)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "pass", StatusPass.String())
	assert.Equal(t, "FAIL", StatusFail.String())
	assert.Equal(t, "new", StatusNew.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}
