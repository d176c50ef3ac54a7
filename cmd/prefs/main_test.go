package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/goliatone/go-prefs/pkg/activity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var editorLayout = filepath.Join("..", "..", "layout", "testdata", "editor.yaml")

type cli struct {
	t     *testing.T
	flags []string
}

func newCLI(t *testing.T, flags ...string) *cli {
	t.Helper()
	base := []string{"--layout", editorLayout, "--store", t.TempDir()}
	return &cli{t: t, flags: append(base, flags...)}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append(append([]string{}, args...), c.flags...))
	err := cmd.Execute()
	return stdout.String(), err
}

func (c *cli) must(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

func TestGroups(t *testing.T) {
	out := newCLI(t).must("groups")
	assert.Contains(t, out, "general")
	assert.Contains(t, out, "lang, autosave")
	assert.Contains(t, out, "tabSize, theme")
}

func TestSetGetShow(t *testing.T) {
	c := newCLI(t, "--user", "u42")

	out := c.must("set", "lang=fr", "tabSize=8")
	assert.Contains(t, out, "saved to user/u42/editor")
	assert.Regexp(t, `lang\s+fr\s+valid`, out)

	assert.Equal(t, "fr\n", c.must("get", "lang"))
	assert.Equal(t, "8\n", c.must("get", "tabSize"))

	show := c.must("show", "editor")
	assert.Regexp(t, `editor\s+tabSize\s+8\s+user/u42/editor`, show)
	assert.Regexp(t, `editor\s+theme\s+dark\s+defaults`, show)
	assert.NotContains(t, show, "lang")
}

func TestSetRejectsInvalidValues(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("set", "lang=xx")
	assert.ErrorIs(t, err, errInvalidChanges)
	assert.Contains(t, out, "unsupported language")
	assert.Equal(t, "en\n", c.must("get", "lang"))

	out, err = c.run("set", "theme=blue")
	assert.ErrorIs(t, err, errInvalidChanges)
	assert.Contains(t, out, "must be one of dark, light")

	_, err = c.run("set", "tabSize=abc")
	assert.Error(t, err)

	_, err = c.run("set", "missing=1")
	assert.ErrorContains(t, err, "unknown key")

	_, err = c.run("set", "lang")
	assert.ErrorContains(t, err, "expected key=value")
}

func TestCheckDoesNotSave(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("check", "tabSize=99")
	assert.ErrorIs(t, err, errInvalidChanges)

	out := c.must("check", "tabSize=2")
	assert.Regexp(t, `tabSize\s+2\s+valid`, out)
	assert.Equal(t, "4\n", c.must("get", "tabSize"))

	c.must("set", "--dry-run", "tabSize=2")
	assert.Equal(t, "4\n", c.must("get", "tabSize"))
}

func TestUserScopeLayersOverSystem(t *testing.T) {
	dir := t.TempDir()
	system := &cli{t: t, flags: []string{"--layout", editorLayout, "--store", dir}}
	user := &cli{t: t, flags: []string{"--layout", editorLayout, "--store", dir, "--user", "u42"}}

	system.must("set", "lang=de")
	assert.Equal(t, "de\n", user.must("get", "lang"))

	user.must("set", "lang=fr")
	assert.Equal(t, "fr\n", user.must("get", "lang"))
	assert.Equal(t, "de\n", system.must("get", "lang"))

	out := user.must("set", "lang=fr")
	assert.NotContains(t, out, "saved", "setting the saved value is not a change")

	user.must("reset", "lang")
	assert.Equal(t, "de\n", user.must("get", "lang"))
}

func TestEnginesAndMetrics(t *testing.T) {
	c := newCLI(t, "--engine", "cel")
	out := c.must("set", "--metrics", "tabSize=8", "autosave=false")
	assert.Contains(t, out, "prefs_events_total")
	assert.Contains(t, out, "prefs_pending_changes 0")

	_, err := newCLI(t, "--engine", "lua").run("set", "tabSize=8")
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	c := &cli{t: t, flags: []string{"--layout", editorLayout, "--redis-addr", mr.Addr(), "--user", "u42"}}

	c.must("set", "theme=light")
	assert.Equal(t, "light\n", c.must("get", "theme"))
	assert.True(t, mr.Exists("prefs:user/u42/editor"))
}

func TestAuditLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	c := newCLI(t, "--user", "u42", "--audit-log", path)
	c.must("set", "lang=fr", "autosave=false")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], activity.VerbChangeSaved)
	assert.Contains(t, lines[0], "editor.autosave")
	assert.Contains(t, lines[1], `"user_ref":"u42"`)
}

func TestSchema(t *testing.T) {
	out := newCLI(t).must("schema", "--title", "Editor")
	var document map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &document))
	assert.Equal(t, "Editor", document["info"].(map[string]any)["title"])
	assert.Contains(t, out, `"x-group": "editor"`)
}

func TestLayoutFlagIsRequired(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"groups"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "layout"))
}

func TestParseAssignments(t *testing.T) {
	edits, err := parseAssignments([]string{"lang=fr", "empty=", "eq=a=b"})
	require.NoError(t, err)
	assert.Equal(t, []assignment{{key: "lang", raw: "fr"}, {key: "empty", raw: ""}, {key: "eq", raw: "a=b"}}, edits)

	_, err = parseAssignments([]string{"=x"})
	assert.Error(t, err)
}
