package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"support-triage/internal/pipeline"
	"support-triage/internal/triage"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	out, err := execute(t, "", "classify", "My", "invoice", "is", "wrong")
	require.NoError(t, err)

	var result triage.ClassificationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, triage.CategoryBillingIssue, result.Category)
}

func TestClassifyCommandReadsStdin(t *testing.T) {
	out, err := execute(t, "I'm going to sue you\n", "classify")
	require.NoError(t, err)
	assert.Contains(t, out, `"category": "Critical Escalation"`)
}

func TestUrgencyCommandAt(t *testing.T) {
	chdirForTest(t, t.TempDir())

	out, err := execute(t, "", "urgency", "--at", "2024-01-13T22:00:00Z", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"urgencyScore":0,"urgency":"Low"}`, out)

	_, err = execute(t, "", "urgency", "--at", "yesterday", "hi")
	assert.Error(t, err)
}

func TestUrgencyCommandUsesConfiguredTimezone(t *testing.T) {
	chdirForTest(t, t.TempDir())
	// 59 characters, no keywords: 50 inside business hours, 35 outside.
	message := "I would like to know the status of my order from last week."
	at := "2024-01-10T12:00:00+09:00"

	out, err := execute(t, "", "urgency", "--at", at, message)
	require.NoError(t, err)
	assert.JSONEq(t, `{"urgencyScore":50,"urgency":"Medium"}`, out)

	path := filepath.Join(t.TempDir(), "triage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("triage:\n  timezone: UTC\n"), 0o600))

	out, err = execute(t, "", "--config", path, "urgency", "--at", at, message)
	require.NoError(t, err)
	assert.JSONEq(t, `{"urgencyScore":35,"urgency":"Low"}`, out)
}

func TestUrgencyCommandRejectsBadTimezone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("triage:\n  timezone: Not/AZone\n"), 0o600))

	_, err := execute(t, "", "--config", path, "urgency", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "triage.timezone")
}

func TestRunCommandOffline(t *testing.T) {
	chdirForTest(t, t.TempDir())

	out, err := execute(t, "", "run", "--offline", "The app crashes on login")
	require.NoError(t, err)

	var result pipeline.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, triage.CategoryTechnicalProblem, result.Category)
	assert.Equal(t, "rules", result.Source)
	assert.Equal(t, "Suggest user to restart their browser.", result.RecommendedAction)
}

func TestCategoriesCommand(t *testing.T) {
	out, err := execute(t, "", "categories")
	require.NoError(t, err)

	var payload struct {
		Categories    []string          `json:"categories"`
		Actions       map[string]string `json:"actions"`
		DefaultAction string            `json:"defaultAction"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Len(t, payload.Categories, 6)
	assert.Equal(t, "Review manually.", payload.Actions["Unknown"])
	assert.Equal(t, triage.DefaultAction, payload.DefaultAction)
}

func TestHashSecretCommand(t *testing.T) {
	out, err := execute(t, "", "hash-secret", "s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("s3cret")))

	_, err = execute(t, "", "hash-secret")
	assert.Error(t, err)
}
