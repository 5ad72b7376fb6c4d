package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTTY_NilWriter(t *testing.T) {
	assert.False(t, IsTTY(nil))
}

func TestIsTTY_NonFileWriter(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
}

func TestDetectNoColor(t *testing.T) {
	os.Unsetenv("NO_COLOR")
	assert.False(t, DetectNoColor())

	os.Setenv("NO_COLOR", "1")
	defer os.Unsetenv("NO_COLOR")
	assert.True(t, DetectNoColor())
}

func TestDetectCI(t *testing.T) {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		os.Unsetenv(v)
	}
	assert.False(t, DetectCI())

	os.Setenv("CI", "true")
	defer os.Unsetenv("CI")
	assert.True(t, DetectCI())
}
