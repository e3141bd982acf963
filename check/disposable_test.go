package check

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestDisposableStage_IsDisposable(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	stage := NewDisposableStage(log)

	assert.True(t, stage.IsDisposable("mailinator.com"))
	assert.True(t, stage.IsDisposable("MAILINATOR.COM"), "lookup should be case-insensitive")
	assert.False(t, stage.IsDisposable("example.com"))
}

func TestDisposableStage_NoteRoleBasedLocalDoesNotPanic(t *testing.T) {
	stage := NewDisposableStage(nil)
	stage.NoteRoleBasedLocal("alice", "example.com")
	stage.NoteRoleBasedLocal("admin", "example.com")
}
