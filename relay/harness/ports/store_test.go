package harnessports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateThreadID(t *testing.T) {
	valid := []string{"t1", "thread_0192f0c4-7a3b-7c1d-9e2f-0123456789ab", "new_thread_1700000000", "chat-42.v2"}
	for _, id := range valid {
		assert.NoError(t, ValidateThreadID(id), id)
	}

	invalid := []string{"", "   ", "../etc/passwd", "a/b", `a\b`, "..", "a\x00b"}
	for _, id := range invalid {
		assert.ErrorIs(t, ValidateThreadID(id), ErrInvalidThreadID, id)
	}
}
