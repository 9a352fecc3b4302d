package debug

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLog_OnlyWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	saved := logger
	logger = log.New(&buf, "[GLV_DEBUG] ", 0)
	t.Cleanup(func() {
		logger = saved
		SetEnabled(false)
	})

	SetEnabled(false)
	Log("tree", "dropped %d", 1)
	assert.Empty(t, buf.String())

	SetEnabled(true)
	assert.True(t, Enabled())
	Log("tree", "dropped %d", 2)
	assert.Equal(t, "[GLV_DEBUG] [tree] dropped 2\n", buf.String())
}
