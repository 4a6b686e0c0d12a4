package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel...", Truncate("hello", 3))
	assert.Equal(t, "hello", Truncate("hello", 0))
	assert.Equal(t, "", Truncate("", 5))
}
