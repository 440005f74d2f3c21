package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCPUNum(t *testing.T) {
	n := GetCPUNum()
	assert.Greater(t, n, 0)
	assert.Equal(t, n, GetCPUNum())
}

func TestGetMemoryCount(t *testing.T) {
	assert.GreaterOrEqual(t, GetMemoryCount(), uint64(0))
}
