package kurtosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterNames(t *testing.T) {
	names := []string{"l1-el-1-geth", "l2-el-1-bor", "l2-el-2-bor", "rabbitmq"}

	got, err := filterNames(names, `^l2-el-\d+-bor$`)
	require.NoError(t, err)
	assert.Equal(t, []string{"l2-el-1-bor", "l2-el-2-bor"}, got)

	_, err = filterNames(names, "(")
	assert.Error(t, err)
}

func TestContainerNames(t *testing.T) {
	assert.Equal(t, []string{"bor", "pos--bor"}, containerNames("pos", "bor"))
}
