package command

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellRun(t *testing.T) {
	sh := NewShell(nil)

	out, err := sh.Run(context.Background(), []string{"sh", "-c", "echo ok"})
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = sh.Run(context.Background(), []string{"sh", "-c", "echo missing >&2; exit 3"})
	require.Error(t, err)
	require.True(t, IsExitError(err))
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Error(), "exited with code 3: missing")

	_, err = sh.Run(context.Background(), []string{"/nonexistent/binary"})
	require.Error(t, err)
	assert.False(t, IsExitError(err), "a missing binary is a transport error")

	_, err = sh.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestIsExitErrorWrapped(t *testing.T) {
	err := fmt.Errorf("clear: %w", &ExitError{Cmd: []string{"iptables", "-F", "X"}, Code: 1})
	assert.True(t, IsExitError(err))
	assert.False(t, IsExitError(fmt.Errorf("connection refused")))
}

func TestHostRecordsThroughDryRun(t *testing.T) {
	dry := NewDryRun(nil)
	host := Host{Commander: dry}

	_, err := host.Exec(context.Background(), "ignored", []string{"tc", "qdisc", "del", "dev", "eth0", "root"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"tc", "qdisc", "del", "dev", "eth0", "root"}}, dry.Commands())
}
