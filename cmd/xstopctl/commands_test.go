package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xstop/pkg/lifecycle/xrun"
	"github.com/omeyang/xstop/pkg/lifecycle/xstop"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"xstopctl"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Iterations(t *testing.T) {
	code, out, _ := runCLI(t, "run", "-w", "3", "-n", "5", "--tick", "0s")
	require.Equal(t, 0, code, out)
	for _, want := range []string{
		"worker[0]: 5 iterations",
		"worker[1]: 5 iterations",
		"worker[2]: 5 iterations",
		"stop: completed, workers: 3, failed: 0, iterations: 15",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRun_StopAfter(t *testing.T) {
	code, out, errOut := runCLI(t, "run", "-w", "2", "--tick", "1ms", "--stop-after", "30ms", "--log-level", "debug")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "stop: deadline, workers: 2, failed: 0")
	assert.Contains(t, errOut, "requesting stop")
	assert.Contains(t, errOut, "app=xstopctl")
}

func TestRun_PanicIndex(t *testing.T) {
	code, out, _ := runCLI(t, "run", "-w", "3", "-n", "2", "--tick", "0s", "--panic-index", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "worker[0]: 2 iterations")
	assert.Contains(t, out, "worker[1]: failed: xstop: worker panic: worker 1: injected failure after 0 iterations")
	assert.Contains(t, out, "worker[2]: 2 iterations")
	assert.Contains(t, out, "failed: 1, iterations: 4")
}

func TestRun_ZeroWorkers(t *testing.T) {
	code, out, _ := runCLI(t, "run", "-w", "0")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "stop: completed, workers: 0, failed: 0, iterations: 0")
}

func TestRun_Metrics(t *testing.T) {
	code, out, _ := runCLI(t, "run", "-w", "2", "-n", "1", "--tick", "0s", "--metrics")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "metric xstop.operation.total component=xstop,operation=worker,status=ok 2")
	assert.Contains(t, out, "metric xstop.operation.total component=xstop,operation=join_all,status=ok 1")
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative workers", []string{"run", "-w=-1"}},
		{"too many workers", []string{"run", "-w", "5000"}},
		{"panic index out of range", []string{"run", "-w", "2", "--panic-index", "2"}},
		{"negative tick", []string{"run", "--tick=-1s"}},
		{"unknown level", []string{"run", "--log-level", "loud"}},
		{"unknown format", []string{"run", "--log-format", "xml"}},
		{"unknown flag", []string{"run", "--bogus"}},
		{"bad duration", []string{"run", "--stop-after", "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, tt.args...)
			assert.Equal(t, 2, code, errOut)
			assert.Contains(t, errOut, "参数错误")
		})
	}
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workers: 2
iterations: 3
tick: 0s
log:
  level: info
  file: `+filepath.Join(dir, "logs", "xstopctl.log")+`
`), 0o600))

	code, out, errOut := runCLI(t, "run", "-c", path, "-w", "4")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "workers: 4, failed: 0, iterations: 12")
	assert.Empty(t, errOut)

	data, err := os.ReadFile(filepath.Join(dir, "logs", "xstopctl.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "starting workers")
}

func TestRun_ConfigErrors(t *testing.T) {
	code, _, errOut := runCLI(t, "run", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "xconf")

	code, _, _ = runCLI(t, "run", "-c", "profile.toml")
	assert.Equal(t, 1, code)
}

func TestRun_ContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"xstopctl", "run", "-w", "2", "--tick", "1ms"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "stop: deadline, workers: 2, failed: 0")
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	require.Equal(t, 0, code)
	assert.Equal(t, "xstopctl "+versionString()+"\n", out)
}

func TestCounter(t *testing.T) {
	p := defaultProfile()
	p.Tick = time.Hour

	flag := xstop.NewFlag(false)
	done := make(chan int, 1)
	go func() { done <- counter(0, p)(flag) }()

	time.Sleep(10 * time.Millisecond)
	flag.RequestStop()
	select {
	case n := <-done:
		assert.Equal(t, 1, n, "tick wait should end on stop request")
	case <-time.After(5 * time.Second):
		t.Fatal("counter did not observe stop request")
	}

	assert.Equal(t, 0, counter(0, p)(xstop.NewFlag(true)))
}

func TestStopReason(t *testing.T) {
	assert.Equal(t, "completed", stopReason(nil))
	assert.Equal(t, "deadline", stopReason(xrun.ErrStopTimeout))
	assert.Equal(t, "deadline", stopReason(context.DeadlineExceeded))
	assert.Equal(t, "signal interrupt", stopReason(errors.Join(&xrun.SignalError{Signal: os.Interrupt})))
	assert.Equal(t, "signal", stopReason(xrun.ErrSignal))
}

func TestExitCodeErrors(t *testing.T) {
	assert.Equal(t, "exit status 1", (&exitError{code: 1}).Error())
	assert.Equal(t, "bad", usagef("bad").Error())
	assert.True(t, isCLIUsageError(errors.New("flag provided but not defined: -x")))
	assert.False(t, isCLIUsageError(errors.New("boom")))
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	joinErr := &xstop.JoinError{Errs: []error{nil, errors.New("bad")}}
	writeReport(&buf, []int{7, 0}, joinErr, "deadline", 1500*time.Microsecond)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "worker[0]: 7 iterations", lines[0])
	assert.Equal(t, "worker[1]: failed: bad", lines[1])
	assert.Equal(t, "stop: deadline, workers: 2, failed: 1, iterations: 7, elapsed: 2ms", lines[2])
}
