package xrun

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/omeyang/xstop/pkg/lifecycle/xstop"
)

// untilStopped 循环直到收到停止请求，返回循环次数。
func untilStopped(f *xstop.Flag) int {
	n := 0
	for f.Running() {
		n++
		time.Sleep(time.Millisecond)
	}
	return n
}

func constant(v int) func(*xstop.Flag) int {
	return func(*xstop.Flag) int { return v }
}

func TestSupervise_NilGroup(t *testing.T) {
	values, err := Supervise[int](context.Background(), nil)
	if !errors.Is(err, ErrNilGroup) {
		t.Fatalf("expected ErrNilGroup, got %v", err)
	}
	if values != nil {
		t.Errorf("expected nil values, got %v", values)
	}
}

func TestSupervise_NaturalCompletion(t *testing.T) {
	g := xstop.NewGroup([]func(*xstop.Flag) int{constant(42), constant(100)})

	values, err := Supervise(context.Background(), g, WithoutSignalHandler())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(values) != 2 || values[0] != 42 || values[1] != 100 {
		t.Errorf("expected [42 100], got %v", values)
	}
	if g.Flag().ShouldStop() {
		t.Error("flag should stay clear when workers finish on their own")
	}
}

func TestSupervise_NilContext(t *testing.T) {
	g := xstop.NewGroup([]func(*xstop.Flag) int{constant(1)})
	//nolint:staticcheck // nil context 归一化
	values, err := Supervise(nil, g, WithoutSignalHandler())
	if err != nil || len(values) != 1 || values[0] != 1 {
		t.Fatalf("unexpected result %v, %v", values, err)
	}
}

func TestSupervise_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := xstop.NewGroup([]func(*xstop.Flag) int{untilStopped, untilStopped, untilStopped})

	time.AfterFunc(20*time.Millisecond, cancel)
	values, err := Supervise(ctx, g, WithoutSignalHandler())
	if err != nil {
		t.Fatalf("plain cancellation should not be reported, got %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(values))
	}
	if !g.Flag().ShouldStop() {
		t.Error("flag should be set after cancellation")
	}
}

func TestSupervise_ContextCause(t *testing.T) {
	errShutdown := errors.New("shutdown requested")
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(errShutdown)

	g := xstop.NewGroup([]func(*xstop.Flag) int{untilStopped})
	_, err := Supervise(ctx, g, WithoutSignalHandler())
	if !errors.Is(err, errShutdown) {
		t.Fatalf("expected cause to be returned, got %v", err)
	}
}

func TestSupervise_StopAfter(t *testing.T) {
	g := xstop.NewGroup([]func(*xstop.Flag) int{untilStopped, untilStopped})

	start := time.Now()
	values, err := Supervise(context.Background(), g,
		WithoutSignalHandler(),
		WithStopAfter(30*time.Millisecond),
	)
	if !errors.Is(err, ErrStopTimeout) {
		t.Fatalf("expected ErrStopTimeout, got %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("stopped before deadline")
	}
	for i, v := range values {
		if v <= 0 {
			t.Errorf("worker %d did not run: %d", i, v)
		}
	}
}

func TestSupervise_Signal(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	ctx := withTestSigChan(context.Background(), sigCh)
	g := xstop.NewGroup([]func(*xstop.Flag) int{untilStopped})

	done := make(chan error, 1)
	go func() {
		_, err := Supervise(ctx, g, WithSignals([]os.Signal{syscall.SIGUSR1}))
		done <- err
	}()

	sigCh <- syscall.SIGTERM

	select {
	case err := <-done:
		var sigErr *SignalError
		if !errors.As(err, &sigErr) {
			t.Fatalf("expected SignalError, got %v", err)
		}
		if sigErr.Signal != syscall.SIGTERM {
			t.Errorf("expected SIGTERM, got %v", sigErr.Signal)
		}
		if !errors.Is(err, ErrSignal) {
			t.Error("error should match ErrSignal")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for Supervise to return")
	}
}

func TestSupervise_FailureAndCause(t *testing.T) {
	g := xstop.NewGroup([]func(*xstop.Flag) int{
		untilStopped,
		func(*xstop.Flag) int { panic("boom") },
	})

	values, err := Supervise(context.Background(), g,
		WithoutSignalHandler(),
		WithStopAfter(20*time.Millisecond),
	)
	var joinErr *xstop.JoinError
	if !errors.As(err, &joinErr) {
		t.Fatalf("expected JoinError, got %v", err)
	}
	if got := joinErr.Failed(); len(got) != 1 || got[0] != 1 {
		t.Errorf("expected failed position [1], got %v", got)
	}
	if !errors.Is(err, ErrStopTimeout) {
		t.Error("stop cause should be joined with the failure report")
	}
	if !errors.Is(err, xstop.ErrAbnormalTermination) {
		t.Error("expected abnormal termination")
	}
	if values[1] != 0 {
		t.Errorf("failed position should hold zero value, got %d", values[1])
	}
}

func TestSupervise_AlreadyJoined(t *testing.T) {
	g := xstop.NewGroup([]func(*xstop.Flag) int{constant(1)})
	if _, err := g.JoinAll(false); err != nil {
		t.Fatal(err)
	}
	_, err := Supervise(context.Background(), g, WithoutSignalHandler())
	if !errors.Is(err, xstop.ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
}

func TestRun(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	values, err := Run(context.Background(),
		[]func(*xstop.Flag) int{untilStopped, untilStopped},
		WithName("batch"),
		WithLogger(logger),
		WithoutSignalHandler(),
		WithStopAfter(10*time.Millisecond),
		WithGroupOptions(xstop.WithName("workers")),
		nil,
	)
	if !errors.Is(err, ErrStopTimeout) {
		t.Fatalf("expected ErrStopTimeout, got %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(values))
	}
	out := buf.String()
	for _, want := range []string{"requesting stop", "supervisor=batch", "group=workers", "reason=deadline"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_Empty(t *testing.T) {
	values, err := Run[string](context.Background(), nil, WithoutSignalHandler())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(values) != 0 {
		t.Errorf("expected no values, got %v", values)
	}
}

func TestSignalError(t *testing.T) {
	err := &SignalError{Signal: syscall.SIGINT}
	if err.Error() != "received signal interrupt" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if (&SignalError{}).Error() != "received signal <nil>" {
		t.Error("nil signal message mismatch")
	}
	if !errors.Is(err, ErrSignal) || errors.Unwrap(err) != ErrSignal {
		t.Error("SignalError should match ErrSignal")
	}
}

func TestDefaultSignals_Copy(t *testing.T) {
	a := DefaultSignals()
	a[0] = syscall.SIGUSR2
	if DefaultSignals()[0] != syscall.SIGHUP {
		t.Error("DefaultSignals should return a fresh slice")
	}
}

func TestWithSignals_Copy(t *testing.T) {
	signals := []os.Signal{syscall.SIGINT}
	opt := WithSignals(signals)
	signals[0] = syscall.SIGTERM

	o := applyOptions([]Option{opt})
	if o.signals[0] != syscall.SIGINT {
		t.Error("WithSignals should copy its input")
	}
}

func TestOptions_Defaults(t *testing.T) {
	o := applyOptions([]Option{WithName(""), WithLogger(nil), WithStopAfter(-1)})
	if o.name != "xrun" || o.logger == nil {
		t.Errorf("empty values should keep defaults: %+v", o)
	}
	if o.noSignalHandler {
		t.Error("signal handler should be enabled by default")
	}
}
