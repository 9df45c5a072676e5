package hook_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merlos/wolhook/internal/hook"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_Success(t *testing.T) {
	requireShell(t)
	r := &hook.ExecRunner{}

	res, err := r.Run(context.Background(), []string{"sh", "-c", "echo out; echo err >&2"})
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(res.Stdout))
	assert.Equal(t, "err\n", string(res.Stderr))
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, hook.OutcomeSuccess, hook.Classify(err))
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)
	r := &hook.ExecRunner{}

	res, err := r.Run(context.Background(), []string{"sh", "-c", "echo boom >&2; exit 3"})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "boom\n", string(res.Stderr))

	var exitErr *hook.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, hook.OutcomeFailed, hook.Classify(err))
}

func TestExecRunner_LaunchFailure(t *testing.T) {
	r := &hook.ExecRunner{}

	res, err := r.Run(context.Background(), []string{"/nonexistent/wolhook-test-binary"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, hook.OutcomeError, hook.Classify(err))
}

func TestExecRunner_EmptyCommand(t *testing.T) {
	r := &hook.ExecRunner{}
	for _, argv := range [][]string{nil, {}, {""}} {
		_, err := r.Run(context.Background(), argv)
		assert.ErrorIs(t, err, hook.ErrEmptyCommand)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	requireShell(t)
	r := &hook.ExecRunner{Timeout: 50 * time.Millisecond}

	start := time.Now()
	_, err := r.Run(context.Background(), []string{"sh", "-c", "exec sleep 5"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.Equal(t, hook.OutcomeFailed, hook.Classify(err))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, hook.OutcomeSuccess, hook.Classify(nil))
	assert.Equal(t, hook.OutcomeFailed, hook.Classify(&hook.ExitError{Code: 1, Err: errors.New("exit status 1")}))
	assert.Equal(t, hook.OutcomeError, hook.Classify(errors.New("fork/exec: permission denied")))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "success", hook.OutcomeSuccess.String())
	assert.Equal(t, "failed", hook.OutcomeFailed.String())
	assert.Equal(t, "error", hook.OutcomeError.String())
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	got := hook.Report(log, &hook.Result{Stdout: []byte("hi")}, nil)
	assert.Equal(t, hook.OutcomeSuccess, got)
	assert.Contains(t, buf.String(), "command executed successfully")
	assert.Contains(t, buf.String(), "stdout=hi")

	buf.Reset()
	got = hook.Report(log, &hook.Result{ExitCode: 2}, &hook.ExitError{Code: 2, Err: errors.New("exit status 2")})
	assert.Equal(t, hook.OutcomeFailed, got)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "status=2")

	buf.Reset()
	got = hook.Report(log, nil, errors.New("no such file"))
	assert.Equal(t, hook.OutcomeError, got)
	assert.Contains(t, buf.String(), "failed to run command")
}

func TestReport_NilResult(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	assert.NotPanics(t, func() {
		assert.Equal(t, hook.OutcomeSuccess, hook.Report(log, nil, nil))
	})
	assert.Contains(t, buf.String(), "command executed successfully")

	buf.Reset()
	assert.NotPanics(t, func() {
		got := hook.Report(log, nil, &hook.ExitError{Code: 4, Err: errors.New("exit status 4")})
		assert.Equal(t, hook.OutcomeFailed, got)
	})
	assert.Contains(t, buf.String(), "status=4")
}

func TestDisplayOutput(t *testing.T) {
	assert.Equal(t, "hello\n", hook.DisplayOutput([]byte("hello\n")))
	assert.Equal(t, `"\xff\xfe"`, hook.DisplayOutput([]byte{0xff, 0xfe}))
	assert.Equal(t, "", hook.DisplayOutput(nil))
}
