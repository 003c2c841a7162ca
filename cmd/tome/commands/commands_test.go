package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tome/cmd/tome/commands"
	"go.trai.ch/tome/internal/app"
	"go.trai.ch/tome/internal/build"
)

type mockApp struct {
	runFunc   func(ctx context.Context, opts app.RunOptions) error
	cleanFunc func(ctx context.Context, opts app.CleanOptions) error
}

func (m *mockApp) Run(ctx context.Context, opts app.RunOptions) error {
	if m.runFunc != nil {
		return m.runFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) Clean(ctx context.Context, opts app.CleanOptions) error {
	if m.cleanFunc != nil {
		return m.cleanFunc(ctx, opts)
	}
	return nil
}

func TestCommands_Run(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var capturedOpts app.RunOptions
		called := false

		mock := &mockApp{
			runFunc: func(_ context.Context, opts app.RunOptions) error {
				capturedOpts = opts
				called = true
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"run", "--from", "analyze", "--until", "write", "--lenient", "--force"})

		// We don't care about output here, just flag propagation
		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, "analyze", capturedOpts.From)
		assert.Equal(t, "write", capturedOpts.Until)
		assert.True(t, capturedOpts.Lenient)
		assert.True(t, capturedOpts.Force)
	})

	t.Run("defaults leave the full phase range", func(t *testing.T) {
		var capturedOpts app.RunOptions

		mock := &mockApp{
			runFunc: func(_ context.Context, opts app.RunOptions) error {
				capturedOpts = opts
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"run"})

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.Empty(t, capturedOpts.From)
		assert.Empty(t, capturedOpts.Until)
		assert.False(t, capturedOpts.Lenient)
		assert.False(t, capturedOpts.Force)
	})

	t.Run("returns error on run failure", func(t *testing.T) {
		mock := &mockApp{
			runFunc: func(_ context.Context, _ app.RunOptions) error {
				return errors.New("simulated error")
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"run"})
		// Silence output to avoid polluting test logs
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

		err := cli.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})
}

func TestCommands_Clean(t *testing.T) {
	t.Run("wires namespace flag", func(t *testing.T) {
		var capturedOpts app.CleanOptions

		mock := &mockApp{
			cleanFunc: func(_ context.Context, opts app.CleanOptions) error {
				capturedOpts = opts
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"clean", "-n", "analysis"})

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "analysis", capturedOpts.Namespace)
	})

	t.Run("empty namespace means everything", func(t *testing.T) {
		var capturedOpts app.CleanOptions
		called := false

		mock := &mockApp{
			cleanFunc: func(_ context.Context, opts app.CleanOptions) error {
				capturedOpts = opts
				called = true
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"clean"})

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.True(t, called)
		assert.Empty(t, capturedOpts.Namespace)
	})
}

func TestCommands_Version(t *testing.T) {
	mock := &mockApp{}
	cli := commands.New(mock)

	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"version"})

	err := cli.Execute(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), build.Version)
}
