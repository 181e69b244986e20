package vmerrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bu-lang/bu/pkg/vmerrors"
)

func TestIsMatchesKind(t *testing.T) {
	err := vmerrors.New(vmerrors.KindLoad, "bad magic")
	require.True(t, vmerrors.Is(err, vmerrors.KindLoad))
	require.False(t, vmerrors.Is(err, vmerrors.KindRuntime))
}

func TestWithTraceFormatsFrames(t *testing.T) {
	err := vmerrors.WithTrace(vmerrors.KindRuntime, vmerrors.New(vmerrors.KindRuntime, "divide by zero"), []vmerrors.StackFrame{
		{FunctionName: "main", Line: 3},
		{FunctionName: "Point", Selector: "dist:", Line: 10},
	})
	msg := err.Error()
	require.Contains(t, msg, "RuntimeError")
	require.Contains(t, msg, "divide by zero")
	require.Contains(t, msg, "Point#dist:")
}

func TestNewfFormatsMessage(t *testing.T) {
	err := vmerrors.Newf(vmerrors.KindRuntime, "undefined global %q", "foo")
	require.Contains(t, err.Error(), `undefined global "foo"`)
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := vmerrors.New(vmerrors.KindNative, "socket closed")
	wrapped := vmerrors.WithTrace(vmerrors.KindRuntime, cause, nil)
	require.Equal(t, error(cause), wrapped.Unwrap())
}

func TestIsReturnsFalseForPlainError(t *testing.T) {
	require.False(t, vmerrors.Is(errors.New("plain"), vmerrors.KindRuntime))
}
