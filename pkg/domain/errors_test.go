package domain

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorFormattingAndMatching(t *testing.T) {
	err := Newf(CodeOutOfBounds, "phases.lbco.cell.length_a", "value %v outside [0, 10]", 12.5)
	if got := err.Error(); got != "OutOfBounds phases.lbco.cell.length_a: value 12.5 outside [0, 10]" {
		t.Fatalf("unexpected message %q", got)
	}
	wrapped := fmt.Errorf("set parameter: %w", err)
	if !errors.Is(wrapped, ErrOutOfBounds) || errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("sentinel matching by code failed")
	}
	if CodeOf(wrapped) != CodeOutOfBounds || KindOf(wrapped) != KindValidation {
		t.Fatalf("unexpected code/kind %s %s", CodeOf(wrapped), KindOf(wrapped))
	}
	if CodeOf(io.EOF) != "" || KindOf(io.EOF) != "" {
		t.Fatalf("foreign errors carry no code")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(CodeImportError, "xye", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) || !errors.Is(err, ErrImport) {
		t.Fatalf("cause or code lost: %v", err)
	}
	if err.Kind() != KindImport {
		t.Fatalf("kind %s", err.Kind())
	}
	if got := err.Error(); got != "ImportError xye: unexpected EOF" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestKinds(t *testing.T) {
	cases := map[Code]Kind{
		CodeCyclicConstraint:  KindConstraint,
		CodeNonFiniteOutput:   KindNumerical,
		CodeFitAlreadyRunning: KindConcurrency,
		CodeInvalidTransition: KindConcurrency,
		CodeNotFound:          KindNotFound,
		CodeNoFreeParameters:  KindValidation,
		Code("Unlisted"):      KindValidation,
	}
	for code, want := range cases {
		if got := (&Error{Code: code}).Kind(); got != want {
			t.Fatalf("%s: kind %s want %s", code, got, want)
		}
	}
}

func TestErrorListsParams(t *testing.T) {
	err := &Error{Code: CodeNonFiniteOutput, Subject: "d1a", Message: "NaN in profile", Params: []string{"a", "b"}}
	if got := err.Error(); got != "NonFiniteOutput d1a: NaN in profile [a, b]" {
		t.Fatalf("unexpected message %q", got)
	}
}
