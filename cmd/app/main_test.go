package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"lps/internal/position"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSolveCmd_UnitLayout(t *testing.T) {
	out, err := runCmd(t, "solve")
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if want := "Probe position: (0.500000, 0.288675, 0.816497)"; !strings.Contains(out, want) {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestSolveCmd_OffsetAndBoth(t *testing.T) {
	out, err := runCmd(t, "solve", "--offset", "10,0,1", "--both")
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	for _, want := range []string{
		"Probe position: (10.500000, 0.288675, 1.816497)",
		"Mirror position: (10.500000, 0.288675, 0.183503)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output = %q, want %q", out, want)
		}
	}
}

func TestSolveCmd_NotFound(t *testing.T) {
	out, err := runCmd(t, "solve", "--r1", "0.01", "--r2", "0.01", "--r3", "0.01")
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !strings.Contains(out, "Position not found!") {
		t.Fatalf("output = %q", out)
	}
}

func TestSolveCmd_InvalidTriangle(t *testing.T) {
	_, err := runCmd(t, "solve", "--d23", "10")
	if !errors.Is(err, position.ErrInvalidGeometry) {
		t.Fatalf("err = %v, want ErrInvalidGeometry", err)
	}
}

func TestSolveCmd_NegativeRange(t *testing.T) {
	_, err := runCmd(t, "solve", "--r2", "-1")
	if !errors.Is(err, position.ErrInvalidMeasurement) {
		t.Fatalf("err = %v, want ErrInvalidMeasurement", err)
	}
}

func TestAnchorsCmd(t *testing.T) {
	out, err := runCmd(t, "anchors", "--d12", "3", "--d13", "4", "--d23", "5")
	if err != nil {
		t.Fatalf("anchors: %v", err)
	}
	for _, want := range []string{
		"Anchor 1: (0.000000, 0.000000, 0.000000)",
		"Anchor 2: (3.000000, 0.000000, 0.000000)",
		"Anchor 3: (0.000000, 4.000000, 0.000000)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output = %q, want %q", out, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("WARN").Level().String() != "WARN" {
		t.Errorf("WARN not parsed")
	}
	if parseLevel("").Level().String() != "INFO" {
		t.Errorf("default level is not INFO")
	}
}
