// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> LookPath succeeds
	runnableCmds  map[string]bool // "bin arg1 arg2" -> RunSilent succeeds
	runPipedFunc  func(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(_ context.Context, name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) RunPiped(_ context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if m.runPipedFunc != nil {
		return m.runPipedFunc(name, args, stdin, stdout, stderr)
	}
	return nil
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman when docker is missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name: "docker daemon down, podman works",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name:    "neither",
			exec:    &mockExecutor{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(context.Background(), tt.exec)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "no container runtime available") {
					t.Fatalf("expected no-runtime error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.Name() != tt.wantName {
				t.Errorf("got runtime %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}

func TestImageExists(t *testing.T) {
	exec := &mockExecutor{runnableCmds: map[string]bool{
		"docker image inspect alpine:3": true,
		"podman image exists alpine:3":  true,
	}}

	for _, rt := range []Runtime{newDockerRuntime(exec), newPodmanRuntime(exec)} {
		if err := rt.ImageExists(context.Background(), "alpine:3"); err != nil {
			t.Errorf("%s: unexpected error: %v", rt.Name(), err)
		}
		err := rt.ImageExists(context.Background(), "missing:1")
		if err == nil || !strings.Contains(err.Error(), "missing:1") {
			t.Errorf("%s: expected error naming the image, got %v", rt.Name(), err)
		}
	}
}

func TestRunArgsAndStdio(t *testing.T) {
	var gotName string
	var gotArgs []string
	var gotStdin string
	exec := &mockExecutor{
		runPipedFunc: func(name string, args []string, stdin io.Reader, stdout, _ io.Writer) error {
			gotName, gotArgs = name, args
			data, _ := io.ReadAll(stdin)
			gotStdin = string(data)
			_, err := stdout.Write([]byte("ok\n"))
			return err
		},
	}

	var out bytes.Buffer
	err := newPodmanRuntime(exec).Run(context.Background(), Request{
		Image:   "alpine:3",
		Command: []string{"sh", "-s"},
		Env:     map[string]string{"B": "2", "A": "1"},
		Network: "none",
		Stdin:   strings.NewReader("echo hi"),
		Stdout:  &out,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "run --rm -i --network none -e A=1 -e B=2 alpine:3 sh -s"
	if gotName != "podman" || strings.Join(gotArgs, " ") != want {
		t.Errorf("got %s %v, want podman %s", gotName, gotArgs, want)
	}
	if gotStdin != "echo hi" {
		t.Errorf("stdin = %q", gotStdin)
	}
	if out.String() != "ok\n" {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestRunErrorIncludesStderr(t *testing.T) {
	exec := &mockExecutor{
		runPipedFunc: func(_ string, _ []string, _ io.Reader, _, stderr io.Writer) error {
			io.WriteString(stderr, "pulling\nsh: line 3: nope: not found\n")
			return errors.New("exit status 127")
		},
	}

	var stderr bytes.Buffer
	err := newDockerRuntime(exec).Run(context.Background(), Request{Image: "alpine:3", Stderr: &stderr})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "exit status 127: sh: line 3: nope: not found") {
		t.Errorf("error should carry the last stderr line, got: %v", err)
	}
	if !strings.Contains(stderr.String(), "pulling") {
		t.Errorf("caller stderr should receive output, got %q", stderr.String())
	}
}

func TestRunRequiresImage(t *testing.T) {
	if err := newDockerRuntime(&mockExecutor{}).Run(context.Background(), Request{}); err == nil {
		t.Fatal("expected error for missing image")
	}
}
