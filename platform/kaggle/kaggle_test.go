package kaggle_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform/kaggle"
)

// fakeCLI writes an executable shell script that prints the given
// output and exits with the given code, standing in for the kaggle
// binary.
func fakeCLI(t *testing.T, output string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake CLI script requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "kaggle")
	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s\\n' '%s'\nexit %d\n", output, exitCode)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newClient(t *testing.T, opts ...kaggle.Option) *kaggle.Client {
	t.Helper()
	creds := []string{
		`{"username":"acct0","key":"k0"}`,
		`{"username":"acct1","key":"k1"}`,
		"", // deliberately blank slot
	}
	opts = append([]kaggle.Option{kaggle.WithConfigDir(t.TempDir())}, opts...)
	c, err := kaggle.New("musicyyai/notebook63936fc364", creds, t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNew_RejectsBadSlug(t *testing.T) {
	if _, err := kaggle.New("no-owner", nil, ""); err == nil {
		t.Error("New(slug without owner) error = nil, want error")
	}
}

func TestUseAccount_WritesCredentialFile(t *testing.T) {
	configDir := t.TempDir()
	c := newClient(t, kaggle.WithConfigDir(configDir))

	if err := c.UseAccount(context.Background(), 1); err != nil {
		t.Fatalf("UseAccount(1) error: %v", err)
	}

	path := filepath.Join(configDir, "kaggle.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read kaggle.json: %v", err)
	}
	if string(raw) != `{"username":"acct1","key":"k1"}` {
		t.Errorf("kaggle.json = %s, want account 1 credentials", raw)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o600 {
		t.Errorf("kaggle.json mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestUseAccount_RejectsBadIndexAndEmptyCredentials(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	for _, index := range []int{-1, 5} {
		err := c.UseAccount(ctx, index)
		if err == nil {
			t.Errorf("UseAccount(%d) error = nil, want error", index)
			continue
		}
		if musicai.KindOf(err) != musicai.KindSetup {
			t.Errorf("UseAccount(%d) kind = %v, want %v", index, musicai.KindOf(err), musicai.KindSetup)
		}
	}

	if err := c.UseAccount(ctx, 2); err == nil {
		t.Error("UseAccount(blank credentials) error = nil, want error")
	}
}

func TestPoll_ParsesStatusOutput(t *testing.T) {
	tests := []struct {
		output string
		want   platform.RunStatus
	}{
		{`musicyyai/notebook63936fc364 has status "running"`, platform.RunRunning},
		{`musicyyai/notebook63936fc364 has status "complete"`, platform.RunComplete},
		{`musicyyai/notebook63936fc364 has status "error"`, platform.RunError},
		{`musicyyai/notebook63936fc364 has status "queued"`, platform.RunQueued},
		{`musicyyai/notebook63936fc364 has status "cancelAcknowledged"`, platform.RunCancelled},
	}
	for _, tt := range tests {
		c := newClient(t, kaggle.WithBinary(fakeCLI(t, tt.output, 0)))
		got, err := c.Poll(context.Background())
		if err != nil {
			t.Errorf("Poll() with %q error: %v", tt.output, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Poll() with %q = %v, want %v", tt.output, got, tt.want)
		}
	}
}

func TestPoll_UnrecognizedOutputIsPollFailure(t *testing.T) {
	c := newClient(t, kaggle.WithBinary(fakeCLI(t, "something went sideways", 0)))

	_, err := c.Poll(context.Background())
	if err == nil {
		t.Fatal("Poll() error = nil, want error")
	}
	if musicai.KindOf(err) != musicai.KindPoll {
		t.Errorf("Poll() kind = %v, want %v", musicai.KindOf(err), musicai.KindPoll)
	}
}

func TestPoll_CLIFailureIsPollFailure(t *testing.T) {
	c := newClient(t, kaggle.WithBinary(fakeCLI(t, "401 - Unauthorized", 1)))

	_, err := c.Poll(context.Background())
	if err == nil {
		t.Fatal("Poll() error = nil, want error")
	}
	var opErr *musicai.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("Poll() error type = %T, want *musicai.OpError", err)
	}
	if opErr.Op != "kaggle.poll" {
		t.Errorf("OpError.Op = %q, want %q", opErr.Op, "kaggle.poll")
	}
}

func TestFetchOutputs_MissingAudioIsDownloadFailure(t *testing.T) {
	// The fake CLI succeeds but downloads nothing, so the required
	// output files are missing.
	c := newClient(t, kaggle.WithBinary(fakeCLI(t, "Output downloaded", 0)))

	_, err := c.FetchOutputs(context.Background(), t.TempDir())
	if err == nil {
		t.Fatal("FetchOutputs() error = nil, want error")
	}
	if musicai.KindOf(err) != musicai.KindDownload {
		t.Errorf("FetchOutputs() kind = %v, want %v", musicai.KindOf(err), musicai.KindDownload)
	}
}
