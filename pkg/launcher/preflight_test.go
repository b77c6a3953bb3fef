package launcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateRequiresSSHBinary(t *testing.T) {
	l := testLauncher("linux")
	conn := mustConn(t)

	err := l.Validate(conn)
	if err == nil {
		t.Fatalf("expected error without ssh on PATH")
	}
	if !strings.Contains(err.Error(), "SSH command ('ssh') not found in PATH") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestValidateMissingKeyFile(t *testing.T) {
	l := testLauncher("linux", "ssh")
	conn := mustConn(t)
	conn.KeyPath = filepath.Join(t.TempDir(), "nope.key")

	err := l.Validate(conn)
	if err == nil {
		t.Fatalf("expected error for missing key file")
	}
	if !strings.Contains(err.Error(), "SSH key file doesn't exist") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestValidateExpandsTildeInKeyPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, "id_test"), []byte("key"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	l := testLauncher("linux", "ssh")
	conn := mustConn(t)
	conn.KeyPath = "~/id_test"

	if err := l.Validate(conn); err != nil {
		t.Fatalf("expected tilde-expanded key to validate, got: %v", err)
	}
}

func TestValidatePasswordNeedsHelper(t *testing.T) {
	l := testLauncher("linux", "ssh")
	conn := mustConn(t)
	conn.Password = "pw"

	err := l.Validate(conn)
	if err == nil || !strings.Contains(err.Error(), "sshpass") {
		t.Fatalf("expected sshpass requirement, got: %v", err)
	}

	l = testLauncher("windows", "ssh")
	err = l.Validate(conn)
	if err == nil || !strings.Contains(err.Error(), "plink.exe") {
		t.Fatalf("expected PuTTY requirement on windows, got: %v", err)
	}

	l = testLauncher("windows", "ssh", "klink.exe")
	if err := l.Validate(conn); err != nil {
		t.Fatalf("klink should satisfy the windows helper check, got: %v", err)
	}
}

func TestCheckCredentialsSkipsWithoutMaterial(t *testing.T) {
	l := testLauncher("linux")
	l.probe = func(ctx context.Context, argv, env []string) probeResult {
		t.Fatalf("probe must not run without password or key")
		return probeResult{}
	}
	if err := l.CheckCredentials(context.Background(), mustConn(t)); err != nil {
		t.Fatalf("expected silent success, got: %v", err)
	}
}

func TestCheckCredentialsKeyOnlyArgv(t *testing.T) {
	key := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(key, []byte("key"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	l := testLauncher("linux", "ssh")
	conn := mustConn(t)
	conn.KeyPath = key
	conn.Port = 2200

	var got []string
	l.probe = func(ctx context.Context, argv, env []string) probeResult {
		got = argv
		if _, ok := ctx.Deadline(); !ok {
			t.Fatalf("probe context has no deadline")
		}
		return probeResult{exitCode: 0}
	}

	if err := l.CheckCredentials(context.Background(), conn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	line := strings.Join(got, " ")
	for _, want := range []string{
		"-p 2200",
		"-o ConnectTimeout=1",
		"-o StrictHostKeyChecking=accept-new",
		"-o BatchMode=yes",
		"-i " + key,
		"deploy@web1.example.com true",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("argv missing %q: %v", want, got)
		}
	}
	if strings.Contains(line, "sshpass") || strings.Contains(line, "PubkeyAuthentication") {
		t.Fatalf("key-only probe must not carry password options: %v", got)
	}
}

func TestCheckCredentialsPasswordArgvAndEnv(t *testing.T) {
	l := testLauncher("linux", "ssh", "sshpass")
	conn := mustConn(t)
	conn.Password = "s3cret"

	var gotArgv, gotEnv []string
	l.probe = func(ctx context.Context, argv, env []string) probeResult {
		gotArgv, gotEnv = argv, env
		return probeResult{exitCode: 0}
	}

	if err := l.CheckCredentials(context.Background(), conn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotArgv[0] != "/usr/bin/sshpass" || gotArgv[1] != "-e" {
		t.Fatalf("expected sshpass -e prefix: %v", gotArgv)
	}
	line := strings.Join(gotArgv, " ")
	if !strings.Contains(line, "-o BatchMode=no") {
		t.Fatalf("password probe must not use batch mode: %v", gotArgv)
	}
	if !strings.Contains(line, "-o PubkeyAuthentication=no") {
		t.Fatalf("password probe must disable key auth: %v", gotArgv)
	}
	if strings.Contains(line, "s3cret") {
		t.Fatalf("password leaked into argv: %v", gotArgv)
	}
	if v, ok := lookupEnvVar(gotEnv, "SSHPASS"); !ok || v != "s3cret" {
		t.Fatalf("expected SSHPASS in probe env")
	}
}

func TestCheckCredentialsPasswordWithoutSshpass(t *testing.T) {
	l := testLauncher("linux", "ssh")
	conn := mustConn(t)
	conn.Password = "pw"

	err := l.CheckCredentials(context.Background(), conn)
	if err == nil || !strings.Contains(err.Error(), "sshpass not found (required for password check)") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckCredentialsWindowsUsesPlink(t *testing.T) {
	l := testLauncher("windows", "plink.exe")
	conn := mustConn(t)
	conn.Password = "pw"
	conn.Port = 2222

	var got []string
	l.probe = func(ctx context.Context, argv, env []string) probeResult {
		got = argv
		return probeResult{exitCode: 0}
	}

	if err := l.CheckCredentials(context.Background(), conn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line := strings.Join(got, " ")
	for _, want := range []string{"plink.exe", "-P 2222", "-batch", "-pw pw", "deploy@web1.example.com true"} {
		if !strings.Contains(line, want) {
			t.Fatalf("argv missing %q: %v", want, got)
		}
	}

	l = testLauncher("windows")
	l.probe = func(ctx context.Context, argv, env []string) probeResult { return probeResult{} }
	err := l.CheckCredentials(context.Background(), conn)
	if err == nil || !strings.Contains(err.Error(), "plink.exe or klink.exe not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInterpretProbeTaxonomy(t *testing.T) {
	l := testLauncher("linux")
	conn := mustConn(t)
	conn.Password = "pw"

	cases := []struct {
		name string
		res  probeResult
		want string
	}{
		{"success", probeResult{exitCode: 0}, ""},
		{"timed out locally", probeResult{timedOut: true}, "authentication check timed out"},
		{"start error", probeResult{startErr: os.ErrPermission}, "error during authentication check"},
		{"permission denied", probeResult{exitCode: 255, stderr: "deploy@web1: Permission denied (publickey,password)."},
			"authentication failed: Permission denied (Check password/key or server config)."},
		{"remote timeout text", probeResult{exitCode: 1, stderr: "Timeout waiting for banner"}, "connection timed out or failed"},
		{"exit 255 without output", probeResult{exitCode: 255}, "connection timed out or failed:\nExit code 255"},
		{"other failure", probeResult{exitCode: 6, stderr: "Host key verification failed."}, "authentication check failed"},
		{"stdout fallback", probeResult{exitCode: 6, stdout: "something went wrong"}, "something went wrong"},
	}

	for _, c := range cases {
		err := l.interpretProbe(conn, c.res)
		if c.want == "" {
			if err != nil {
				t.Fatalf("%s: expected nil, got %v", c.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Fatalf("%s: expected %q in error, got: %v", c.name, c.want, err)
		}
	}
}

// Permission denied on a passphrase-protected key with no stored password
// should explain that batch mode cannot unlock the key.
func TestInterpretProbePassphraseHint(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "id_enc")
	if err := os.WriteFile(keyPath, []byte(encryptedTestKey), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	l := testLauncher("linux")
	conn := mustConn(t)
	conn.KeyPath = keyPath

	err := l.interpretProbe(conn, probeResult{exitCode: 255, stderr: "Permission denied (publickey)."})
	if err == nil || !strings.Contains(err.Error(), "passphrase-protected") {
		t.Fatalf("expected passphrase hint, got: %v", err)
	}

	// With a stored password the hint is irrelevant.
	conn.Password = "pw"
	err = l.interpretProbe(conn, probeResult{exitCode: 255, stderr: "Permission denied."})
	if err == nil || strings.Contains(err.Error(), "passphrase-protected") {
		t.Fatalf("expected plain permission-denied, got: %v", err)
	}
}
