package main

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorecon/internal/app/bootstrap"
	"neorecon/internal/core/options"
)

func init() {
	pterm.DisableStyling()
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(&bootstrap.Env{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "NeoRecon ")
	assert.Contains(t, out, "Go Version: go")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "config.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scan:")

	_, err = execute(t, "config", "init", "-o", path)
	assert.Error(t, err)
	_, err = execute(t, "config", "init", "-o", path, "--force")
	assert.NoError(t, err)
}

func TestScanValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"threads", []string{"scan", "run", "-t", "127.0.0.1", "--threads", "0"}},
		{"timeout", []string{"scan", "quick", "-t", "127.0.0.1", "--timeout", "5"}},
		{"ports", []string{"scan", "run", "-t", "127.0.0.1", "-p", "80-"}},
		{"range", []string{"scan", "range", "-t", "127.0.0.1", "--start", "90", "--end", "80"}},
		{"check port", []string{"scan", "check", "-t", "127.0.0.1", "--id", "CVE-2021-44228"}},
		{"discover threads", []string{"scan", "discover", "-t", "10.0.0.0/30", "--threads", "5000"}},
		{"proxy", []string{"--proxy", "http://127.0.0.1:8080", "scan", "run", "-t", "127.0.0.1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, options.ErrInvalidOptions)
			msg := formatError(err)
			assert.NotContains(t, msg, "\n")
			assert.True(t, strings.HasPrefix(msg, "Error: "))
		})
	}
}

func TestMissingTarget(t *testing.T) {
	_, err := execute(t, "scan", "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target")
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "version")
	assert.Error(t, err)
}

func TestCVELookupRequiresID(t *testing.T) {
	_, err := execute(t, "cve", "lookup")
	assert.Error(t, err)
}

func TestCVELookupUsesDetectors(t *testing.T) {
	t.Chdir(t.TempDir())
	var hits int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(down.Close)
	for _, key := range []string{"NVD_URL", "MITRE_URL", "CIRCL_URL", "EXPLOITDB_URL", "KEV_URL"} {
		t.Setenv("NEORECON_INTEL_"+key, down.URL)
	}

	// ICS 公告只有检测器注册表能给出
	out, err := execute(t, "cve", "lookup", "ics-vu-587142", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "ICS-VU-587142"`)
	assert.Contains(t, out, `"severity": "CRITICAL"`)
	assert.LessOrEqual(t, int(atomic.LoadInt32(&hits)), 3)
}

func TestScanRunWritesReport(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_, _ = conn.Write([]byte("SSH-2.0-OpenSSH_7.4\r\n"))
			conn.Close()
		}
	}()
	port := ln.Addr().(*net.TCPAddr).Port

	report := filepath.Join(t.TempDir(), "report.json")
	out, err := execute(t, "scan", "run",
		"-t", "127.0.0.1",
		"-p", fmt.Sprint(port),
		"--offline", "--scan-offline", "--no-enhanced", "--no-misconfig",
		"--format", "json", "-o", report,
	)
	require.NoError(t, err)
	assert.Contains(t, out, report)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"host": "127.0.0.1"`)
	assert.Contains(t, string(data), fmt.Sprintf(`"port": %d`, port))
}
