package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// startRegistry serves "No entries found" for domains in free and a
// registered record for the rest.
func startRegistry(t *testing.T, free ...string) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	isFree := make(map[string]bool)
	for _, d := range free {
		isFree[d] = true
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil {
					return
				}
				if isFree[strings.TrimSpace(line)] {
					_, _ = io.WriteString(c, "No entries found\r\n")
					return
				}
				_, _ = io.WriteString(c, "Registrar: Example LLC\r\nExpiry Date: 2027-01-01\r\n")
			}(conn)
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

func writeConfig(t *testing.T, port int, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uzhunt.yaml")
	content := fmt.Sprintf("whois:\n  server: 127.0.0.1\n  port: %d\n  timeout: 2s\nverify:\n  delay: 0s\n%s", port, extra)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCheckCmd(t *testing.T) {
	port := startRegistry(t, "shop_uz.uz")
	cfg := writeConfig(t, port, "")

	out, err := execute(t, "--config", cfg, "check",
		"https://t.me/shop_uz",
		"https://t.me/market_uz",
		"https://t.me/ignored",
	)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got:\n%s", out)
	}
	if !strings.Contains(lines[1], "shop_uz.uz") || !strings.Contains(lines[1], "Available") {
		t.Errorf("unexpected first row %q", lines[1])
	}
	if !strings.Contains(lines[2], "market_uz.uz") || !strings.Contains(lines[2], "Example LLC") {
		t.Errorf("unexpected second row %q", lines[2])
	}
}

func TestCheckCmd_AllAndFile(t *testing.T) {
	port := startRegistry(t)
	cfg := writeConfig(t, port, "")

	urls := filepath.Join(t.TempDir(), "urls.txt")
	if err := os.WriteFile(urls, []byte("# profiles\nhttps://instagram.com/bazar\n\nhttps://instagram.com/BAZAR\n"), 0o644); err != nil {
		t.Fatalf("failed to write urls: %v", err)
	}

	out, err := execute(t, "--config", cfg, "check", "--source", "instagram", "--all", "--file", urls)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if strings.Count(out, "bazar.uz") != 1 {
		t.Errorf("expected one deduplicated row, got:\n%s", out)
	}
}

func TestCheckCmd_NoURLs(t *testing.T) {
	if _, err := execute(t, "check"); err == nil {
		t.Error("expected error without URLs")
	}
}

func TestCheckCmd_UnknownSource(t *testing.T) {
	if _, err := execute(t, "check", "--source", "myspace", "https://myspace.com/x_uz"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestCheckThenReport(t *testing.T) {
	port := startRegistry(t, "free_uz.uz")
	store := filepath.Join(t.TempDir(), "records.ndjson")
	cfg := writeConfig(t, port, fmt.Sprintf("storage:\n  backend: json\n  dsn: %s\n", store))

	if _, err := execute(t, "--config", cfg, "check", "https://t.me/free_uz", "https://t.me/taken_uz"); err != nil {
		t.Fatalf("check failed: %v", err)
	}

	out, err := execute(t, "--config", cfg, "report", "--format", "json")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	var summary struct {
		Total            int      `json:"total"`
		Available        int      `json:"available"`
		Registered       int      `json:"registered"`
		AvailableDomains []string `json:"available_domains"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if summary.Total != 2 || summary.Available != 1 || summary.Registered != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if len(summary.AvailableDomains) != 1 || summary.AvailableDomains[0] != "free_uz.uz" {
		t.Errorf("unexpected available domains %v", summary.AvailableDomains)
	}

	out, err = execute(t, "--config", cfg, "report", "--status", "Registered", "--format", "text")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if !strings.Contains(out, "Checked:       1 domains") {
		t.Errorf("expected filtered text summary, got:\n%s", out)
	}
}

func TestReportCmd_RequiresBackend(t *testing.T) {
	if _, err := execute(t, "report"); err == nil {
		t.Error("expected error without storage backend")
	}
}

func TestWriteReport_UnknownFormat(t *testing.T) {
	if err := writeReport(io.Discard, "pdf", nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := execute(t, "--log-level", "loud", "check", "https://t.me/a_uz"); err == nil {
		t.Error("expected config validation error")
	}
}
