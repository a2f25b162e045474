package integration

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// buildCLI compiles the mapdone binary into a temp directory
func buildCLI(t *testing.T) string {
	t.Helper()
	binaryPath := filepath.Join(t.TempDir(), "mapdone-test")

	cmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/mapdone")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build CLI: %v\nOutput: %s", err, output)
	}
	return binaryPath
}

// runCLI runs the binary with HOME pointed at home
func runCLI(t *testing.T, binary, home string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binary, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// runCLIStdout is runCLI without stderr, for machine-readable output
func runCLIStdout(t *testing.T, binary, home string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binary, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)
	output, err := cmd.Output()
	return string(output), err
}

// TestCLIBuild tests that the CLI binary can be built
func TestCLIBuild(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI build test in short mode")
	}

	binaryPath := buildCLI(t)

	info, err := os.Stat(binaryPath)
	if err != nil {
		t.Fatalf("Failed to stat binary: %v", err)
	}

	if info.Mode()&0111 == 0 {
		t.Error("Binary should be executable")
	}
}

// TestCLIVersion tests the version command
func TestCLIVersion(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI test in short mode")
	}

	output, err := runCLI(t, buildCLI(t), t.TempDir(), "version")
	if err != nil {
		t.Fatalf("Version command failed: %v\nOutput: %s", err, output)
	}

	if !strings.Contains(output, "mapdone version") {
		t.Errorf("Version output should contain 'mapdone version'\nOutput: %s", output)
	}
}

// TestCLIHelp tests the help command and flag
func TestCLIHelp(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI test in short mode")
	}

	binaryPath := buildCLI(t)
	home := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"help command", []string{"help"}},
		{"help flag", []string{"--help"}},
		{"short help flag", []string{"-h"}},
		{"scan help", []string{"scan", "--help"}},
		{"list help", []string{"list", "--help"}},
		{"export help", []string{"export", "--help"}},
		{"daemon help", []string{"daemon", "--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, _ := runCLI(t, binaryPath, home, tt.args...)

			if !strings.Contains(output, "Usage:") && !strings.Contains(output, "Available Commands") {
				t.Errorf("Help output should contain usage information\nOutput: %s", output)
			}
		})
	}
}

// TestCLICommandFlags tests that documented flags are recognized
func TestCLICommandFlags(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI test in short mode")
	}

	binaryPath := buildCLI(t)
	home := t.TempDir()

	tests := []struct {
		name  string
		flags []string
	}{
		{"force flag", []string{"scan", "--force", "--help"}},
		{"mapper-filter flag", []string{"scan", "--mapper-filter", "me", "--help"}},
		{"songs-dir flag", []string{"scan", "--songs-dir", home, "--help"}},
		{"state-backend flag", []string{"list", "--state-backend", "sqlite", "--help"}},
		{"log-level flag", []string{"list", "--log-level", "debug", "--help"}},
		{"config flag", []string{"list", "--config", "/tmp/config.yaml", "--help"}},
		{"interval flag", []string{"daemon", "--scan-interval", "10m", "--help"}},
		{"health-addr flag", []string{"daemon", "--health-addr", "127.0.0.1:8089", "--help"}},
		{"pid-file flag", []string{"daemon", "--pid-file", "/tmp/daemon.pid", "--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, _ := runCLI(t, binaryPath, home, tt.flags...)

			if strings.Contains(output, "unknown flag") {
				t.Errorf("Flag should be recognized\nOutput: %s", output)
			}
		})
	}
}

// TestCLIScanWorkflow runs scan, list, complete, due and export end to end
func TestCLIScanWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI test in short mode")
	}

	binaryPath := buildCLI(t)
	home := t.TempDir()
	songs := filepath.Join(home, "Songs")
	writeMap(t, filepath.Join(songs, "1 Band - Song"), "Band - Song (alice) [Easy].osu", "alice", "Easy")
	writeMap(t, filepath.Join(songs, "1 Band - Song"), "Band - Song (bob) [Hard].osu", "bob", "Hard")

	output, err := runCLI(t, binaryPath, home, "scan", songs, "--quiet")
	if err != nil {
		t.Fatalf("scan failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "Map Files: 2") {
		t.Errorf("scan summary should report 2 files\nOutput: %s", output)
	}

	if _, err := os.Stat(filepath.Join(home, ".mapdone", "library.json")); err != nil {
		t.Errorf("library file should exist in the default location: %v", err)
	}

	output, err = runCLI(t, binaryPath, home, "list", "--mapper", "alice")
	if err != nil {
		t.Fatalf("list failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "Easy") || strings.Contains(output, "Hard") {
		t.Errorf("list --mapper should only show alice's map\nOutput: %s", output)
	}

	output, err = runCLIStdout(t, binaryPath, home, "export", "--format", "json")
	if err != nil {
		t.Fatalf("export failed: %v\nOutput: %s", err, output)
	}
	var doc struct {
		Items []struct {
			ID         string          `json:"id"`
			Status     string          `json:"status"`
			Highlights [][]interface{} `json:"highlights"`
			Metadata   struct {
				Version string `json:"version"`
			} `json:"metadata"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("export is not JSON: %v\nOutput: %s", err, output)
	}
	if len(doc.Items) != 2 {
		t.Fatalf("expected 2 exported items, got %d", len(doc.Items))
	}
	for _, it := range doc.Items {
		if len(it.Highlights) == 0 || len(it.Highlights[0]) != 3 {
			t.Errorf("highlights should be [start, end, kind] tuples, got %v", it.Highlights)
		}
	}

	easy := doc.Items[0]
	if easy.Metadata.Version != "Easy" {
		easy = doc.Items[1]
	}

	if output, err := runCLI(t, binaryPath, home, "complete", easy.ID[:8]); err != nil {
		t.Fatalf("complete failed: %v\nOutput: %s", err, output)
	}
	if output, err := runCLI(t, binaryPath, home, "due", easy.ID, "2030-01-31"); err != nil {
		t.Fatalf("due failed: %v\nOutput: %s", err, output)
	}

	output, err = runCLI(t, binaryPath, home, "show", easy.ID)
	if err != nil {
		t.Fatalf("show failed: %v\nOutput: %s", err, output)
	}
	for _, want := range []string{"Status: completed", "2030-01-31", "Mapper: alice"} {
		if !strings.Contains(output, want) {
			t.Errorf("show output should contain %q\nOutput: %s", want, output)
		}
	}

	output, err = runCLI(t, binaryPath, home, "list", "--status", "todo")
	if err != nil {
		t.Fatalf("list failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "1 maps, 1 to do") {
		t.Errorf("one map should remain to do\nOutput: %s", output)
	}

	output, err = runCLI(t, binaryPath, home, "show", "no-such-map")
	if err == nil {
		t.Errorf("show should fail for an unknown reference\nOutput: %s", output)
	}
}

// TestCLIInvalidCommand tests error handling for invalid commands
func TestCLIInvalidCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI test in short mode")
	}

	output, _ := runCLI(t, buildCLI(t), t.TempDir(), "invalid-command")
	if !strings.Contains(output, "unknown command") && !strings.Contains(output, "Error") {
		t.Errorf("Should show error for invalid command\nOutput: %s", output)
	}
}
