package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path (and parents) holding size bytes of filler. A size
// <= 0 writes a single byte so the file is never empty.
func WriteFile(t testing.TB, path string, size int) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = 0x42
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteCookies writes a Netscape cookie file holding the given name=value
// pairs for domain and returns its path.
func WriteCookies(t testing.TB, dir, domain string, pairs map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, "cookies.txt")
	content := "# Netscape HTTP Cookie File\n"
	for name, value := range pairs {
		content += domain + "\tFALSE\t/\tFALSE\t0\t" + name + "\t" + value + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write cookies: %v", err)
	}
	return path
}
