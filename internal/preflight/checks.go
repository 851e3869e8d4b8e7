package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"reelscope/internal/config"
	"reelscope/internal/deps"
	"reelscope/internal/instagram"
)

// CheckReachable verifies that an HTTP endpoint answers at all. Any status
// below 500 counts as reachable; auth errors still prove the host is up.
func CheckReachable(ctx context.Context, name, endpoint string) Result {
	target := strings.TrimSpace(endpoint)
	if target == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, target, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable (%d)", resp.StatusCode)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCookiesFile verifies that a Netscape cookies file parses and holds a
// session for the Instagram host.
func CheckCookiesFile(name, path, baseURL string) Result {
	host := "www.instagram.com"
	if parsed, err := url.Parse(strings.TrimSpace(baseURL)); err == nil && parsed.Hostname() != "" {
		host = parsed.Hostname()
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	cookies, err := instagram.LoadCookies(path, host)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	for _, c := range cookies {
		if c.Name == "sessionid" && c.Value != "" {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d cookies, session present)", path, len(cookies))}
		}
	}
	return Result{Name: name, Detail: fmt.Sprintf("%s (error: no sessionid cookie for %s)", path, host)}
}

// CheckSystemDeps evaluates the external binaries for the given config. Both
// the API status endpoint and the doctor command use it.
func CheckSystemDeps(ctx context.Context, cfg *config.Config, version deps.VersionFunc) []deps.Status {
	return deps.CheckBinaries(ctx, deps.Requirements(cfg), version)
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (endpoint unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (endpoint unreachable)"
	}
	return err.Error()
}
