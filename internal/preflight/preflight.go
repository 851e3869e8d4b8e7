package preflight

import (
	"context"
	"strings"

	"reelscope/internal/config"
	"reelscope/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Report bundles the binary and environment checks.
type Report struct {
	Dependencies []deps.Status `json:"dependencies"`
	Checks       []Result      `json:"checks"`
}

// Healthy reports whether every required binary is present and every check
// passed.
func (r Report) Healthy() bool {
	if len(deps.MissingRequired(r.Dependencies)) > 0 {
		return false
	}
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Download directory", cfg.Paths.DownloadDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))

	if path := strings.TrimSpace(cfg.Instagram.CookiesFile); path != "" {
		results = append(results, CheckCookiesFile("Instagram cookies", path, cfg.Instagram.BaseURL))
	}
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		results = append(results, CheckReachable(ctx, "ntfy", topic))
	}
	return results
}

// Run builds the full report, probing binary versions with version.
func Run(ctx context.Context, cfg *config.Config, version deps.VersionFunc) Report {
	if cfg == nil {
		return Report{}
	}
	return Report{
		Dependencies: CheckSystemDeps(ctx, cfg, version),
		Checks:       RunAll(ctx, cfg),
	}
}
