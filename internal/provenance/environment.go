package provenance

import (
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/banshee-data/geoflow/internal/version"
)

// Environment is the immutable process snapshot stored on every tracker:
// runtime version, key library versions, and platform string. It is ordinary
// data on the tracker instance, never a shared global.
type Environment struct {
	GoVersion       string            `json:"go_version"`
	GeoflowVersion  string            `json:"geoflow_version"`
	LibraryVersions map[string]string `json:"library_versions"`
	Platform        string            `json:"platform"`
}

// keyModules are the dependencies whose versions matter for reproducing a
// run's spatial behaviour.
var keyModules = []string{
	"github.com/paulmach/orb",
	"modernc.org/sqlite",
	"gonum.org/v1/gonum",
}

// CaptureEnvironment takes a one-time snapshot of the running process.
func CaptureEnvironment() Environment {
	env := Environment{
		GoVersion:       runtime.Version(),
		GeoflowVersion:  version.Version,
		LibraryVersions: make(map[string]string, len(keyModules)),
		Platform:        runtime.GOOS + "/" + runtime.GOARCH,
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return env
	}
	for _, dep := range info.Deps {
		for _, key := range keyModules {
			if dep.Path == key {
				env.LibraryVersions[shortModuleName(key)] = dep.Version
			}
		}
	}
	return env
}

// shortModuleName reduces a module path to its final element for readable
// ledger keys ("orb", "sqlite", "gonum").
func shortModuleName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
