package ops

import (
	"net/http"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	// Version is the release version stamped at link time, or "dev".
	Version string `json:"version"`
	Module  string `json:"module,omitempty"`

	GoVersion string `json:"go_version"`
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`

	Revision string `json:"vcs_revision,omitempty"`
	Time     string `json:"vcs_time,omitempty"`
	Modified *bool  `json:"vcs_modified,omitempty"`

	Deps []string `json:"deps,omitempty"`
}

var (
	buildOnce   sync.Once
	buildCached *debug.BuildInfo
)

func readBuildInfo() *debug.BuildInfo {
	buildOnce.Do(func() {
		if bi, ok := debug.ReadBuildInfo(); ok {
			buildCached = bi
		}
	})
	return buildCached
}

// ReadBuildInfo returns the build info for the running binary. version is reported as-is;
// an empty version becomes "dev". Deps are included when withDeps is true.
func ReadBuildInfo(version string, withDeps bool) BuildInfo {
	if version == "" {
		version = "dev"
	}
	out := BuildInfo{
		Version:   version,
		GoVersion: runtime.Version(),
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
	}
	bi := readBuildInfo()
	if bi == nil {
		return out
	}
	out.Module = bi.Main.Path
	for _, kv := range bi.Settings {
		switch kv.Key {
		case "vcs.revision":
			out.Revision = kv.Value
		case "vcs.time":
			out.Time = kv.Value
		case "vcs.modified":
			if b, err := strconv.ParseBool(kv.Value); err == nil {
				out.Modified = &b
			}
		}
	}
	if withDeps {
		for _, m := range bi.Deps {
			if m == nil {
				continue
			}
			if m.Replace != nil {
				m = m.Replace
			}
			out.Deps = append(out.Deps, m.Path+"@"+m.Version)
		}
	}
	return out
}

// WriteText renders b in the line format used by BuildInfoHandler.
func (b BuildInfo) WriteText(sb *strings.Builder) {
	line(sb, "version", b.Version)
	if b.Module != "" {
		line(sb, "path", b.Module)
	}
	line(sb, "go", b.GoVersion, b.GOOS+"/"+b.GOARCH)
	if b.Revision != "" {
		line(sb, "build", "vcs.revision", b.Revision)
	}
	if b.Time != "" {
		line(sb, "build", "vcs.time", b.Time)
	}
	if b.Modified != nil {
		line(sb, "build", "vcs.modified", strconv.FormatBool(*b.Modified))
	}
	for _, d := range b.Deps {
		line(sb, "dep", d)
	}
}

type buildInfoResponse struct {
	OK    bool      `json:"ok"`
	Build BuildInfo `json:"build"`
}

// BuildInfoHandler reports the binary version and build metadata. ?deps=1 adds dependencies.
func BuildInfoHandler(version string, opts ...Option) http.Handler {
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowRead(w, r, format) {
			return
		}
		withDeps := false
		if raw, ok := queryValue(r, "deps"); ok {
			withDeps, _ = strconv.ParseBool(raw)
		}
		bi := ReadBuildInfo(version, withDeps)
		write(w, r, format, http.StatusOK, buildInfoResponse{OK: true, Build: bi}, bi.WriteText)
	})
}
