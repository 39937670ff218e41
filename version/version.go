package version

import (
	"runtime/debug"
	"strings"
	"time"
)

// Set with -ldflags -X.
var (
	Version   = "dev"
	Commit    = ""
	Branch    = ""
	BuildTime = ""
)

// Info describes a build of the binary.
type Info struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	Module    string    `json:"module,omitempty"`
	GoVersion string    `json:"go_version"`
	BuiltAt   time.Time `json:"built_at,omitzero"`
	Modified  bool      `json:"modified"`
}

// Get returns the build information of the running binary.
func Get() Info {
	return fromBuild(debug.ReadBuildInfo)
}

func fromBuild(read func() (*debug.BuildInfo, bool)) Info {
	info := Info{
		Version: Version,
		Commit:  Commit,
		Branch:  Branch,
		BuiltAt: parseTime(BuildTime),
	}

	bi, ok := read()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	info.Module = bi.Main.Path
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		case "vcs.time":
			if info.BuiltAt.IsZero() {
				info.BuiltAt = parseTime(s.Value)
			}
		}
	}
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	return info
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// IsRelease reports whether the build carries a clean, stamped version.
func (i Info) IsRelease() bool {
	return i.Version != "dev" && !i.Modified && !strings.Contains(i.Version, "dirty")
}

// Short returns the version and abbreviated commit, e.g. "v1.2.0-abc1234".
func (i Info) Short() string {
	s := i.Version
	if i.Commit != "" {
		s += "-" + i.Commit
	}
	if i.Modified {
		s += "-dirty"
	}
	return s
}

// String returns Short followed by the branch and build time when known.
func (i Info) String() string {
	s := i.Short()
	if i.Branch != "" && i.Branch != "main" && i.Branch != "master" {
		s += " on " + i.Branch
	}
	if !i.BuiltAt.IsZero() {
		s += " (built " + i.BuiltAt.Format(time.RFC3339) + ")"
	}
	return s
}
