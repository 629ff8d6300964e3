package build

import (
	"runtime/debug"
	"time"
)

var (
	commit  = ""
	date    = ""
	version = "dev"
)

func init() {
	date, _ := time.Parse(time.RFC3339, date)

	Current = Build{
		Commit:  commit,
		Version: version,
		Date:    date,
	}

	// go install leaves the ldflags empty.
	if info, ok := debug.ReadBuildInfo(); ok && commit == "" {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				Current.Commit = setting.Value
			}
		}
	}
}

var Current Build

type Build struct {
	Commit  string    `json:"commit,omitempty"`
	Version string    `json:"version,omitempty"`
	Date    time.Time `json:"date,omitempty"`
}

func (b Build) String() string {
	if b.Commit == "" {
		return b.Version
	}
	commit := b.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return b.Version + " (" + commit + ")"
}
