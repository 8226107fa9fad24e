package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	info := Info{}
	fromBuildInfo(&info, &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	if info.Version != "v0.3.0" || info.Commit != "0123456" || !info.Modified {
		t.Errorf("fromBuildInfo() = %+v", info)
	}
}

func TestFromBuildInfoKeepsLdflags(t *testing.T) {
	info := Info{Version: "v1.0.0", Commit: "feedbee"}
	fromBuildInfo(&info, &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789"}},
	})

	if info.Version != "v1.0.0" || info.Commit != "feedbee" {
		t.Errorf("ldflags values should win, got %+v", info)
	}
}

func TestGetFallbacks(t *testing.T) {
	info := Get()
	if info.Version == "" || info.Commit == "" {
		t.Errorf("Get() should never return empty fields: %+v", info)
	}
	if !strings.Contains(info.String(), info.Platform) {
		t.Errorf("String() = %q", info.String())
	}
}
