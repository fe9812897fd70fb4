package version

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	if got := Version(); got != "0.3.0" {
		t.Errorf("Version() = %v, want 0.3.0", got)
	}
}

func TestBuildInfo_String(t *testing.T) {
	info := GetBuildInfo()
	info.GitCommit = "0123456789abcdef"

	s := info.String()
	if !strings.HasPrefix(s, "text2nft v0.3.0") {
		t.Errorf("String() = %v", s)
	}
	if !strings.Contains(s, "(commit: 0123456)") {
		t.Errorf("String() = %v, want short commit", s)
	}
}

func TestGetBanner(t *testing.T) {
	if banner := GetBanner(); !strings.Contains(banner, "text2nft v"+Version()) {
		t.Errorf("GetBanner() = %v", banner)
	}
}
