package deps

import "testing"

func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		in    string
		want  Platform
		known bool
	}{
		{"windows", PlatformWindows, true},
		{"Windows 11", PlatformWindows, true},
		{"Mac OS X", PlatformMacOS, true},
		{"darwin", PlatformMacOS, true},
		{"linux", PlatformLinux, true},
		{"Linux", PlatformLinux, true},
		{"unix", PlatformLinux, true},
		{"freebsd", PlatformLinux, false},
		{"", PlatformLinux, false},
	}
	for _, tc := range cases {
		got, known := DetectPlatform(tc.in)
		if got != tc.want || known != tc.known {
			t.Errorf("DetectPlatform(%q) = %s,%v want %s,%v", tc.in, got, known, tc.want, tc.known)
		}
	}
}

func TestExecutableName(t *testing.T) {
	if got := PlatformWindows.ExecutableName("ffmpeg"); got != "ffmpeg.exe" {
		t.Fatalf("windows name = %q", got)
	}
	if got := PlatformWindows.ExecutableName("ffmpeg.exe"); got != "ffmpeg.exe" {
		t.Fatalf("windows name doubled suffix: %q", got)
	}
	if got := PlatformLinux.ExecutableName("ffmpeg"); got != "ffmpeg" {
		t.Fatalf("linux name = %q", got)
	}
}
