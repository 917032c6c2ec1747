package deps

import "strings"

// Platform is the OS family used to pick bundled binaries and install text.
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
)

// DetectPlatform maps an OS identifier (runtime.GOOS or a descriptive name
// such as "Windows 11" or "Mac OS X") to a Platform. The second return value is
// false when the identifier was not recognized and linux was assumed.
func DetectPlatform(osName string) (Platform, bool) {
	name := strings.ToLower(strings.TrimSpace(osName))
	// GOOS reports macOS as "darwin", which would otherwise match "win".
	if name == "darwin" {
		return PlatformMacOS, true
	}
	switch {
	case strings.Contains(name, "win"):
		return PlatformWindows, true
	case strings.Contains(name, "mac"):
		return PlatformMacOS, true
	case strings.Contains(name, "nix"), strings.Contains(name, "nux"):
		return PlatformLinux, true
	default:
		return PlatformLinux, false
	}
}

// ExecutableName appends the platform's executable suffix.
func (p Platform) ExecutableName(tool string) string {
	if p == PlatformWindows && !strings.HasSuffix(strings.ToLower(tool), ".exe") {
		return tool + ".exe"
	}
	return tool
}

func (p Platform) installInstructions() string {
	switch p {
	case PlatformWindows:
		return `Windows:
  1. Download a static build from https://www.gyan.dev/ffmpeg/builds/ (ffmpeg-release-essentials.zip).
  2. Extract it, for example to C:\ffmpeg.
  3. Add C:\ffmpeg\bin to the PATH environment variable.
  4. Open a new terminal and run: ffmpeg -version
  Alternatively: winget install Gyan.FFmpeg  or  choco install ffmpeg
`
	case PlatformMacOS:
		return `macOS:
  1. Install Homebrew from https://brew.sh if it is not present.
  2. Run: brew install ffmpeg
  3. Verify with: ffmpeg -version
  Alternatively: sudo port install ffmpeg
`
	default:
		return `Linux:
  Debian/Ubuntu:  sudo apt update && sudo apt install ffmpeg
  Fedora/RHEL:    sudo dnf install ffmpeg
  Arch:           sudo pacman -S ffmpeg
  Verify with:    ffmpeg -version
`
	}
}
