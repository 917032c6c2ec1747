package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProbeJSON is the ffprobe output emitted by the stub: one h264 video stream
// and one aac audio stream, 12.5 seconds long.
const ProbeJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 320, "height": 240},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "44100", "channels": 2, "duration": "12.500000"}
  ],
  "format": {"filename": "input.mp4", "format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "12.500000", "size": "4096"}
}`

// StubMedia customizes the stub ffmpeg/ffprobe scripts.
type StubMedia struct {
	// ProbeJSON replaces the default ffprobe output.
	ProbeJSON string
	// ProbeError makes ffprobe print this text on stderr and exit 1.
	ProbeError string
	// ExtractError makes ffmpeg print this text on stderr and exit 1.
	ExtractError string
	// ExtractDelay makes ffmpeg sleep before writing its output, in seconds.
	ExtractDelay int
}

// WithStubbedMedia writes shell-script ffmpeg and ffprobe stubs and prepends
// them to PATH. Both answer -version. The ffprobe stub prints canned JSON
// and the ffmpeg stub writes a small file at its last argument.
func WithStubbedMedia(stub StubMedia) ConfigOption {
	return func(b *configBuilder) {
		dir := binDir(b)
		probeJSON := stub.ProbeJSON
		if probeJSON == "" {
			probeJSON = ProbeJSON
		}

		var probe strings.Builder
		probe.WriteString("#!/bin/sh\n")
		probe.WriteString("if [ \"$1\" = \"-version\" ]; then echo 'ffprobe version stub'; exit 0; fi\n")
		if stub.ProbeError != "" {
			fmt.Fprintf(&probe, "echo %s >&2\nexit 1\n", shellQuote(stub.ProbeError))
		} else {
			fmt.Fprintf(&probe, "cat <<'JSON'\n%s\nJSON\n", probeJSON)
		}

		var ffmpeg strings.Builder
		ffmpeg.WriteString("#!/bin/sh\n")
		ffmpeg.WriteString("if [ \"$1\" = \"-version\" ]; then echo 'ffmpeg version stub'; exit 0; fi\n")
		if stub.ExtractDelay > 0 {
			fmt.Fprintf(&ffmpeg, "sleep %d\n", stub.ExtractDelay)
		}
		if stub.ExtractError != "" {
			fmt.Fprintf(&ffmpeg, "echo %s >&2\nexit 1\n", shellQuote(stub.ExtractError))
		} else {
			ffmpeg.WriteString("for last; do :; done\nprintf 'RIFFstubWAVEdata' > \"$last\"\n")
		}

		writeScript(b, filepath.Join(dir, "ffprobe"), probe.String())
		writeScript(b, filepath.Join(dir, "ffmpeg"), ffmpeg.String())
		b.cfg.Tools.FFmpegBinary = "ffmpeg"
		b.cfg.Tools.FFprobeBinary = "ffprobe"
		prependPath(b, dir)
	}
}

// WithStubbedBinaries writes no-op executables for names and prepends them to
// PATH.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		dir := binDir(b)
		for _, name := range names {
			writeScript(b, filepath.Join(dir, name), "#!/bin/sh\nexit 0\n")
		}
		prependPath(b, dir)
	}
}

func writeScript(b *configBuilder, path, body string) {
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		b.t.Fatalf("write stub %s: %v", path, err)
	}
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
