package ffprobe

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Category is a closed classification of ffprobe diagnostic text.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryMissingContainerMetadata
	CategoryCorruptData
	CategoryFileNotFound
	CategoryPermissionDenied
	CategoryUnrecognizedFormat
	CategoryTruncated
	CategoryUnsupportedCodec
	CategoryCorruptHeader
)

// unknownDetailLimit bounds the raw text echoed back for unclassified diagnostics.
const unknownDetailLimit = 100

func (c Category) String() string {
	switch c {
	case CategoryMissingContainerMetadata:
		return "missing_container_metadata"
	case CategoryCorruptData:
		return "corrupt_data"
	case CategoryFileNotFound:
		return "file_not_found"
	case CategoryPermissionDenied:
		return "permission_denied"
	case CategoryUnrecognizedFormat:
		return "unrecognized_format"
	case CategoryTruncated:
		return "truncated"
	case CategoryUnsupportedCodec:
		return "unsupported_codec"
	case CategoryCorruptHeader:
		return "corrupt_header"
	default:
		return "unknown"
	}
}

// Diagnosis is the result of Classify. Text is set only for CategoryUnknown.
type Diagnosis struct {
	Category Category
	Text     string
}

// Message returns the user-facing explanation for the diagnosis.
func (d Diagnosis) Message() string {
	switch d.Category {
	case CategoryMissingContainerMetadata:
		return "MP4 container is missing its moov atom (metadata); the file is corrupt or the upload was incomplete"
	case CategoryCorruptData:
		return "video file contains invalid data and is corrupt"
	case CategoryFileNotFound:
		return "video file does not exist or the path is invalid"
	case CategoryPermissionDenied:
		return "no permission to read the video file"
	case CategoryUnrecognizedFormat:
		return "video format could not be recognized; this may not be a video file"
	case CategoryTruncated:
		return "video file is truncated; the upload may be incomplete"
	case CategoryUnsupportedCodec:
		return "video file uses an unsupported codec"
	case CategoryCorruptHeader:
		return "video file header is missing or corrupt"
	default:
		if d.Text == "" {
			return "unknown error"
		}
		return d.Text
	}
}

// Checked in order; the first match wins.
var diagnosticPatterns = []struct {
	category Category
	re       *regexp.Regexp
}{
	{CategoryMissingContainerMetadata, regexp.MustCompile(`(?i)moov atom not found`)},
	{CategoryCorruptData, regexp.MustCompile(`(?i)invalid data found`)},
	{CategoryFileNotFound, regexp.MustCompile(`(?i)no such file`)},
	{CategoryPermissionDenied, regexp.MustCompile(`(?i)permission denied`)},
	{CategoryUnrecognizedFormat, regexp.MustCompile(`(?i)format not detected|unknown format`)},
	{CategoryTruncated, regexp.MustCompile(`(?i)truncated`)},
	{CategoryUnsupportedCodec, regexp.MustCompile(`(?i)codec not found`)},
	{CategoryCorruptHeader, regexp.MustCompile(`(?i)header missing|invalid header`)},
}

// Classify maps raw diagnostic text to a Diagnosis. It is total: unmatched
// text yields CategoryUnknown with the text truncated to 100 runes plus "...".
func Classify(detail string) Diagnosis {
	for _, p := range diagnosticPatterns {
		if p.re.MatchString(detail) {
			return Diagnosis{Category: p.category}
		}
	}
	return Diagnosis{Category: CategoryUnknown, Text: truncateRunes(strings.TrimSpace(detail), unknownDetailLimit)}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
