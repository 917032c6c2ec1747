package subtitles

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultCueTextLimit caps each cue line in runes.
const DefaultCueTextLimit = 50

// PlaceholderCueEnd is the end time of the single rendered cue.
const PlaceholderCueEnd = 5 * time.Second

// Cue is one numbered SRT block.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Lines []string
}

// Render builds the single-cue subtitle document for a finished run: the
// first limit runes of the source text and of the translation, each on its
// own line.
func Render(source, translation string, limit int) string {
	if limit <= 0 {
		limit = DefaultCueTextLimit
	}
	cue := Cue{
		Index: 1,
		Start: 0,
		End:   PlaceholderCueEnd,
		Lines: []string{Truncate(source, limit), Truncate(translation, limit)},
	}
	return Format([]Cue{cue})
}

// Format serializes cues. Every cue, including the last, is followed by a
// blank line.
func Format(cues []Cue) string {
	var b strings.Builder
	for _, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n", cue.Index, FormatTimestamp(cue.Start), FormatTimestamp(cue.End))
		for _, line := range cue.Lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Truncate returns at most limit runes of the NFC form of text. Line breaks
// are folded to spaces so one text never spans several cue lines.
func Truncate(text string, limit int) string {
	text = norm.NFC.String(text)
	text = strings.Join(strings.Fields(strings.ReplaceAll(text, "\r\n", "\n")), " ")
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}

// FormatTimestamp renders d as HH:MM:SS,mmm.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1000
	ms -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}

// ParseTimestamp accepts HH:MM:SS,mmm (or a period before the milliseconds).
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ".", ",")
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	clock, millisText, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(millisText)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}

// Parse reads cues from SRT content. Blocks without a valid timing line are
// skipped.
func Parse(content string) []Cue {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if content == "" {
		return nil
	}
	var cues []Cue
	for _, block := range strings.Split(content, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}
		var cue Cue
		timing := 0
		if idx, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
			cue.Index = idx
			timing = 1
		}
		startText, endText, ok := strings.Cut(lines[timing], "-->")
		if !ok {
			continue
		}
		start, errStart := ParseTimestamp(startText)
		end, errEnd := ParseTimestamp(endText)
		if errStart != nil || errEnd != nil {
			continue
		}
		cue.Start, cue.End = start, end
		cue.Lines = append([]string(nil), lines[timing+1:]...)
		if cue.Index == 0 {
			cue.Index = len(cues) + 1
		}
		cues = append(cues, cue)
	}
	return cues
}
