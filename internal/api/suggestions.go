package api

import (
	"strings"

	"vidsub/internal/services"
)

var uploadSuggestions = []string{
	"check that the video file is complete",
	"download or record the video again",
	"try another video format",
	"make sure the file was not damaged in transfer",
}

// UploadSuggestions returns remediation hints for a rejected upload.
func UploadSuggestions() []string {
	return append([]string(nil), uploadSuggestions...)
}

// FailureSuggestions returns remediation hints for a failure message, keyed
// off the kind label it starts with.
func FailureSuggestions(message string) []string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "moov atom"):
		return []string{
			"the MP4 structure is incomplete, usually from an interrupted upload or recording",
			"obtain the complete file and upload it again",
		}
	case strings.Contains(lower, "invalid data") || strings.Contains(lower, "corrupt"):
		return []string{
			"the video content is damaged",
			"check that the original file plays",
			"re-export or re-download the video",
		}
	case strings.HasPrefix(lower, services.KindToolMissing.Label()):
		return []string{
			"ffmpeg is not installed or not runnable on the server",
			"run vidsub tools status and follow the install instructions",
		}
	case strings.HasPrefix(lower, services.KindBackendTimeout.Label()):
		return []string{"raise workflow.stage_timeout_seconds or check the backend"}
	case strings.HasPrefix(lower, services.KindValidation.Label()):
		return UploadSuggestions()
	default:
		return nil
	}
}
