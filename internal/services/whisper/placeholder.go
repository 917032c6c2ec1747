package whisper

const (
	placeholderShort = "你好，欢迎学习越南语。今天我们来学习基础词汇。"

	placeholderMedium = placeholderShort +
		"第一个单词是'你好'，越南语是'Xin chào'。" +
		"第二个单词是'谢谢'，越南语是'Cảm ơn'。"

	placeholderLong = placeholderMedium +
		"第三个单词是'再见'，越南语是'Tạm biệt'。" +
		"现在让我们练习一些简单的对话。" +
		"当你想问候别人时，可以说'Xin chào'。" +
		"当别人帮助你时，记得说'Cảm ơn'。" +
		"离开时要说'Tạm biệt'。请大家跟我一起练习这些基础词汇。"
)

// PlaceholderTranscript returns the canned transcript for a clip of the given
// length: short below 30 seconds, medium below 60, long otherwise.
func PlaceholderTranscript(durationSeconds float64) string {
	switch {
	case durationSeconds < 30:
		return placeholderShort
	case durationSeconds < 60:
		return placeholderMedium
	default:
		return placeholderLong
	}
}

var supportedLanguages = []string{"zh", "en", "vi", "ja", "ko", "es", "fr", "de", "it", "pt", "ru", "ar"}

// SupportedLanguages lists the language codes the backend accepts.
func SupportedLanguages() []string {
	return append([]string(nil), supportedLanguages...)
}
