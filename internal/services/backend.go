package services

// Backend modes reported by BackendStatus.
const (
	ModePlaceholder = "placeholder"
	ModeLocal       = "local"
	ModeRemote      = "remote"
)

// BackendStatus describes a pluggable transcription or translation backend.
type BackendStatus struct {
	Name      string   `json:"name"`
	Mode      string   `json:"mode"`
	Available bool     `json:"available"`
	Detail    string   `json:"detail,omitempty"`
	Model     string   `json:"model,omitempty"`
	Languages []string `json:"languages,omitempty"`
}
