// Package types provides shared type definitions for the application.
package types

// TriggerSource identifies which trigger drove a session operation.
type TriggerSource string

const (
	// SourceKeyboard is the global shortcut gesture.
	SourceKeyboard TriggerSource = "keyboard"
	// SourceTray is the menu-bar long-press gesture.
	SourceTray TriggerSource = "tray"
	// SourceTimer marks internally generated operations (max-duration).
	SourceTimer TriggerSource = "timer"
)

// Status is the session status surfaced to the tray and settings UI.
type Status struct {
	State       string `json:"state"` // "idle" | "recording" | "transcribing"
	Chord       string `json:"chord"`
	HasTapPerm  bool   `json:"hasTapPermission"`
	ProviderSet bool   `json:"providerConfigured"`
}

// TranscriptInfo is one history entry as shown in the UI.
type TranscriptInfo struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Language  string  `json:"language"`
	Seconds   float64 `json:"seconds"`
	Source    string  `json:"source"`
	CreatedAt int64   `json:"createdAt"` // Unix milliseconds
}
