package usage

import "github.com/recipefy/backend/internal/domain/shared"

// ActionKind identifies one of the metered operations gated by quota
type ActionKind string

const (
	// ActionKindImport covers recipe imports from links, photos and scans
	ActionKindImport ActionKind = "import"
	// ActionKindTranslation covers AI recipe translations
	ActionKindTranslation ActionKind = "translation"
	// ActionKindOptimization covers AI recipe optimizations
	ActionKindOptimization ActionKind = "optimization"
	// ActionKindAIMessage covers assistant chat messages
	ActionKindAIMessage ActionKind = "aiMessage"
)

// AllActionKinds returns all metered action kinds
func AllActionKinds() []ActionKind {
	return []ActionKind{
		ActionKindImport,
		ActionKindTranslation,
		ActionKindOptimization,
		ActionKindAIMessage,
	}
}

// IsValid checks if the action kind is one of the metered kinds
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionKindImport, ActionKindTranslation, ActionKindOptimization, ActionKindAIMessage:
		return true
	default:
		return false
	}
}

// IsAI reports whether the kind is an AI feature subject to the profile's
// aiDisabled switch. Imports are metered but not AI-gated.
func (k ActionKind) IsAI() bool {
	switch k {
	case ActionKindTranslation, ActionKindOptimization, ActionKindAIMessage:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (k ActionKind) String() string {
	return string(k)
}

// DisplayName returns a human-readable name for the action kind
func (k ActionKind) DisplayName() string {
	switch k {
	case ActionKindImport:
		return "Recipe Import"
	case ActionKindTranslation:
		return "AI Translation"
	case ActionKindOptimization:
		return "AI Optimization"
	case ActionKindAIMessage:
		return "Assistant Message"
	default:
		return string(k)
	}
}

// ParseActionKind parses a string into an ActionKind
func ParseActionKind(s string) (ActionKind, error) {
	k := ActionKind(s)
	if !k.IsValid() {
		return "", shared.NewDomainError("UNKNOWN_ACTION", "Unknown action kind: "+s)
	}
	return k, nil
}

// EventType discriminates usage events. It is broader than the metered action
// kinds: collaborators also log informational events such as manual recipe
// creation, using the same table.
type EventType string

const (
	EventTypeImport       EventType = "import"
	EventTypeTranslation  EventType = "translation"
	EventTypeOptimization EventType = "optimization"
	EventTypeAIMessage    EventType = "aiMessage"
	EventTypeManualAdd    EventType = "manual_add"
)

// ActionKind maps the event type back to a metered kind, when it is one.
func (t EventType) ActionKind() (ActionKind, bool) {
	k := ActionKind(t)
	if k.IsValid() {
		return k, true
	}
	return "", false
}

// String returns the string representation
func (t EventType) String() string {
	return string(t)
}

// SourceUnknown is the fallback label stored and reported when a collaborator
// did not identify the origin platform of an event.
const SourceUnknown = "unknown"

// Known origin platforms logged by the import pipelines. Events are not
// restricted to this set; new platforms appear without a schema change.
const (
	SourceWeb       = "web"
	SourceTikTok    = "tiktok"
	SourceInstagram = "instagram"
	SourcePinterest = "pinterest"
	SourceYouTube   = "youtube"
	SourceScan      = "scan"
)

// NormalizeSource maps blank sources to SourceUnknown
func NormalizeSource(source string) string {
	if source == "" {
		return SourceUnknown
	}
	return source
}
