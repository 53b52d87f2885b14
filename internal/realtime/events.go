package realtime

import "strings"

// Realtime event types we send or react to.
const (
	EventItemCreate             = "conversation.item.create"
	EventItemCreated            = "conversation.item.created"
	EventTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	EventError                  = "error"
)

// ContentPart is one piece of a conversation item.
type ContentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// Item is a conversation item as carried by the realtime protocol.
type Item struct {
	ID      string        `json:"id,omitempty"`
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
}

// ErrorDetail is the payload of an "error" event.
type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Event is the envelope for every message exchanged with the speech engine.
type Event struct {
	Type       string       `json:"type"`
	EventID    string       `json:"event_id,omitempty"`
	Item       *Item        `json:"item,omitempty"`
	Transcript string       `json:"transcript,omitempty"`
	Error      *ErrorDetail `json:"error,omitempty"`
}

// NewUserTextEvent asks the speech engine to voice text.
func NewUserTextEvent(text string) Event {
	return Event{
		Type: EventItemCreate,
		Item: &Item{
			Type:    "message",
			Role:    "user",
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	}
}

// Utterance extracts the caller's final words from an inbound event. Only
// assistant message items with text content and completed input
// transcriptions count; everything else is ignored.
func (e Event) Utterance() (string, bool) {
	switch e.Type {
	case EventItemCreate, EventItemCreated:
		if e.Item == nil || e.Item.Role != "assistant" {
			return "", false
		}
		var parts []string
		for _, c := range e.Item.Content {
			text := c.Text
			if text == "" {
				text = c.Transcript
			}
			if text = strings.TrimSpace(text); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, " "), true
	case EventTranscriptionCompleted:
		text := strings.TrimSpace(e.Transcript)
		return text, text != ""
	default:
		return "", false
	}
}

// Client message types mirrored to the browser.
const (
	ClientPrompt   = "prompt"
	ClientComplete = "complete"
	ClientError    = "error"
)

// ClientMessage is what the browser receives for every spoken reply.
type ClientMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}
