package interview

import (
	"fmt"
	"strings"
	"unicode"
)

// Locale carries every piece of text the receptionist speaks plus the tokens
// used to read yes/no answers.
type Locale struct {
	// Language is the BCP-47 tag passed to the carrier's TTS and STT.
	Language string
	// Voice is the carrier TTS voice.
	Voice string

	Greeting    string
	StartPrompt string

	// ConfirmTemplate and NotUnderstoodTemplate take the tentative value.
	ConfirmTemplate       string
	NotUnderstoodTemplate string

	BookedMessage        string
	BookingFailedMessage string
	ErrorMessage         string
	BookingSMSTemplate   string

	// Tokens are compared case-insensitively. Tokens containing non-ASCII
	// letters match as substrings, ASCII tokens only as whole words.
	AffirmativeTokens []string
	NegativeTokens    []string

	SpeechHints []string
}

// HindiLocale is the default locale for the Chhattisgarh hospital line.
func HindiLocale() Locale {
	return Locale{
		Language:              "hi-IN",
		Voice:                 "Polly.Aditi",
		Greeting:              "नमस्ते, सरकार अस्पताल नियुक्ति बुकिंग प्रणाली में कॉल करने के लिए धन्यवाद। मेरा नाम आयुषी है। मैं आपकी नियुक्ति बुक करने में सहायता करूंगी और आपके स्वास्थ्य से जुड़े किसी भी प्रश्न का उत्तर दूंगी।",
		StartPrompt:           "कृपया शुरू करने के लिए अपना नाम कहें।",
		ConfirmTemplate:       `आपने कहा था "%s". क्या यह सही है? कृपया हाँ या नहीं कहें।`,
		NotUnderstoodTemplate: `मुझे समझ नहीं आया। आपने कहा था "%s". क्या यह सही है? कृपया हाँ या नहीं कहें।`,
		BookedMessage:         "आपका अपॉइंटमेंट सफलतापूर्वक बुक हो गया है। Message आपके मोबाइल नंबर पर भेज दिया गया है।",
		BookingFailedMessage:  "माफ़ कीजिए, लेकिन आपकी नियुक्ति निर्धारित करने में एक त्रुटि हुई। कृपया बाद में पुनः प्रयास करें।",
		ErrorMessage:          "I apologize, but there was an error processing your request. Please try again later.",
		BookingSMSTemplate:    "%s, आपका अपॉइंटमेंट %s, %s (%s) में %s को %s के लिए बुक हो गया है।",
		AffirmativeTokens:     []string{"हा", "yes", "yeah", "yep", "haan", "haa", "han", "ha", "sahi", "correct"},
		NegativeTokens:        []string{"नही", "गलत", "no", "nope", "nahi", "nahin", "galat", "wrong"},
		SpeechHints: []string{
			"John", "Deepanshu", "Maria", "Orthopedics", "Cardiology", "New York", "Apollo Hospital",
			"2025-03-10", "10 AM", "Yes", "no", "हां!", "नहीं!",
		},
	}
}

// Confirmation is how a yes/no answer was read.
type Confirmation int

const (
	ConfirmationUnknown Confirmation = iota
	ConfirmationYes
	ConfirmationNo
)

func (c Confirmation) String() string {
	switch c {
	case ConfirmationYes:
		return "yes"
	case ConfirmationNo:
		return "no"
	default:
		return "unknown"
	}
}

// Classify reads a confirmation answer. Negative tokens are checked first so
// that an answer mixing both never locks a value.
func (l Locale) Classify(utterance string) Confirmation {
	text := strings.ToLower(strings.TrimSpace(utterance))
	if text == "" {
		return ConfirmationUnknown
	}
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r) && !unicode.IsDigit(r)
	})
	if containsToken(text, words, l.NegativeTokens) {
		return ConfirmationNo
	}
	if containsToken(text, words, l.AffirmativeTokens) {
		return ConfirmationYes
	}
	return ConfirmationUnknown
}

// Confirm is the yes/no question echoing a tentative value.
func (l Locale) Confirm(value string) string {
	return fmt.Sprintf(l.ConfirmTemplate, value)
}

// NotUnderstood re-asks the yes/no question after an unreadable answer.
func (l Locale) NotUnderstood(value string) string {
	return fmt.Sprintf(l.NotUnderstoodTemplate, value)
}

func containsToken(text string, words, tokens []string) bool {
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if !isASCII(token) {
			if strings.Contains(text, token) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == token {
				return true
			}
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}
