package interview

import (
	"fmt"

	"github.com/wolfman30/voice-booking-assistant/internal/appointments"
	"github.com/wolfman30/voice-booking-assistant/internal/matcher"
)

// Question is one field the caller is asked for.
type Question struct {
	Key      string
	Prompt   string
	Category matcher.Category
}

// Script is the fixed, ordered list of questions. It never branches on
// answer content; the session's index is the only cursor.
type Script struct {
	questions []Question
	keys      map[string]struct{}
}

// NewScript validates and freezes the question order.
func NewScript(questions ...Question) (*Script, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("interview: script needs at least one question")
	}
	s := &Script{
		questions: make([]Question, len(questions)),
		keys:      make(map[string]struct{}, len(questions)),
	}
	for i, q := range questions {
		if q.Key == "" {
			return nil, fmt.Errorf("interview: question %d has no key", i)
		}
		if _, dup := s.keys[q.Key]; dup {
			return nil, fmt.Errorf("interview: duplicate question key %q", q.Key)
		}
		s.keys[q.Key] = struct{}{}
		s.questions[i] = q
	}
	return s, nil
}

// MustScript is NewScript for static definitions.
func MustScript(questions ...Question) *Script {
	s, err := NewScript(questions...)
	if err != nil {
		panic(err)
	}
	return s
}

// At returns the question at index, or false at end of script.
func (s *Script) At(index int) (Question, bool) {
	if index < 0 || index >= len(s.questions) {
		return Question{}, false
	}
	return s.questions[index], true
}

// Len is the number of questions.
func (s *Script) Len() int { return len(s.questions) }

// Has reports whether key belongs to the script.
func (s *Script) Has(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// Keys returns the question keys in interview order.
func (s *Script) Keys() []string {
	out := make([]string, len(s.questions))
	for i, q := range s.questions {
		out[i] = q.Key
	}
	return out
}

// HindiScript is the hospital appointment interview spoken in Hindi.
// Date and time have no reference set and are stored as spoken.
func HindiScript() *Script {
	return MustScript(
		Question{Key: appointments.FieldName, Prompt: "अपना नाम बताइए।", Category: matcher.CategoryName},
		Question{Key: appointments.FieldCity, Prompt: "आप Chhattisgarh ke किस शहर में अपॉइंटमेंट बुक करना चाहते हैं? कृपया शहर का नाम बताएं।", Category: matcher.CategoryCity},
		Question{Key: appointments.FieldHospitalName, Prompt: "आप किस अस्पताल में अपॉइंटमेंट लेना चाहते हैं? कृपया अस्पताल का नाम बताएं।", Category: matcher.CategoryHospital},
		Question{Key: appointments.FieldDepartment, Prompt: "आप किस विभाग के डॉक्टर से परामर्श करना चाहते हैं? उदाहरण के लिए, हड्डी रोग (ऑर्थोपेडिक्स), हृदय रोग (कार्डियोलॉजी), या अन्य।", Category: matcher.CategoryDepartment},
		Question{Key: appointments.FieldDate, Prompt: "आप किस तारीख को अपॉइंटमेंट लेना चाहते हैं? कृपया दिनांक बताएं।", Category: matcher.CategoryNone},
		Question{Key: appointments.FieldTime, Prompt: "आप किस समय अपॉइंटमेंट लेना चाहेंगे? हमारे पास सुबह, दोपहर और शाम के स्लॉट उपलब्ध हैं।", Category: matcher.CategoryNone},
	)
}
