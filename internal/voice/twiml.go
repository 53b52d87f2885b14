package voice

import (
	"encoding/xml"
	"net/http"
)

// TwiML verbs used by the interview. Only the attributes we set are modelled.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

type say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	SpeechModel   string   `xml:"speechModel,attr,omitempty"`
	Language      string   `xml:"language,attr,omitempty"`
	Hints         string   `xml:"hints,attr,omitempty"`
	Says          []say
}

type hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

func renderTwiML(verbs ...any) ([]byte, error) {
	body, err := xml.Marshal(twimlResponse{Verbs: verbs})
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func writeTwiML(w http.ResponseWriter, verbs ...any) error {
	body, err := renderTwiML(verbs...)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(body)
	return err
}
