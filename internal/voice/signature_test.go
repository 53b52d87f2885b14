package voice

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSignaturePayload_SortsKeys(t *testing.T) {
	params := url.Values{"To": {"+1"}, "CallSid": {"CA1"}, "From": {"+2"}}
	assert.Equal(t, "https://x/incoming-callCallSidCA1From+2To+1", buildSignaturePayload("https://x/incoming-call", params))
}

func TestValidateTwilioSignature(t *testing.T) {
	form := url.Values{"CallSid": {"CA1"}}
	sig := computeSignature(buildSignaturePayload("https://x/incoming-call", form), "tok")

	req := postForm("/incoming-call", form)
	req.Header.Set("X-Twilio-Signature", sig)
	assert.True(t, ValidateTwilioSignature(req, "tok", "https://x/incoming-call"))

	req = postForm("/incoming-call", form)
	req.Header.Set("X-Twilio-Signature", sig)
	assert.False(t, ValidateTwilioSignature(req, "other", "https://x/incoming-call"))

	req = postForm("/incoming-call", form)
	assert.False(t, ValidateTwilioSignature(req, "tok", "https://x/incoming-call"))
}

func TestWebhookURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/process-call-response?x=1", nil)
	req.Host = "internal:5050"
	assert.Equal(t, "https://public.example.com/process-call-response?x=1", webhookURL(req, "https://public.example.com"))

	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "edge.example.com")
	assert.Equal(t, "https://edge.example.com/process-call-response?x=1", webhookURL(req, ""))
}
