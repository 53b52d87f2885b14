package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/voice-booking-assistant/pkg/logging"
)

var twilioClientTracer = otel.Tracer("voicebooking.internal.voice.twilio_client")

const defaultTwilioAPIBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioClient calls the Twilio REST API to place calls and send SMS.
type TwilioClient struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	backoff    func(attempt int) time.Duration
}

// NewTwilioClient builds a client. An empty baseURL uses the public API.
func NewTwilioClient(accountSID, authToken, from, baseURL string, logger *logging.Logger) *TwilioClient {
	if logger == nil {
		logger = logging.Default()
	}
	if baseURL == "" {
		baseURL = defaultTwilioAPIBaseURL
	}
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		backoff: func(int) time.Duration {
			return time.Duration(200+rand.Intn(300)) * time.Millisecond
		},
	}
}

// PlaceCall dials to; Twilio fetches TwiML from callbackURL once answered.
// Returns the call SID.
func (c *TwilioClient) PlaceCall(ctx context.Context, to, callbackURL string) (string, error) {
	if to == "" {
		return "", errors.New("voice: to required")
	}
	if callbackURL == "" {
		return "", errors.New("voice: callback url required")
	}
	ctx, span := twilioClientTracer.Start(ctx, "voice.twilio.place_call")
	defer span.End()
	span.SetAttributes(attribute.String("voicebooking.to", to))

	payload := url.Values{}
	payload.Set("To", to)
	payload.Set("From", c.from)
	payload.Set("Url", callbackURL)

	sid, err := c.post(ctx, "Calls.json", payload)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("voice: place call: %w", err)
	}
	c.logger.Info("twilio call placed", "to", to, "call_sid", sid)
	return sid, nil
}

// SendSMS sends one text message from the configured number.
func (c *TwilioClient) SendSMS(ctx context.Context, to, body string) error {
	if to == "" {
		return errors.New("voice: to required")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("voice: body required")
	}
	ctx, span := twilioClientTracer.Start(ctx, "voice.twilio.send_sms")
	defer span.End()
	span.SetAttributes(attribute.String("voicebooking.to", to))

	payload := url.Values{}
	payload.Set("To", to)
	payload.Set("From", c.from)
	payload.Set("Body", body)

	sid, err := c.post(ctx, "Messages.json", payload)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("voice: send sms: %w", err)
	}
	c.logger.Info("twilio sms sent", "to", to, "message_sid", sid)
	return nil
}

// post submits a form to the account-scoped resource, retrying network
// errors, 429 and 5xx up to three times.
func (c *TwilioClient) post(ctx context.Context, resource string, payload url.Values) (string, error) {
	if c.accountSID == "" || c.authToken == "" {
		return "", errors.New("twilio credentials missing")
	}
	if c.from == "" {
		return "", errors.New("from number required")
	}
	endpoint := fmt.Sprintf("%s/Accounts/%s/%s", c.baseURL, c.accountSID, resource)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			return "", err
		}
		req.SetBasicAuth(c.accountSID, c.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					SID string `json:"sid"`
				}
				_ = json.Unmarshal(body, &parsed)
				return parsed.SID, nil
			}
			lastErr = fmt.Errorf("twilio request failed: %s", formatTwilioError(resp.StatusCode, body))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return "", lastErr
			}
		}

		if attempt < 3 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
	}
	return "", lastErr
}

type twilioAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
