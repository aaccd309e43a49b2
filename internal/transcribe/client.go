package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"kijko/pkg/logger"
	"kijko/pkg/resilience"

	"go.uber.org/zap"
)

const (
	OperationPoll = 5 * time.Second
	MaxWaitTime   = 30 * time.Minute
)

type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	retry    *resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
}

// NewClient creates a hosted speech-to-text client. The service exposes
// a long-running-operation API: start recognition against an uploaded
// audio URI, then poll the operation until it completes. A circuit
// breaker guards the polling loop so a flapping service is not hammered
// every poll interval.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry:   resilience.DefaultRetryConfig(),
		breaker: resilience.NewCircuitBreaker(5, time.Minute),
	}
}

// StartRecognition kicks off async recognition of an uploaded clip and
// returns the operation ID to poll.
func (c *Client) StartRecognition(ctx context.Context, audioURI, mimeType string) (string, error) {
	reqBody := RecognitionRequest{
		Config: RecognitionConfig{
			Specification: Specification{
				Model:             "general",
				AudioEncoding:     encodingFor(mimeType),
				SampleRateHertz:   16000,
				AudioChannelCount: 1,
				ProfanityFilter:   false,
				RawResults:        false,
			},
		},
		Audio: AudioSource{
			URI: audioURI,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	logger.Debug("Starting speech recognition", zap.String("uri", audioURI))

	var opResp OperationResponse
	err = resilience.RetryWithExponentialBackoff(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/recognize", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", fmt.Sprintf("Api-Key %s", c.apiKey))
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("recognition request failed: status=%d, body=%s", resp.StatusCode, string(respBody))
		}

		if err := json.Unmarshal(respBody, &opResp); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	logger.Info("Recognition started", zap.String("operation_id", opResp.ID))

	return opResp.ID, nil
}

// WaitForResult polls the operation until it completes and returns the
// recognition result.
func (c *Client) WaitForResult(ctx context.Context, operationID string) (*RecognitionResult, error) {
	url := fmt.Sprintf("%s/operations/%s", c.endpoint, operationID)
	startTime := time.Now()

	for {
		if time.Since(startTime) > MaxWaitTime {
			return nil, fmt.Errorf("recognition timeout exceeded")
		}

		var opResp *OperationResponse
		err := c.breaker.Execute(func() error {
			var checkErr error
			opResp, checkErr = c.checkOperation(ctx, url)
			return checkErr
		})
		if err == resilience.ErrCircuitOpen {
			// wait out the cooldown on the normal poll cadence
			logger.Warn("Operation polling suspended, circuit open",
				zap.String("operation_id", operationID))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(OperationPoll):
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		if opResp.Done {
			if opResp.Error != nil {
				return nil, fmt.Errorf("recognition failed: %s (code: %d)", opResp.Error.Message, opResp.Error.Code)
			}

			var result RecognitionResult
			if opResp.Response != nil {
				responseBytes, err := json.Marshal(opResp.Response)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal response: %w", err)
				}

				if err := json.Unmarshal(responseBytes, &result); err != nil {
					return nil, fmt.Errorf("failed to unmarshal result: %w", err)
				}
			}

			logger.Info("Recognition completed",
				zap.String("operation_id", operationID),
				zap.String("language", result.DetectedLanguage),
				zap.Int("segments", len(result.Segments)))

			return &result, nil
		}

		logger.Debug("Recognition in progress",
			zap.String("operation_id", operationID),
			zap.Duration("elapsed", time.Since(startTime)))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(OperationPoll):
		}
	}
}

func (c *Client) checkOperation(ctx context.Context, url string) (*OperationResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Api-Key %s", c.apiKey))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("operation check failed: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	var opResp OperationResponse
	if err := json.Unmarshal(respBody, &opResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &opResp, nil
}

func encodingFor(mimeType string) string {
	switch mimeType {
	case "audio/ogg", "audio/opus":
		return "OGG_OPUS"
	case "audio/wav", "audio/x-wav", "audio/pcm":
		return "LINEAR16_PCM"
	default:
		return "LINEAR16_PCM"
	}
}
