package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/amaumene/streamscout/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	fcmScope              = "https://www.googleapis.com/auth/firebase.messaging"
	defaultFCMParallelism = 8
	defaultFCMRatePerSec  = 50
)

// FCMClient sends one message to a batch of tokens through the FCM HTTP v1
// API. The v1 API addresses a single token per request, so a batch is sent
// as concurrent per-token requests and answered with one response per token.
type FCMClient struct {
	sendURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	parallelism int
}

type FCMOptions struct {
	Endpoint    string
	ProjectID   string
	RatePerSec  int
	Parallelism int
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *fcmAndroid       `json:"android,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Notification fcmAndroidNotification `json:"notification"`
}

type fcmAndroidNotification struct {
	ClickAction string `json:"click_action,omitempty"`
}

type fcmErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewFCMClient authenticates with a service account credentials file.
func NewFCMClient(ctx context.Context, credentialsFile string, timeout time.Duration, opts FCMOptions) (*FCMClient, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading fcm credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, fcmScope)
	if err != nil {
		return nil, fmt.Errorf("parsing fcm credentials: %w", err)
	}

	httpClient := oauth2.NewClient(ctx, creds.TokenSource)
	httpClient.Timeout = timeout
	return NewFCMClientWithHTTP(httpClient, opts), nil
}

func NewFCMClientWithHTTP(httpClient *http.Client, opts FCMOptions) *FCMClient {
	rps := opts.RatePerSec
	if rps <= 0 {
		rps = defaultFCMRatePerSec
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = defaultFCMParallelism
	}

	return &FCMClient{
		sendURL:     fmt.Sprintf("%s/v1/projects/%s/messages:send", strings.TrimRight(opts.Endpoint, "/"), opts.ProjectID),
		httpClient:  httpClient,
		limiter:     rate.NewLimiter(rate.Limit(rps), rps),
		parallelism: parallelism,
	}
}

func (c *FCMClient) SendMulticast(ctx context.Context, msg *domain.Message, tokens []string) (*domain.BatchResponse, error) {
	if len(tokens) > domain.MaxTokensPerBatch {
		return nil, fmt.Errorf("%w: %d tokens", domain.ErrBatchTooLarge, len(tokens))
	}

	responses := make([]domain.SendResponse, len(tokens))
	var g errgroup.Group
	g.SetLimit(c.parallelism)
	for i, token := range tokens {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					responses[i] = domain.SendResponse{Err: fmt.Errorf("send panicked: %v", p)}
				}
			}()
			responses[i] = c.sendOne(ctx, msg, token)
			return nil
		})
	}
	_ = g.Wait()

	return &domain.BatchResponse{Responses: responses}, nil
}

func (c *FCMClient) sendOne(ctx context.Context, msg *domain.Message, token string) domain.SendResponse {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.SendResponse{Err: err}
	}
	if err := c.post(ctx, buildFCMRequest(msg, token)); err != nil {
		return domain.SendResponse{Err: err}
	}
	return domain.SendResponse{Success: true}
}

func buildFCMRequest(msg *domain.Message, token string) *fcmRequest {
	req := &fcmRequest{
		Message: fcmMessage{
			Token:        token,
			Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
			Data:         msg.Data,
		},
	}
	if action := msg.Data["click_action"]; action != "" {
		req.Message.Android = &fcmAndroid{Notification: fcmAndroidNotification{ClickAction: action}}
	}
	return req
}

func (c *FCMClient) post(ctx context.Context, payload *fcmRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeFCMError(resp)
}

func decodeFCMError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	var body fcmErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Status != "" {
		return fmt.Errorf("fcm %s: %s", body.Error.Status, body.Error.Message)
	}
	return fmt.Errorf("fcm status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
