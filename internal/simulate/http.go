package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/internal/domain/types"
	"github.com/okian/emberwatch/pkg/logger"
)

// Submission outcomes.
const (
	outcomeCreated  = "created"
	outcomeMerged   = "merged"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// httpClient wraps http.Client with context-aware helpers.
type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// getJSON decodes the body of a GET into v and returns the status code.
func (c *httpClient) getJSON(ctx context.Context, path string, v any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, v)
}

// postJSON sends body as JSON and decodes the response into v.
func (c *httpClient) postJSON(ctx context.Context, path string, body, v any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, v)
}

func (c *httpClient) do(req *http.Request, v any) (int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest || v == nil {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// inputBody renders a reading with the /inputData parameter names.
func inputBody(r model.Reading) map[string]any { //nolint:gocritic // hugeParam: value keeps callers simple
	body := map[string]any{"Temperature": r.Temperature}
	optional := map[string]*float64{
		"AirQuality":   r.AirQuality,
		"WindSpeed":    r.WindSpeed,
		"Humidity":     r.Humidity,
		"DrynessIndex": r.DrynessIndex,
	}
	for k, v := range optional {
		if v != nil {
			body[k] = *v
		}
	}
	if r.TimeOfDay != nil {
		body["TimeOfDay"] = *r.TimeOfDay
	}
	if r.Location != nil {
		body["LocationLat"] = r.Location.Lat
		body["LocationLong"] = r.Location.Lng
	}
	return body
}

// submitSamples posts every sample to /inputData using cfg.Workers goroutines.
func submitSamples(ctx context.Context, cfg *Config, samples []Sample, stats *Stats) error {
	log := logger.Get().Named("simulate")
	log.Info(ctx, "submitting readings over HTTP",
		logger.Int("readings", len(samples)),
		logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	var (
		submitted atomic.Int64
		created   atomic.Int64
		merged    atomic.Int64
		rejected  atomic.Int64
		failed    atomic.Int64
	)

	progressCtx, stopProgress := context.WithCancel(ctx)
	defer stopProgress()
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-progressCtx.Done():
				return
			case <-ticker.C:
				log.Info(ctx, "progress",
					logger.Int("submitted", int(submitted.Load())),
					logger.Int("total", len(samples)),
					logger.Int("failed", int(failed.Load())))
			}
		}
	}()

	sampleCh := make(chan Sample, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range sampleCh {
				outcome := submitSingle(ctx, client, s)
				submitted.Add(1)
				switch outcome {
				case outcomeCreated:
					created.Add(1)
				case outcomeMerged:
					merged.Add(1)
				case outcomeRejected:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
				log.Debug(ctx, "reading submitted", logger.String("id", s.ID), logger.String("outcome", outcome))
			}
		}()
	}

	go func() {
		defer close(sampleCh)
		for _, s := range samples {
			select {
			case <-ctx.Done():
				return
			case sampleCh <- s:
			}
		}
	}()

	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Created = int(created.Load())
	stats.Merged = int(merged.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())

	log.Info(ctx, "submission completed",
		logger.Int("created", stats.Created),
		logger.Int("merged", stats.Merged),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed))

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submission interrupted: %w", err)
	}
	return nil
}

// submitSingle posts one sample and classifies the response.
func submitSingle(ctx context.Context, client *httpClient, s Sample) string { //nolint:gocritic // hugeParam: Sample is read-only here
	var resp types.IngestResponse
	status, err := client.postJSON(ctx, "/inputData", inputBody(s.Reading), &resp)
	switch {
	case err != nil:
		return outcomeFailed
	case status == http.StatusBadRequest:
		return outcomeRejected
	case status != http.StatusOK || !resp.Success:
		return outcomeFailed
	case resp.Updated:
		return outcomeMerged
	default:
		return outcomeCreated
	}
}
