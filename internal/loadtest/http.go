package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/platforms/leaderboard/pkg/logger"
)

type httpClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *httpClient {
	return &httpClient{client: &http.Client{Timeout: timeout}}
}

func (c *httpClient) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

func (c *httpClient) postJSON(ctx context.Context, rawURL string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

type submitOutcome int

const (
	outcomeAccepted submitOutcome = iota
	outcomeDuplicate
	outcomeRejected
	outcomeFailed
)

// submitEvents posts events concurrently through a worker pool and tallies
// the per-outcome counters into stats.
func submitEvents(ctx context.Context, cfg *Config, events []Event, stats *Stats) error {
	logger.Get().Info(ctx, "submitting events",
		logger.Int("count", len(events)),
		logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	target := cfg.BaseURL + "/events"

	var accepted, duplicate, rejected, failed, submitted int64

	eventChan := make(chan Event, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range eventChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddInt64(&submitted, 1)
				switch submitOne(ctx, client, target, event) {
				case outcomeAccepted:
					atomic.AddInt64(&accepted, 1)
				case outcomeDuplicate:
					atomic.AddInt64(&duplicate, 1)
				case outcomeRejected:
					atomic.AddInt64(&rejected, 1)
				case outcomeFailed:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EventsAccepted = int(atomic.LoadInt64(&accepted))
	stats.EventsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.EventsRejected = int(atomic.LoadInt64(&rejected))
	stats.EventsFailed = int(atomic.LoadInt64(&failed))

	logger.Get().Info(ctx, "event submission completed",
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("rejected", stats.EventsRejected),
		logger.Int("failed", stats.EventsFailed))
	return nil
}

func submitOne(ctx context.Context, client *httpClient, target string, event Event) submitOutcome {
	resp, err := client.postJSON(ctx, target, event)
	if err != nil {
		return outcomeFailed
	}
	body, err := readBody(resp)
	if err != nil {
		return outcomeFailed
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeAccepted
	case http.StatusOK:
		var ack Ack
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return outcomeDuplicate
		}
		return outcomeDuplicate
	case http.StatusTooManyRequests:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

// fetchRanks retrieves the rank of each submitted user concurrently.
func fetchRanks(ctx context.Context, cfg *Config, events []Event, stats *Stats) ([]Entry, error) {
	logger.Get().Info(ctx, "retrieving ranks",
		logger.Int("users", len(events)),
		logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)

	ranks := make([]Entry, len(events))
	var retrieved, failed int64

	indexChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				entry, err := fetchRank(ctx, client, cfg, events[index].UserID)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						logger.Get().Warn(ctx, "rank lookup failed",
							logger.String("user_id", events[index].UserID),
							logger.Error(err))
					}
					continue
				}
				ranks[index] = entry
				atomic.AddInt64(&retrieved, 1)
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range events {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	// Empty UserID marks a failed lookup.
	valid := make([]Entry, 0, len(ranks))
	for _, entry := range ranks {
		if entry.UserID != "" {
			valid = append(valid, entry)
		}
	}

	stats.RanksRetrieved = len(valid)
	logger.Get().Info(ctx, "rank retrieval completed",
		logger.Int("retrieved", len(valid)),
		logger.Int("failed", int(atomic.LoadInt64(&failed))))
	return valid, nil
}

func fetchRank(ctx context.Context, client *httpClient, cfg *Config, userID string) (Entry, error) {
	target := fmt.Sprintf("%s/rank/%s?instance_id=%s",
		cfg.BaseURL, url.PathEscape(userID), url.QueryEscape(cfg.InstanceID))

	resp, err := client.get(ctx, target)
	if err != nil {
		return Entry{}, fmt.Errorf("request failed: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return Entry{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Entry{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var entry Entry
	if err := json.Unmarshal(body, &entry); err != nil {
		return Entry{}, fmt.Errorf("parse response: %w", err)
	}
	return entry, nil
}

// fetchLeaderboard retrieves the top N entries for the target instance.
func fetchLeaderboard(ctx context.Context, cfg *Config, stats *Stats) ([]Entry, error) {
	client := newHTTPClient(cfg.Timeout)
	target := fmt.Sprintf("%s/leaderboard?instance_id=%s&limit=%d",
		cfg.BaseURL, url.QueryEscape(cfg.InstanceID), cfg.TopN)

	resp, err := client.get(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var leaderboard []Entry
	if err := json.Unmarshal(body, &leaderboard); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	stats.LeaderboardEntries = len(leaderboard)
	return leaderboard, nil
}
