package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jjenkins/lawtrack/internal/config"
	"github.com/jjenkins/lawtrack/internal/model"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	endpointHistory = "history"
	endpointOldNew  = "oldnew"
)

// registryEndpoint bundles the transport settings of one registry endpoint
type registryEndpoint struct {
	name       string
	url        string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
}

// RegistryClient handles communication with the NLIC registry
type RegistryClient struct {
	oc       string
	pageSize int
	history  registryEndpoint
	oldNew   registryEndpoint
	limiter  *rate.Limiter
	logger   *zap.SugaredLogger
}

// NewRegistryClient creates a registry client from its configuration
func NewRegistryClient(cfg config.RegistryConfig, logger *zap.SugaredLogger) *RegistryClient {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &RegistryClient{
		oc:       cfg.OC,
		pageSize: cfg.PageSize,
		history: registryEndpoint{
			name:       endpointHistory,
			url:        cfg.HistoryURL,
			client:     &http.Client{Timeout: cfg.Timeout},
			maxRetries: cfg.MaxRetries,
			backoff:    cfg.Backoff,
		},
		oldNew: registryEndpoint{
			name:       endpointOldNew,
			url:        cfg.OldNewURL,
			client:     &http.Client{Timeout: cfg.DetailTimeout},
			maxRetries: cfg.DetailMaxRetries,
			backoff:    cfg.DetailBackoff,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// PageSize returns the configured page size for change-history listings
func (c *RegistryClient) PageSize() int {
	return c.pageSize
}

// FetchChangePage retrieves one page of the change history registered on date.
// hasMore is derived from the declared total count, not from any next flag.
func (c *RegistryClient) FetchChangePage(ctx context.Context, date time.Time, page, pageSize int) ([]model.ChangeRecord, bool, error) {
	params := url.Values{}
	params.Set("OC", c.oc)
	params.Set("target", "lsHstInf")
	params.Set("type", "JSON")
	params.Set("regDt", date.Format("20060102"))
	params.Set("page", strconv.Itoa(page))
	params.Set("display", strconv.Itoa(pageSize))

	root, err := c.getJSON(ctx, c.history, params)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch change page %d for %s: %w", page, date.Format("2006-01-02"), err)
	}

	service := envelope(root, "LawSearch")
	items := coerceList(service["law"])

	records := make([]model.ChangeRecord, len(items))
	for i, item := range items {
		records[i] = toChangeRecord(item)
	}

	total := intField(service, "totalCnt", len(items))
	display := pageSize
	if display <= 0 {
		display = intField(service, "display", 0)
	}
	if display <= 0 {
		return records, false, nil
	}

	// Bounded by the requested page and page size so a registry echoing a
	// stale page number or a smaller display cannot keep the loop alive.
	maxPage := (total + display - 1) / display
	return records, page < maxPage, nil
}

// FetchRevisionDetail retrieves the old/new article comparison for a revision
func (c *RegistryClient) FetchRevisionDetail(ctx context.Context, mst string) (*model.RevisionDetail, error) {
	params := url.Values{}
	params.Set("OC", c.oc)
	params.Set("target", "oldAndNew")
	params.Set("type", "JSON")
	params.Set("MST", mst)

	root, err := c.getJSON(ctx, c.oldNew, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch revision detail %s: %w", mst, err)
	}

	service := envelope(root, "OldAndNewService")

	return &model.RevisionDetail{
		OldBasic:    coerceObject(service["구조문_기본정보"]),
		NewBasic:    coerceObject(service["신조문_기본정보"]),
		OldArticles: toArticles(coerceObject(service["구조문목록"])["조문"]),
		NewArticles: toArticles(coerceObject(service["신조문목록"])["조문"]),
	}, nil
}

// getJSON performs a paced GET with linear backoff on transport failures.
// A non-200 status or an undecodable body fails immediately.
func (c *RegistryClient) getJSON(ctx context.Context, ep registryEndpoint, params url.Values) (map[string]any, error) {
	var lastErr error
	target := ep.url + "?" + params.Encode()

	for attempt := 1; attempt <= ep.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(ep.backoff * time.Duration(attempt-1)):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := ep.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			registryRequests.WithLabelValues(ep.name, "retry").Inc()
			c.logger.Warnf("registry %s transport error (attempt %d/%d): %v", ep.name, attempt, ep.maxRetries, err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			registryRequests.WithLabelValues(ep.name, "retry").Inc()
			c.logger.Warnf("registry %s body read error (attempt %d/%d): %v", ep.name, attempt, ep.maxRetries, err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			registryRequests.WithLabelValues(ep.name, "error").Inc()
			return nil, &RegistryError{
				Endpoint: ep.name,
				Attempts: attempt,
				Err:      fmt.Errorf("unexpected status code: %d", resp.StatusCode),
			}
		}

		root, err := decodeObject(body)
		if err != nil {
			registryRequests.WithLabelValues(ep.name, "error").Inc()
			return nil, &RegistryError{
				Endpoint: ep.name,
				Attempts: attempt,
				Err:      fmt.Errorf("failed to decode response: %w", err),
			}
		}

		registryRequests.WithLabelValues(ep.name, "ok").Inc()
		return root, nil
	}

	registryRequests.WithLabelValues(ep.name, "exhausted").Inc()
	return nil, &RegistryError{
		Endpoint:  ep.name,
		Attempts:  ep.maxRetries,
		Transient: true,
		Err:       lastErr,
	}
}

// decodeObject decodes a JSON object, keeping numbers as json.Number
func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	return root, nil
}
