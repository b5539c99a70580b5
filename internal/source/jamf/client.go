package jamf

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"jamf_metrics/internal/domain"
)

const (
	SourceID   = "jamf"
	SourceName = "Jamf Pro"

	FormatJSON = "json"
	FormatXML  = "xml"
)

// Config holds Jamf Pro client configuration.
type Config struct {
	BaseURL      string
	Token        string
	Format       string
	Timeout      time.Duration
	PageSize     int
	LogEndpoints bool
}

// Client talks to the Jamf Pro REST API. Smart group lookups go through
// the Classic API (JSON or XML body, per Format); the OS inventory goes
// through the Pro API, which only speaks JSON.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	format       string
	pageSize     int
	logEndpoints bool
	logger       *slog.Logger
}

// New creates a Jamf Pro client. Missing base URL or token is a
// configuration error and fails construction outright.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("jamf: base URL is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("jamf: bearer token is required")
	}

	format := cfg.Format
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatXML {
		return nil, fmt.Errorf("jamf: unsupported response format %q", cfg.Format)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.Token,
		format:       format,
		pageSize:     pageSize,
		logEndpoints: cfg.LogEndpoints,
		logger:       logger.With("source", SourceID),
	}, nil
}

// ID returns the source identifier.
func (c *Client) ID() string {
	return SourceID
}

// Name returns human-readable name.
func (c *Client) Name() string {
	return SourceName
}

// FetchGroup resolves one smart group to its name and device count.
// HTTP-level trouble (non-2xx, unreadable body) comes back wrapping
// domain.ErrGroupUnavailable so callers can skip the group; a canceled
// context propagates as-is.
func (c *Client) FetchGroup(ctx context.Context, groupID string) (domain.GroupCount, error) {
	endpoint := fmt.Sprintf("%s/JSSResource/advancedcomputersearches/id/%s", c.baseURL, url.PathEscape(groupID))

	accept := "application/json"
	if c.format == FormatXML {
		accept = "application/xml"
	}

	body, err := c.get(ctx, endpoint, accept)
	if err != nil {
		if ctx.Err() != nil {
			return domain.GroupCount{}, ctx.Err()
		}
		c.logger.Warn("group fetch failed", "group_id", groupID, "error", err)
		return domain.GroupCount{}, fmt.Errorf("group %s: %w: %w", groupID, domain.ErrGroupUnavailable, err)
	}

	name, count, err := c.decodeGroup(body)
	if err != nil {
		c.logger.Warn("group response unreadable", "group_id", groupID, "error", err)
		return domain.GroupCount{}, fmt.Errorf("group %s: %w: %w", groupID, domain.ErrGroupUnavailable, err)
	}

	return domain.GroupCount{
		GroupID: groupID,
		Name:    name,
		Count:   count,
	}, nil
}

// FetchOSVersions walks the computer inventory and aggregates how many
// devices run each OS version, ordered by version string.
func (c *Client) FetchOSVersions(ctx context.Context) (domain.OSReport, error) {
	counts := make(map[string]int)
	total := 0

	for page := 0; ; page++ {
		endpoint := fmt.Sprintf(
			"%s/api/v1/computers-inventory?section=OPERATING_SYSTEM&page=%d&page-size=%d",
			c.baseURL, page, c.pageSize,
		)

		body, err := c.get(ctx, endpoint, "application/json")
		if err != nil {
			return domain.OSReport{}, fmt.Errorf("fetch inventory page %d: %w", page, err)
		}

		var resp inventoryResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return domain.OSReport{}, fmt.Errorf("decode inventory page %d: %w", page, err)
		}

		for _, rec := range resp.Results {
			version := rec.OperatingSystem.Version
			if version == "" {
				version = "unknown"
			}
			counts[version]++
			total++
		}

		c.logger.Debug("fetched inventory page",
			"page", page,
			"devices", len(resp.Results),
			"total", total,
		)

		if len(resp.Results) == 0 || total >= resp.TotalCount {
			break
		}
	}

	versions := make([]string, 0, len(counts))
	for v := range counts {
		versions = append(versions, v)
	}
	sort.Strings(versions)

	report := domain.OSReport{
		Versions: make([]domain.VersionCount, 0, len(versions)),
		Total:    total,
	}
	for _, v := range versions {
		report.Versions = append(report.Versions, domain.VersionCount{
			Version: v,
			Count:   counts[v],
		})
	}

	return report, nil
}

func (c *Client) get(ctx context.Context, endpoint, accept string) ([]byte, error) {
	if c.logEndpoints {
		c.logger.Debug("requesting endpoint", "url", endpoint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", "JamfMetrics/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

func (c *Client) decodeGroup(body []byte) (string, int, error) {
	if c.format == FormatXML {
		var resp searchResponseXML
		if err := xml.Unmarshal(body, &resp); err != nil {
			return "", 0, fmt.Errorf("decode response: %w", err)
		}
		return resp.Name, len(resp.Computers), nil
	}

	var resp searchResponseJSON
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", 0, fmt.Errorf("decode response: %w", err)
	}
	return resp.AdvancedComputerSearch.Name, len(resp.AdvancedComputerSearch.Computers), nil
}
