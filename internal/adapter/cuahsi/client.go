// Package cuahsi fetches daily series from a CUAHSI HydroServer through the
// WaterOneFlow 1.1 GetValuesObject operation and decodes the WaterML response.
package cuahsi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/snowpack-climatology/internal/domain"
	"github.com/couchcryptid/snowpack-climatology/internal/observability"
)

// maxErrorBody bounds how much of a failed response is echoed into the error.
const maxErrorBody = 512

// Client implements pipeline.Fetcher against a WaterOneFlow endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a WaterOneFlow client. baseURL is the service's .asmx
// address, e.g. https://hydroportal.cuahsi.org/Snotel/cuahsi_1_1.asmx.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// FetchSeries downloads the daily values of one variable at one site between
// req.Start and req.End inclusive. A response without values is not an error.
func (c *Client) FetchSeries(ctx context.Context, req domain.SeriesRequest) (domain.Series, error) {
	if req.Site == "" || req.Variable == "" {
		return domain.Series{}, errors.New("cuahsi: site and variable are required")
	}

	params := url.Values{
		"location":  {qualifiedSite(req.Site, req.Variable)},
		"variable":  {req.Variable},
		"startDate": {req.Start.Format(time.DateOnly)},
		"endDate":   {req.End.Format(time.DateOnly)},
		"authToken": {""},
	}
	fullURL := c.baseURL + "/GetValuesObject?" + params.Encode()

	start := time.Now()
	series, err := c.doRequest(ctx, fullURL)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return domain.Series{}, err
	case len(series.Readings) == 0:
		c.metrics.FetchRequests.WithLabelValues("empty").Inc()
		c.logger.Warn("cuahsi returned no values",
			"site", req.Site, "variable", req.Variable,
			"start", req.Start.Format(time.DateOnly), "end", req.End.Format(time.DateOnly))
	default:
		c.metrics.FetchRequests.WithLabelValues("success").Inc()
	}

	if series.SiteCode == "" {
		series.SiteCode = req.Site
	}
	if series.VariableCode == "" {
		series.VariableCode = req.Variable
	}

	c.logger.Debug("cuahsi series fetched",
		"site", series.SiteCode, "variable", series.VariableCode,
		"readings", len(series.Readings), "duration", time.Since(start))
	return series, nil
}

// Close releases idle connections held by the HTTP client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Series, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Series{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Series{}, fmt.Errorf("cuahsi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.Series{}, fmt.Errorf("cuahsi API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	series, err := decodeWaterML(resp.Body)
	if err != nil {
		return domain.Series{}, fmt.Errorf("decode waterml: %w", err)
	}
	return series, nil
}

// qualifiedSite prefixes a bare site code with the network named by the
// variable code, so "590_MT_SNTL" with "SNOTEL:WTEQ_D" becomes
// "SNOTEL:590_MT_SNTL".
func qualifiedSite(site, variable string) string {
	if strings.Contains(site, ":") {
		return site
	}
	network, _, ok := strings.Cut(variable, ":")
	if !ok || network == "" {
		return site
	}
	return network + ":" + site
}
