package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	wikiAPIBaseURL      = "https://en.wikipedia.org/w/api.php"
	wikiMetricsBaseURL  = "https://wikimedia.org/api/rest_v1"
	wikiDefaultProject  = "en.wikipedia"
	wikiCompactDateForm = "20060102"
)

// Wikipedia resolves article titles and fetches page-view counts from
// the MediaWiki search API and the Wikimedia pageviews REST API.
type Wikipedia struct {
	client     *http.Client
	limiter    *rate.Limiter
	apiURL     string
	metricsURL string
	project    string
	userAgent  string
}

// NewWikipedia creates a Wikipedia client.
func NewWikipedia(apiURL, metricsURL, project, userAgent string) *Wikipedia {
	if apiURL == "" {
		apiURL = wikiAPIBaseURL
	}
	if metricsURL == "" {
		metricsURL = wikiMetricsBaseURL
	}
	if project == "" {
		project = wikiDefaultProject
	}
	if userAgent == "" {
		userAgent = "topicrank/1.0"
	}
	return &Wikipedia{
		client:     &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		apiURL:     apiURL,
		metricsURL: metricsURL,
		project:    project,
		userAgent:  userAgent,
	}
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiViewsResponse struct {
	Items []struct {
		Views int64 `json:"views"`
	} `json:"items"`
}

// ResolveTitle searches for the best-matching article title. No match
// is not an error: found reports whether a title exists.
func (w *Wikipedia) ResolveTitle(ctx context.Context, name string) (string, bool, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {name},
		"srlimit":  {"1"},
		"format":   {"json"},
	}

	var res wikiSearchResponse
	if err := w.getJSON(ctx, "resolve_title", w.apiURL+"?"+params.Encode(), &res); err != nil {
		return "", false, err
	}

	if len(res.Query.Search) == 0 {
		return "", false, nil
	}
	return res.Query.Search[0].Title, true, nil
}

// FetchViews returns the summed page views for an article over [from, to],
// at monthly granularity.
func (w *Wikipedia) FetchViews(ctx context.Context, title string, from, to time.Time) (int64, error) {
	article := url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	u := fmt.Sprintf("%s/metrics/pageviews/per-article/%s/all-access/user/%s/monthly/%s/%s",
		w.metricsURL, w.project, article,
		from.Format(wikiCompactDateForm), to.Format(wikiCompactDateForm))

	var res wikiViewsResponse
	if err := w.getJSON(ctx, "views", u, &res); err != nil {
		return 0, err
	}

	var total int64
	for _, item := range res.Items {
		total += item.Views
	}
	return total, nil
}

func (w *Wikipedia) getJSON(ctx context.Context, op, rawURL string, out any) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return &Error{Source: "wikipedia", Op: op, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Error{Source: "wikipedia", Op: op, Message: err.Error()}
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return &Error{Source: "wikipedia", Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{Source: "wikipedia", Op: op, Status: resp.StatusCode, Message: "unexpected status"}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Source: "wikipedia", Op: op, Message: fmt.Sprintf("decode: %v", err)}
	}
	return nil
}
