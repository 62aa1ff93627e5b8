package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const openAlexBaseURL = "https://api.openalex.org"

// OpenAlex fetches citation and works counts from the OpenAlex API.
type OpenAlex struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	mailto  string
}

// NewOpenAlex creates an OpenAlex client. mailto joins the polite pool
// and is optional.
func NewOpenAlex(baseURL, mailto string) *OpenAlex {
	if baseURL == "" {
		baseURL = openAlexBaseURL
	}
	return &OpenAlex{
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(150*time.Millisecond), 1),
		baseURL: baseURL,
		mailto:  mailto,
	}
}

type openAlexConcept struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	CitedByCount int64  `json:"cited_by_count"`
	WorksCount   int64  `json:"works_count"`
}

type openAlexWorksPage struct {
	Meta struct {
		Count int64 `json:"count"`
	} `json:"meta"`
}

// FetchTotals returns cumulative cited-by and works counts for a concept.
func (o *OpenAlex) FetchTotals(ctx context.Context, key string) (Totals, error) {
	u := fmt.Sprintf("%s/concepts/%s", o.baseURL, url.PathEscape(key))

	var concept openAlexConcept
	if err := o.getJSON(ctx, "totals", u, nil, &concept); err != nil {
		return Totals{}, err
	}
	return Totals{
		CitedByCount: concept.CitedByCount,
		WorksCount:   concept.WorksCount,
	}, nil
}

// FetchRecentWorksCount returns the number of works tagged with the
// concept published inside [from, to].
func (o *OpenAlex) FetchRecentWorksCount(ctx context.Context, key string, from, to time.Time) (int64, error) {
	filter := fmt.Sprintf("concepts.id:%s,from_publication_date:%s,to_publication_date:%s",
		key, from.Format("2006-01-02"), to.Format("2006-01-02"))

	var page openAlexWorksPage
	params := url.Values{"filter": {filter}, "per-page": {"1"}}
	if err := o.getJSON(ctx, "recent_works", o.baseURL+"/works", params, &page); err != nil {
		return 0, err
	}
	return page.Meta.Count, nil
}

func (o *OpenAlex) getJSON(ctx context.Context, op, rawURL string, params url.Values, out any) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return &Error{Source: "openalex", Op: op, Message: err.Error()}
	}

	if params == nil {
		params = url.Values{}
	}
	if o.mailto != "" {
		params.Set("mailto", o.mailto)
	}
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Error{Source: "openalex", Op: op, Message: err.Error()}
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return &Error{Source: "openalex", Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{Source: "openalex", Op: op, Status: resp.StatusCode, Message: "unexpected status"}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Source: "openalex", Op: op, Message: fmt.Sprintf("decode: %v", err)}
	}
	return nil
}
