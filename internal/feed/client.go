package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finagent-go/internal/apperr"
)

const maxPages = 50

// Fetcher returns the full payload of one feed kind.
type Fetcher interface {
	Fetch(ctx context.Context, kind Kind) (*Payload, error)
}

// Client talks to the finlife open API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	groups  []string
}

func NewClient(httpClient *http.Client, baseURL, apiKey string, groups []string) *Client {
	if len(groups) == 0 {
		groups = []string{"020000"}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		groups:  groups,
	}
}

// Fetch walks every page of every configured financial group. Any transport,
// status or envelope problem aborts the whole fetch with
// apperr.ErrUpstreamFetch.
func (c *Client) Fetch(ctx context.Context, kind Kind) (*Payload, error) {
	if kind.endpoint() == "" {
		return nil, fmt.Errorf("%w: unknown feed kind %q", apperr.ErrInvalidInput, kind)
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: FINLIFE_API_KEY missing", apperr.ErrUpstreamFetch)
	}

	out := &Payload{}
	for _, group := range c.groups {
		for page := 1; page <= maxPages; page++ {
			env, err := c.fetchPage(ctx, kind, group, page)
			if err != nil {
				return nil, fmt.Errorf("%w: %s group %s page %d: %w", apperr.ErrUpstreamFetch, kind, group, page, err)
			}
			out.Base = append(out.Base, env.Result.BaseList...)
			out.Options = append(out.Options, env.Result.OptionList...)

			if int(env.Result.NowPageNo) >= int(env.Result.MaxPageNo) {
				break
			}
		}
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, kind Kind, group string, page int) (*envelope, error) {
	q := url.Values{}
	q.Set("auth", c.apiKey)
	q.Set("topFinGrpNo", group)
	q.Set("pageNo", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+kind.endpoint()+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if env.Result.ErrCode != "000" {
		return nil, fmt.Errorf("provider error %s: %s", env.Result.ErrCode, env.Result.ErrMsg)
	}
	return &env, nil
}
