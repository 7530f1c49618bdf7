package inventory

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/listing-advisor/internal/listing"
	"github.com/spigell/listing-advisor/internal/utils"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"

	maxLoggedBody = 256
)

type ItemResponse struct {
	Items   []Item `json:"items"`
	Found   int    `json:"found"`
	Pages   int    `json:"pages"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

type Item interface{}

// GetItems makes GET requests to the inventory API and returns items from all pages.
// Pages are fetched until the last one, maxPages, or until limit items were collected (limit <= 0 means all).
func (c *Client) GetItems(ctx context.Context, rawURL string, q url.Values, limit int) ([]Item, error) {
	var items []Item

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	req.URL.RawQuery = q.Encode()

	response, err := c.fetchPage(ctx, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got response from inventory",
		zap.Int("pages", response.Pages),
		zap.Int("found", response.Found),
		zap.Int("max items per page", response.PerPage),
	)

	items = append(items, response.Items...)

	for fetched := 1; response.Page < response.Pages-1; fetched++ {
		if limit > 0 && len(items) >= limit {
			c.logger.Debug("stopping pagination", zap.String("reason", "limit reached"), zap.Int("limit", limit))
			break
		}
		if fetched >= c.maxPages {
			c.logger.Warn("stopping pagination", zap.String("reason", "max pages reached"), zap.Int("max_pages", c.maxPages))
			break
		}

		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"current page (%d) < all page count (%d)", response.Page+1, response.Pages),
		))

		response, err = c.fetchPage(ctx, addPage(req, response.Page+1))
		if err != nil {
			return nil, err
		}

		items = append(items, response.Items...)
	}

	return items, nil
}

// fetchPage waits for the rate limiter and retries throttled responses.
func (c *Client) fetchPage(ctx context.Context, req *http.Request) (*ItemResponse, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.request(req)
		if err != nil {
			return nil, err
		}

		if retryable(resp.StatusCode) && attempt < c.retries {
			delay := retryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()

			c.logger.Warn("inventory throttled the request, retrying",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			if err := utils.WaitFor(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		return c.parseItemResponse(resp)
	}
}

func (c *Client) parseItemResponse(resp *http.Response) (*ItemResponse, error) {
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		body = gz
	}

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(body, maxLoggedBody*4))
		c.logger.Debug("inventory error body", zap.String("body", utils.TruncateForLog(string(data), maxLoggedBody)))
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var response *ItemResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, err
	}
	if response == nil {
		return nil, fmt.Errorf("empty response body")
	}

	return response, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// retryAfter parses a Retry-After header given in seconds. Anything else waits one second.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return time.Second
	}
	return time.Duration(secs) * time.Second
}

// addPage adds page parameter to request URL.
func addPage(req *http.Request, page int) *http.Request {
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	req.URL.RawQuery = q.Encode()

	return req
}

// buildParams turns search criteria into query parameters named after their json tags.
// Nil pointers and empty values are not sent.
func buildParams(criteria listing.SearchCriteria, perPage int) url.Values {
	q := url.Values{}
	v := reflect.ValueOf(criteria)

	for _, field := range reflect.VisibleFields(v.Type()) {
		key, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		// Limit is applied client-side.
		if key == "" || key == "-" || key == "limit" {
			continue
		}

		value := v.FieldByIndex(field.Index)
		if value.Kind() == reflect.Pointer {
			if value.IsNil() {
				continue
			}
			value = value.Elem()
		}

		if value.Kind() == reflect.Slice {
			for i := 0; i < value.Len(); i++ {
				if s := formatValue(value.Index(i)); s != "" {
					q.Add(key, s)
				}
			}
			continue
		}

		if s := formatValue(value); s != "" {
			q.Set(key, s)
		}
	}

	q.Set("per_page", strconv.Itoa(perPage))
	return q
}

func formatValue(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.String:
		return strings.TrimSpace(v.String())
	default:
		return fmt.Sprint(v.Interface())
	}
}
