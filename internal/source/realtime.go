// Package source talks to the remote event source: the realtime database's
// REST surface for snapshots and counters, and a kafka feed for live
// change notifications.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

// RealtimeClient reads events over the realtime database REST API.
// Every path is suffixed with .json; a JSON null body means the node is absent.
type RealtimeClient struct {
	base   string
	auth   string
	client *http.Client
}

// NewRealtimeClient constructs a client for baseURL (no trailing slash).
// auth, when set, is sent as the auth query parameter on every request.
// A nil client gets a 15 second timeout.
func NewRealtimeClient(baseURL, auth string, client *http.Client) *RealtimeClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RealtimeClient{base: baseURL, auth: auth, client: client}
}

// FetchEvents returns every event with daysIntoYear <= maxDayOfYear,
// ordered by event id.
func (c *RealtimeClient) FetchEvents(ctx context.Context, maxDayOfYear int) ([]domain.RawEvent, error) {
	q := url.Values{
		"orderBy": {`"daysIntoYear"`},
		"endAt":   {strconv.Itoa(maxDayOfYear)},
	}
	var byID map[string]domain.RawEvent
	if err := c.get(ctx, "/events.json", q, &byID); err != nil {
		return nil, fmt.Errorf("source.RealtimeClient.FetchEvents: %w", err)
	}

	keys := make([]string, 0, len(byID))
	for k := range byID {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.RawEvent, 0, len(keys))
	for _, k := range keys {
		if byID[k] != nil {
			out = append(out, byID[k])
		}
	}
	return out, nil
}

// FetchEvent returns one event by id.
// Returns domain.ErrNotFound if the event was removed.
func (c *RealtimeClient) FetchEvent(ctx context.Context, id string) (domain.RawEvent, error) {
	var raw domain.RawEvent
	if err := c.get(ctx, "/events/"+url.PathEscape(id)+".json", nil, &raw); err != nil {
		return nil, fmt.Errorf("source.RealtimeClient.FetchEvent: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("source.RealtimeClient.FetchEvent: %w", domain.ErrNotFound)
	}
	return raw, nil
}

// FetchEventTypeAssociations returns the parent → children event type table.
func (c *RealtimeClient) FetchEventTypeAssociations(ctx context.Context) (domain.Associations, error) {
	a, err := c.associations(ctx, "/eventTypeAssociations.json")
	if err != nil {
		return nil, fmt.Errorf("source.RealtimeClient.FetchEventTypeAssociations: %w", err)
	}
	return a, nil
}

// FetchLocationAssociations returns the parent → children location table.
func (c *RealtimeClient) FetchLocationAssociations(ctx context.Context) (domain.Associations, error) {
	a, err := c.associations(ctx, "/locationAssociations.json")
	if err != nil {
		return nil, fmt.Errorf("source.RealtimeClient.FetchLocationAssociations: %w", err)
	}
	return a, nil
}

// AdjustAttending reads numberAttending and writes it back changed by delta.
// The read-then-write is not atomic; concurrent adjustments may be lost.
// A removed event is not an error.
func (c *RealtimeClient) AdjustAttending(ctx context.Context, id string, delta int) error {
	path := "/events/" + url.PathEscape(id) + "/numberAttending.json"

	var current *int
	if err := c.get(ctx, path, nil, &current); err != nil {
		return fmt.Errorf("source.RealtimeClient.AdjustAttending: %w", err)
	}
	if current == nil {
		return nil
	}
	if err := c.put(ctx, path, *current+delta); err != nil {
		return fmt.Errorf("source.RealtimeClient.AdjustAttending: %w", err)
	}
	return nil
}

// associations decodes a two-level object; child values that are not
// strings are formatted with fmt.
func (c *RealtimeClient) associations(ctx context.Context, path string) (domain.Associations, error) {
	var raw map[string]map[string]any
	if err := c.get(ctx, path, nil, &raw); err != nil {
		return nil, err
	}
	out := make(domain.Associations, len(raw))
	for parent, children := range raw {
		set := make(map[string]string, len(children))
		for child, v := range children {
			if s, ok := v.(string); ok {
				set[child] = s
			} else {
				set[child] = fmt.Sprint(v)
			}
		}
		out[parent] = set
	}
	return out, nil
}

func (c *RealtimeClient) get(ctx context.Context, path string, q url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, q), nil)
	if err != nil {
		return err
	}
	return c.do(req, dst)
}

func (c *RealtimeClient) put(ctx context.Context, path string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url(path, nil), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *RealtimeClient) do(req *http.Request, dst any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: unexpected status %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func (c *RealtimeClient) url(path string, q url.Values) string {
	if c.auth != "" {
		if q == nil {
			q = url.Values{}
		}
		q.Set("auth", c.auth)
	}
	if len(q) == 0 {
		return c.base + path
	}
	return c.base + path + "?" + q.Encode()
}
