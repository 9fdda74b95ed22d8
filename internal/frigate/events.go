package frigate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"frigatebot/pkg/logx"
)

// ListEvents fetches events created after sinceEpoch. One request is issued
// per camera (concurrently); an empty camera list means a single unfiltered
// request. Per-camera failures are logged and treated as "zero events from
// that camera" so one camera's outage cannot blank out the rest.
//
// ErrUnavailable is returned only when no query succeeded and at least one
// failed at the network level; that is the poll loop's backoff trigger.
func (c *Client) ListEvents(ctx context.Context, sinceEpoch float64, cameras []string) ([]Event, error) {
	queries := cameras
	if len(queries) == 0 {
		queries = []string{""}
	}

	results := make([][]Event, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, cam := range queries {
		wg.Add(1)
		go func(i int, cam string) {
			defer wg.Done()
			results[i], errs[i] = c.eventsQuery(ctx, sinceEpoch, cam)
		}(i, cam)
	}
	wg.Wait()

	var (
		succeeded int
		netErr    error
		lastErr   error
	)
	for i, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		lastErr = err
		if errors.Is(err, ErrUnavailable) && netErr == nil {
			netErr = err
		}
		cam := queries[i]
		if cam == "" {
			cam = "all"
		}
		c.log.Warn("event query failed", logx.String("camera", cam), logx.Err(err))
	}
	if succeeded == 0 {
		if netErr != nil {
			return nil, netErr
		}
		return nil, lastErr
	}

	return dedupeByID(results), nil
}

// dedupeByID merges per-camera result sets, keeping the first occurrence of
// each event identifier. Slices are visited in query order so the merge is
// deterministic even though the fetches ran concurrently.
func dedupeByID(results [][]Event) []Event {
	seen := make(map[string]struct{})
	var all []Event
	for _, events := range results {
		for _, ev := range events {
			if ev.ID == "" {
				continue
			}
			if _, dup := seen[ev.ID]; dup {
				continue
			}
			seen[ev.ID] = struct{}{}
			all = append(all, ev)
		}
	}
	return all
}

func (c *Client) eventsQuery(ctx context.Context, sinceEpoch float64, camera string) ([]Event, error) {
	req := c.http.R().SetContext(ctx).
		SetQueryParam("after", strconv.FormatFloat(sinceEpoch, 'f', -1, 64))
	if camera != "" {
		req.SetQueryParam("camera", camera)
	}

	var events []Event
	resp, err := req.SetResult(&events).Get("/api/events")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, &StatusError{Code: resp.StatusCode(), Path: "/api/events"}
	}
	return events, nil
}

// EventDetail fetches one event by id. It returns (nil, err) on any failure:
// network, non-2xx, or parse. Callers branch on presence, not error class.
func (c *Client) EventDetail(ctx context.Context, id string) (*Event, error) {
	var ev Event
	path := "/api/events/" + url.PathEscape(id)
	resp, err := c.http.R().SetContext(ctx).SetResult(&ev).Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, &StatusError{Code: resp.StatusCode(), Path: path}
	}
	if ev.ID == "" {
		return nil, fmt.Errorf("frigate: event %s: empty detail", id)
	}
	return &ev, nil
}

// RecentClipEvents lists the most recent events for one camera that are known
// to have a stored clip, newest first. Used by on-demand "last clip" lookups.
func (c *Client) RecentClipEvents(ctx context.Context, camera string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 1
	}
	var events []Event
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("camera", camera).
		SetQueryParam("has_clip", "1").
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&events).
		Get("/api/events")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, &StatusError{Code: resp.StatusCode(), Path: "/api/events"}
	}
	return events, nil
}

// CreateEvent forces a manual event with an attached recording and returns
// the new event identifier.
func (c *Client) CreateEvent(ctx context.Context, camera, label string, durationSec int) (string, error) {
	if durationSec <= 0 {
		durationSec = 15
	}
	path := fmt.Sprintf("/api/events/%s/%s/create", url.PathEscape(camera), url.PathEscape(label))

	var out struct {
		Success bool   `json:"success"`
		EventID string `json:"event_id"`
	}
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("include_recording", "1").
		SetQueryParam("duration", strconv.Itoa(durationSec)).
		SetResult(&out).
		Post(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return "", &StatusError{Code: resp.StatusCode(), Path: path}
	}
	if out.EventID == "" {
		return "", fmt.Errorf("frigate: create event for %s: no event id in response", camera)
	}
	return out.EventID, nil
}
