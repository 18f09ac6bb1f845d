package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"

	appLog "crmcal/internal/log"
	"crmcal/internal/model"
)

const cardsPath = "/panel/card"

// FetchResult is the outcome of a complete paginated fetch.
type FetchResult struct {
	Records []model.Record
	// Pages is the number of pages requested, including a failed one.
	Pages int
	// Duplicates counts records dropped because their id was already seen.
	Duplicates int
	// Capped is true when pagination stopped at the MaxPages limit.
	Capped bool
}

// listResponse is the listing endpoint body. Items stays raw so a missing or
// non-array value can be told apart from an empty page.
type listResponse struct {
	Items json.RawMessage `json:"items"`
	Key   string          `json:"key"`
	Text  string          `json:"text"`
}

// FetchCards returns every distinct card in the panel, in first-seen order.
func (c *Client) FetchCards(ctx context.Context, panelID string) ([]model.Record, error) {
	res, err := c.Fetch(ctx, panelID)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Fetch walks the listing endpoint page by page until a page is shorter than
// the page size or contributes no unseen ids. A card seen on an earlier page
// is never overwritten by a later copy. Any failed page aborts the whole
// fetch; the result then carries only the page count, never records.
func (c *Client) Fetch(ctx context.Context, panelID string) (FetchResult, error) {
	if panelID == "" {
		return FetchResult{}, errors.New("crm: panel id is empty")
	}

	seen := make(map[string]struct{})
	var res FetchResult

	for page := 1; ; page++ {
		if c.maxPages > 0 && page > c.maxPages {
			res.Capped = true
			appLog.Warn("crm fetch stopped at page cap",
				"panel_id", panelID,
				"max_pages", c.maxPages,
				"records", len(res.Records),
			)
			break
		}

		batch, err := c.fetchPage(ctx, panelID, page)
		if err != nil {
			return FetchResult{Pages: page}, err
		}
		res.Pages++

		fresh := 0
		for _, rec := range batch {
			if _, dup := seen[rec.ID]; dup {
				res.Duplicates++
				continue
			}
			seen[rec.ID] = struct{}{}
			res.Records = append(res.Records, rec)
			fresh++
		}

		appLog.Debug("crm page fetched",
			"panel_id", panelID,
			"page", page,
			"batch", len(batch),
			"new", fresh,
		)

		if len(batch) < c.pageSize || fresh == 0 {
			break
		}
	}

	appLog.Info("crm fetch completed",
		"panel_id", panelID,
		"pages", res.Pages,
		"records", len(res.Records),
		"duplicates", res.Duplicates,
	)
	return res, nil
}

func (c *Client) fetchPage(ctx context.Context, panelID string, page int) ([]model.Record, error) {
	q := url.Values{}
	q.Set("PanelId", panelID)
	q.Set("IncludeDetails", "CustomFields")
	q.Set("PageSize", strconv.Itoa(c.pageSize))
	q.Set("PageNumber", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+cardsPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if auth := c.authorization(); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm: page %d: %w", page, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("crm: page %d: read body: %w", page, err)
	}

	var lr listResponse
	decodeErr := sonic.Unmarshal(body, &lr)

	if resp.StatusCode != http.StatusOK || decodeErr != nil || !isArray(lr.Items) {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Key = lr.Key
			apiErr.Text = lr.Text
		}
		appLog.Error("crm page request failed", apiErr,
			"panel_id", panelID,
			"page", page,
			"status", resp.StatusCode,
		)
		return nil, apiErr
	}

	var batch []model.Record
	if err := sonic.Unmarshal(lr.Items, &batch); err != nil {
		return nil, fmt.Errorf("crm: page %d: decode items: %w", page, err)
	}
	return batch, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
