package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// NotionAPIBase is the Notion REST API root.
const NotionAPIBase = "https://api.notion.com/v1"

// notionVersion is the API version header Notion requires.
const notionVersion = "2022-06-28"

// HoursEntry is one row of the contractor hours database.
type HoursEntry struct {
	PageID      string  `json:"page_id"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	AmountUSD   float64 `json:"amount_usd"`
	Paid        bool    `json:"paid"`
}

// NotionClient queries a Notion database of contractor hours.
type NotionClient struct {
	client  *Client
	token   string
	baseURL string
}

// NewNotionClient creates a Notion API client with a bearer token.
func NewNotionClient(client *Client, token string) *NotionClient {
	return &NotionClient{client: client, token: token, baseURL: NotionAPIBase}
}

// SetBaseURL overrides the API endpoint. Intended for tests.
func (n *NotionClient) SetBaseURL(url string) {
	n.baseURL = url
}

// HoursLog fetches every row of the hours database, following
// pagination cursors, sorted newest first.
func (n *NotionClient) HoursLog(ctx context.Context, databaseID string) ([]HoursEntry, error) {
	url := fmt.Sprintf("%s/databases/%s/query", n.baseURL, databaseID)

	var entries []HoursEntry
	cursor := ""
	for {
		body := []byte(`{}`)
		if cursor != "" {
			var err error
			body, err = sjson.SetBytes(body, "start_cursor", cursor)
			if err != nil {
				return nil, err
			}
		}

		resp, err := n.client.fetch(ctx, SourceNotion, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+n.token)
			req.Header.Set("Notion-Version", notionVersion)
			req.Header.Set("Content-Type", "application/json")
			return req, nil
		})
		if err != nil {
			return nil, err
		}

		parsed := gjson.ParseBytes(resp)
		for _, page := range parsed.Get("results").Array() {
			if entry, ok := parseHoursPage(page); ok {
				entries = append(entries, entry)
			}
		}

		if !parsed.Get("has_more").Bool() {
			break
		}
		cursor = parsed.Get("next_cursor").String()
		if cursor == "" {
			break
		}
	}

	// Newest first, matching how the database is read by hand.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date > entries[j].Date })
	return entries, nil
}

// parseHoursPage maps Notion's property envelope onto a flat entry.
// Rows without a date are drafts and are skipped.
func parseHoursPage(page gjson.Result) (HoursEntry, bool) {
	props := page.Get("properties")

	date := props.Get("Date.date.start").String()
	if date == "" {
		return HoursEntry{}, false
	}

	entry := HoursEntry{
		PageID:      page.Get("id").String(),
		Description: props.Get("Description.title.0.plain_text").String(),
		Date:        date,
		Hours:       props.Get("Hours worked.number").Float(),
		Paid:        props.Get("Paid.checkbox").Bool(),
	}

	// Amount earned is a formula column; it comes back as a number or
	// as a "$45.00" string depending on the formula.
	formula := props.Get("Amount earned.formula")
	switch formula.Get("type").String() {
	case "number":
		entry.AmountUSD = formula.Get("number").Float()
	case "string":
		s := strings.ReplaceAll(strings.TrimPrefix(formula.Get("string").String(), "$"), ",", "")
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			entry.AmountUSD = v
		}
	}

	return entry, true
}
