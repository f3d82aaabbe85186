// Package feed renders personalized article lists as RSS 2.0 and parses
// user identifiers out of feed URL paths.
package feed

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ainewshub/ainewshub/internal/storage"
)

const (
	channelTitle       = "newshub"
	channelDescription = "Personalized AI news feed"
)

// Item pairs an article with its assigned tags for rendering.
type Item struct {
	Article storage.Article
	Tags    []storage.Tag
}

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	GUID        rssGUID  `xml:"guid"`
	Categories  []string `xml:"category"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Render produces an RSS 2.0 document for the given items, preserving
// their order. feedLink is the public URL of the feed itself.
func Render(feedLink string, items []Item, now time.Time) (string, error) {
	channel := rssChannel{
		Title:         channelTitle,
		Link:          feedLink,
		Description:   channelDescription,
		Language:      "en-us",
		LastBuildDate: formatRSSTime(now),
		Items:         make([]rssItem, 0, len(items)),
	}

	for _, item := range items {
		a := item.Article
		categories := make([]string, 0, len(item.Tags))
		for _, tag := range item.Tags {
			categories = append(categories, tag.Name)
		}

		channel.Items = append(channel.Items, rssItem{
			Title:       a.Title,
			Link:        a.URL,
			Description: a.Summary,
			PubDate:     formatRSSTime(a.PublishedAt),
			GUID:        rssGUID{IsPermaLink: true, Value: a.URL},
			Categories:  categories,
		})
	}

	out, err := xml.MarshalIndent(rssDoc{Version: "2.0", Channel: channel}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal rss: %w", err)
	}
	return xml.Header + string(out), nil
}

// formatRSSTime renders a timestamp in the RFC 1123 GMT form RSS readers
// expect.
func formatRSSTime(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// ParseSnowflakeID extracts the user identifier from a feed path such as
// /rss/1234567890. The last non-empty path segment is the identifier.
func ParseSnowflakeID(path string) (int64, error) {
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		segment := strings.TrimSpace(segments[i])
		if segment == "" {
			continue
		}
		id, err := strconv.ParseInt(segment, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid feed identifier %q", segment)
		}
		if id <= 0 {
			return 0, fmt.Errorf("invalid feed identifier %q", segment)
		}
		return id, nil
	}
	return 0, fmt.Errorf("no feed identifier in path %q", path)
}
