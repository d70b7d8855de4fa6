package feed

import (
	"cmp"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
)

// Normalizer converts parsed feed items into the fixed artifact schema the
// site renders from. Every rule here is total: missing or malformed fields
// fall through a defined chain and end in a usable value, never an error.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Episodes normalizes up to maxItems podcast items in feed order.
func (n *Normalizer) Episodes(feed *gofeed.Feed, maxItems int) []Episode {
	items := limitItems(feed.Items, maxItems)

	episodes := make([]Episode, 0, len(items))
	for _, item := range items {
		episodes = append(episodes, n.normalizeEpisode(feed, item))
	}
	return episodes
}

// Videos normalizes up to maxItems channel feed items in feed order.
func (n *Normalizer) Videos(feed *gofeed.Feed, maxItems int) []Video {
	items := limitItems(feed.Items, maxItems)

	videos := make([]Video, 0, len(items))
	for _, item := range items {
		videos = append(videos, n.normalizeVideo(item))
	}
	return videos
}

func (n *Normalizer) normalizeEpisode(feed *gofeed.Feed, item *gofeed.Item) Episode {
	episode := Episode{
		ID:          cmp.Or(item.GUID, item.Link, uuid.NewString()),
		Title:       cmp.Or(item.Title, "Untitled"),
		Category:    "General",
		Duration:    itunesDuration(item),
		Date:        publishedDate(item),
		Description: ToPlainText(cmp.Or(item.Content, item.Description)),
		Link:        item.Link,
		ImageURL:    cmp.Or(itunesImage(item), feedImage(feed)),
	}

	if len(item.Categories) > 0 {
		episode.Category = item.Categories[0]
	}

	if len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		episode.AudioURL = item.Enclosures[0].URL
	}

	return episode
}

func (n *Normalizer) normalizeVideo(item *gofeed.Item) Video {
	id := cmp.Or(videoIDFromLink(item.Link), item.GUID)

	thumbnail := mediaGroupThumbnail(item)
	if thumbnail == "" && id != "" {
		thumbnail = "https://img.youtube.com/vi/" + id + "/maxresdefault.jpg"
	}

	link := item.Link
	if link == "" && id != "" {
		link = "https://www.youtube.com/watch?v=" + id
	}

	return Video{
		ID:          id,
		Title:       cmp.Or(item.Title, "Untitled"),
		Description: strings.TrimSpace(cmp.Or(item.Description, mediaGroupDescription(item))),
		Thumbnail:   thumbnail,
		PublishedAt: publishedDate(item),
		Link:        link,
	}
}

func limitItems(items []*gofeed.Item, maxItems int) []*gofeed.Item {
	if maxItems > 0 && len(items) > maxItems {
		return items[:maxItems]
	}
	return items
}

func publishedDate(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return FormatTime(*item.PublishedParsed)
	}
	return FormatDate(cmp.Or(item.Published, item.Updated))
}

// videoIDFromLink extracts the "v" query parameter from a YouTube watch
// page URL. Returns "" for anything that does not parse.
func videoIDFromLink(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Query().Get("v")
}

// Namespaced extension lookups. gofeed surfaces well-known namespaces as
// typed extensions and everything else under Extensions; each helper tries
// the typed field first and degrades to "".

func itunesDuration(item *gofeed.Item) string {
	if item.ITunesExt != nil && item.ITunesExt.Duration != "" {
		return item.ITunesExt.Duration
	}
	return extensionValue(item, "itunes", "duration")
}

func itunesImage(item *gofeed.Item) string {
	if item.ITunesExt != nil && item.ITunesExt.Image != "" {
		return item.ITunesExt.Image
	}
	return extensionAttr(item, "itunes", "image", "href")
}

func feedImage(feed *gofeed.Feed) string {
	if feed == nil {
		return ""
	}
	if feed.Image != nil && feed.Image.URL != "" {
		return feed.Image.URL
	}
	if feed.ITunesExt != nil {
		return feed.ITunesExt.Image
	}
	return ""
}

func mediaGroupThumbnail(item *gofeed.Item) string {
	for _, group := range item.Extensions["media"]["group"] {
		for _, thumb := range group.Children["thumbnail"] {
			if url := thumb.Attrs["url"]; url != "" {
				return url
			}
		}
	}
	return ""
}

func mediaGroupDescription(item *gofeed.Item) string {
	for _, group := range item.Extensions["media"]["group"] {
		for _, desc := range group.Children["description"] {
			if desc.Value != "" {
				return desc.Value
			}
		}
	}
	return ""
}

func extensionValue(item *gofeed.Item, namespace, name string) string {
	for _, ext := range item.Extensions[namespace][name] {
		if ext.Value != "" {
			return ext.Value
		}
	}
	return ""
}

func extensionAttr(item *gofeed.Item, namespace, name, attr string) string {
	for _, ext := range item.Extensions[namespace][name] {
		if v := ext.Attrs[attr]; v != "" {
			return v
		}
	}
	return ""
}
