package feed

// Artifact types consumed by the static site

type Episode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Duration    string `json:"duration"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Link        string `json:"link"`
	AudioURL    string `json:"audioUrl,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type Video struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	PublishedAt string `json:"publishedAt"`
	Link        string `json:"link"`
}

// Artifact is the JSON document written by ingestion and read by the page
// renderer. Exactly one of Episodes or Videos is set, depending on the
// source kind.
type Artifact struct {
	Source    string    `json:"source"`
	ChannelID string    `json:"channelId,omitempty"`
	FetchedAt string    `json:"fetchedAt"`
	Count     int       `json:"count"`
	Episodes  []Episode `json:"episodes,omitempty"`
	Videos    []Video   `json:"videos,omitempty"`
}

// Source configuration types

type SourceKind string

const (
	SourceKindPodcast SourceKind = "podcast"
	SourceKindVideo   SourceKind = "video"
)

type Source struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Kind     SourceKind     `yaml:"kind"`
	Settings SourceSettings `yaml:"settings"`
	Artifact string         `yaml:"artifact"` // output file, relative to the data dir
}

type SourceSettings struct {
	MaxItems         int  `yaml:"max_items"`
	Timeout          int  `yaml:"timeout"` // seconds
	ExtractShowNotes bool `yaml:"extract_show_notes"`
}
