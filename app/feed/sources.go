package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxPodcastItems = 20
	DefaultMaxVideoItems   = 6
	DefaultTimeout         = 30 // seconds
)

// LoadSources reads all *.yml source definitions from sourcesDir. A missing
// directory is not an error: the caller falls back to the built-in sources.
func LoadSources(sourcesDir string) ([]Source, error) {
	if _, err := os.Stat(sourcesDir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}

	sources := make([]Source, 0, len(files))
	for _, file := range files {
		source, err := loadSource(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}
		sources = append(sources, *source)
	}

	return sources, nil
}

func loadSource(file string) (*Source, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}

	var source Source
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	source.Name = strings.TrimSuffix(filepath.Base(file), ".yml")
	applyDefaults(&source)

	if err := validateSource(&source); err != nil {
		return nil, fmt.Errorf("invalid source %s: %w", file, err)
	}

	return &source, nil
}

func applyDefaults(source *Source) {
	if source.Settings.MaxItems == 0 {
		switch source.Kind {
		case SourceKindVideo:
			source.Settings.MaxItems = DefaultMaxVideoItems
		default:
			source.Settings.MaxItems = DefaultMaxPodcastItems
		}
	}
	if source.Settings.Timeout == 0 {
		source.Settings.Timeout = DefaultTimeout
	}
	if source.Artifact == "" {
		source.Artifact = source.Name + ".json"
	}
}

func validateSource(source *Source) error {
	if source.URL == "" {
		return fmt.Errorf("url is required")
	}
	if source.Kind != SourceKindPodcast && source.Kind != SourceKindVideo {
		return fmt.Errorf("kind must be %q or %q, got %q", SourceKindPodcast, SourceKindVideo, source.Kind)
	}
	return nil
}

// DefaultSources builds the two first-party sources from configuration when
// no sources directory is present.
func DefaultSources(podcastFeedURL, youtubeChannelID string) []Source {
	return []Source{
		{
			Name: "podcast",
			URL:  podcastFeedURL,
			Kind: SourceKindPodcast,
			Settings: SourceSettings{
				MaxItems: DefaultMaxPodcastItems,
				Timeout:  DefaultTimeout,
			},
			Artifact: "podcast.json",
		},
		{
			Name: "youtube",
			URL:  "https://www.youtube.com/feeds/videos.xml?channel_id=" + youtubeChannelID,
			Kind: SourceKindVideo,
			Settings: SourceSettings{
				MaxItems: DefaultMaxVideoItems,
				Timeout:  DefaultTimeout,
			},
			Artifact: "youtube.json",
		},
	}
}
