package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/b3u/sitekit/app/feed"
)

// Ingestor runs the one-shot feed ingestion pipeline: fetch, normalize,
// write artifact. One call per source; the process exits after all sources
// are handled, so there is no coordination between runs. A lost race
// between two concurrent runs just means the last complete write wins.
type Ingestor struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	normalizer *feed.Normalizer
	extractor  *feed.Extractor
	dataDir    string
	userAgent  string
}

func NewIngestor(httpClient *http.Client, dataDir string, userAgent string) *Ingestor {
	return &Ingestor{
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		normalizer: feed.NewNormalizer(),
		extractor:  feed.NewExtractor(),
		dataDir:    dataDir,
		userAgent:  userAgent,
	}
}

// Run ingests a single source and writes its artifact. Fetch and parse
// failures are fatal for the run and leave any prior artifact untouched;
// normalization never fails once a feed has been parsed.
func (i *Ingestor) Run(ctx context.Context, source feed.Source) (*feed.Artifact, error) {
	data, err := i.fetchFeed(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	parsed, err := i.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	artifact := &feed.Artifact{
		Source:    source.URL,
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
	}

	switch source.Kind {
	case feed.SourceKindVideo:
		artifact.ChannelID = channelIDFromURL(source.URL)
		artifact.Videos = i.normalizer.Videos(parsed, source.Settings.MaxItems)
		artifact.Count = len(artifact.Videos)
	default:
		artifact.Episodes = i.normalizer.Episodes(parsed, source.Settings.MaxItems)
		if source.Settings.ExtractShowNotes {
			i.backfillDescriptions(ctx, source, artifact.Episodes)
		}
		artifact.Count = len(artifact.Episodes)
	}

	outFile := filepath.Join(i.dataDir, source.Artifact)
	if err := WriteArtifact(outFile, artifact); err != nil {
		return nil, err
	}

	slog.Info("Artifact written",
		"source", source.Name,
		"count", artifact.Count,
		"file", outFile)

	return artifact, nil
}

func (i *Ingestor) fetchFeed(ctx context.Context, source feed.Source) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(source.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", i.userAgent)

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// backfillDescriptions fills empty episode descriptions from the episode's
// web page. Best-effort: any failure leaves the description empty and the
// artifact still gets written.
func (i *Ingestor) backfillDescriptions(ctx context.Context, source feed.Source, episodes []feed.Episode) {
	for idx := range episodes {
		if episodes[idx].Description != "" || episodes[idx].Link == "" {
			continue
		}

		extractCtx, cancel := context.WithTimeout(ctx, time.Duration(source.Settings.Timeout)*time.Second)
		text, err := i.extractShowNotes(extractCtx, episodes[idx].Link)
		cancel()

		if err != nil {
			slog.Warn("Failed to extract show notes",
				"source", source.Name,
				"episode", episodes[idx].ID,
				"url", episodes[idx].Link,
				"error", err)
			continue
		}

		episodes[idx].Description = text
	}
}

func (i *Ingestor) extractShowNotes(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", i.userAgent)

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}

	return i.extractor.Run(data)
}

func channelIDFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("channel_id")
}

// WriteArtifact writes a complete artifact document, creating parent
// directories as needed. Any prior artifact is overwritten unconditionally.
func WriteArtifact(path string, artifact *feed.Artifact) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	return nil
}

// ReadArtifact loads a previously written artifact. A missing file is not
// an error: the consumer renders an empty state.
func ReadArtifact(path string) (*feed.Artifact, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &feed.Artifact{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var artifact feed.Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse artifact: %w", err)
	}

	return &artifact, nil
}
