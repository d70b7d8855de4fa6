package cfg

import "golang.org/x/text/language"

type Cfg struct {
	// Storage configuration
	DBPath string

	// HTTP server configuration
	Port string

	// Ingestion configuration
	SourcesDir     string
	DataDir        string
	PodcastFeedURL string
	YouTubeChannel string

	// Forms relay configuration
	FormsAPI    string
	SessionFile string

	// Admin configuration
	AdminUsername string
	AdminPassword string
	SessionSecret string

	// Application metadata
	UserAgent string
	Locale    language.Tag
	Debug     bool
	Version   string

	// Command dispatch
	Command     string
	CommandArgs []string
}
