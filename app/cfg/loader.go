package cfg

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
	"golang.org/x/text/language"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

// DefaultFormsAPI is the baked-in forms backend, used when neither a flag
// nor FORMS_API is set, so production builds work without extra wiring.
const DefaultFormsAPI = "https://script.google.com/macros/s/AKfycbycR-0Ya1-xnU2-zlTl8MQXjwA0TT0-6b7BO1C4WcRqB0tAfjXAd3ue6YS1wwVR6_cd/exec"

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/app.db" description:"Path to the SQLite database file"`

	// HTTP server configuration
	Port string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`

	// Ingestion configuration
	SourcesDir     string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing feed source configuration files"`
	DataDir        string `long:"data-dir" env:"DATA_DIR" default:"./public/data" description:"Directory for generated feed artifacts"`
	PodcastFeedURL string `long:"podcast-feed-url" env:"PODCAST_RSS_URL" default:"https://feeds.buzzsprout.com/2467135.rss" description:"Podcast RSS feed URL"`
	YouTubeChannel string `long:"youtube-channel" env:"YT_CHANNEL_ID" default:"UCSrtA1gGlgo4cQUzoSlzZ5w" description:"YouTube channel ID for the video feed"`

	// Forms relay configuration
	FormsAPI    string `long:"forms-api" env:"FORMS_API" description:"Base URL of the external forms backend (defaults to the built-in endpoint)"`
	SessionFile string `long:"session-file" env:"SESSION_FILE" description:"Path to the forms endpoint override state file (in-memory when empty)"`

	// Admin configuration
	AdminUsername string `long:"admin-username" env:"ADMIN_USERNAME" description:"Admin username (admin endpoints disabled when empty)"`
	AdminPassword string `long:"admin-password" env:"ADMIN_PASSWORD" description:"Admin password"`
	SessionSecret string `long:"session-secret" env:"SESSION_SECRET" description:"Secret for signing admin session cookies (random per process when empty)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"SiteKit/1.0" description:"User agent string for HTTP requests"`
	Locale    string `long:"locale" env:"LOCALE" default:"en-US" description:"Locale tag for artifact date formatting"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Args struct {
		Command string   `positional-arg-name:"command" description:"Command to run: serve, fetch"`
		Rest    []string `positional-arg-name:"args"`
	} `positional-args:"yes"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:         raw.DBPath,
		Port:           raw.Port,
		SourcesDir:     raw.SourcesDir,
		DataDir:        raw.DataDir,
		PodcastFeedURL: raw.PodcastFeedURL,
		YouTubeChannel: raw.YouTubeChannel,
		FormsAPI:       cmp.Or(raw.FormsAPI, DefaultFormsAPI),
		SessionFile:    raw.SessionFile,
		AdminUsername:  raw.AdminUsername,
		AdminPassword:  raw.AdminPassword,
		SessionSecret:  raw.SessionSecret,
		UserAgent:      raw.UserAgent,
		Locale:         parseLocale(raw.Locale),
		Debug:          raw.Debug,
		Version:        GetVersion(),
		Command:        cmp.Or(raw.Args.Command, "serve"),
		CommandArgs:    raw.Args.Rest,
	}

	applyLogLevel(cfg.Debug)

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func parseLocale(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		slog.Warn("Invalid locale, falling back to en-US", "locale", locale, "error", err)
		return language.AmericanEnglish
	}
	return tag
}

func applyLogLevel(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
