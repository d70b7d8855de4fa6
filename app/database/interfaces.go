package database

import "time"

// PageView is one tracked page impression as reported by the site.
type PageView struct {
	Path       string
	Referrer   string
	UserAgent  string
	Language   string
	ScreenSize string
	IP         string
}

type Subscriber struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyViews is the per-path, per-day view count used by the admin dashboard.
type DailyViews struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
	Date  string `json:"date"`
}

type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int    `json:"count"`
}

type BrowserCount struct {
	Browser string `json:"browser"`
	Count   int    `json:"count"`
}

type DeviceCount struct {
	Device string `json:"device"`
	Count  int    `json:"count"`
}

type SubscriberRepository interface {
	Insert(email string) error
	GetAll() ([]Subscriber, error)
	GetCount() (int, error)
}

type AnalyticsRepository interface {
	InsertPageView(view PageView) error
	GetDailyViews() ([]DailyViews, error)
	GetTopReferrers(limit int) ([]ReferrerCount, error)
	GetTopBrowsers() ([]BrowserCount, error)
	GetDeviceTypes() ([]DeviceCount, error)
}
