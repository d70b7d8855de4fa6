package api

import (
	"github.com/b3u/sitekit/app/database"
	"github.com/b3u/sitekit/app/forms"
)

type Handler struct {
	subscriberRepo database.SubscriberRepository
	analyticsRepo  database.AnalyticsRepository
	resolver       *forms.Resolver
	formsClient    *forms.Client
	sessionSecret  []byte
	adminUsername  string
	adminPassword  string
}

type subscribeRequest struct {
	Email string `json:"email"`
}

type trackRequest struct {
	Path       string `json:"path"`
	Referrer   string `json:"referrer"`
	UserAgent  string `json:"userAgent"`
	Language   string `json:"language"`
	ScreenSize string `json:"screenSize"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type overrideRequest struct {
	Value string `json:"value"`
}

type analyticsResponse struct {
	Analytics    []database.DailyViews    `json:"analytics"`
	Total        int                      `json:"total"`
	TopReferrers []database.ReferrerCount `json:"topReferrers"`
	TopBrowsers  []database.BrowserCount  `json:"topBrowsers"`
	DeviceTypes  []database.DeviceCount   `json:"deviceTypes"`
}
