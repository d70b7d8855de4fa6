package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/b3u/sitekit/app/cfg"
	"github.com/b3u/sitekit/app/database"
	"github.com/b3u/sitekit/app/forms"
)

func NewHandler(subscriberRepo database.SubscriberRepository,
	analyticsRepo database.AnalyticsRepository,
	resolver *forms.Resolver, formsClient *forms.Client) *Handler {
	appCfg := cfg.Get()

	secret := []byte(appCfg.SessionSecret)
	if len(secret) == 0 {
		secret = newSessionSecret()
	}

	return &Handler{
		subscriberRepo: subscriberRepo,
		analyticsRepo:  analyticsRepo,
		resolver:       resolver,
		formsClient:    formsClient,
		sessionSecret:  secret,
		adminUsername:  appCfg.AdminUsername,
		adminPassword:  appCfg.AdminPassword,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if count, err := h.subscriberRepo.GetCount(); err == nil {
		health["subscribers"] = count
	}

	health["forms_api"] = h.resolver.Resolve() != ""

	c.JSON(http.StatusOK, health)
}

func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}

	if err := h.subscriberRepo.Insert(req.Email); err != nil {
		slog.Error("Database error", "operation", "insert_subscriber", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to subscribe"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subscribed successfully"})
}

func (h *Handler) GetSubscribers(c *gin.Context) {
	subscribers, err := h.subscriberRepo.GetAll()
	if err != nil {
		slog.Error("Database error", "operation", "get_subscribers", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscribers"})
		return
	}

	if subscribers == nil {
		subscribers = []database.Subscriber{}
	}

	c.JSON(http.StatusOK, subscribers)
}

func (h *Handler) TrackPageView(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Path is required"})
		return
	}

	view := database.PageView{
		Path:       req.Path,
		Referrer:   req.Referrer,
		UserAgent:  req.UserAgent,
		Language:   req.Language,
		ScreenSize: req.ScreenSize,
		IP:         c.ClientIP(),
	}

	if err := h.analyticsRepo.InsertPageView(view); err != nil {
		slog.Error("Database error", "operation", "insert_page_view", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to track"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tracked"})
}

func (h *Handler) GetAnalytics(c *gin.Context) {
	views, err := h.analyticsRepo.GetDailyViews()
	if err != nil {
		slog.Error("Database error", "operation", "get_daily_views", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch analytics"})
		return
	}

	referrers, err := h.analyticsRepo.GetTopReferrers(10)
	if err != nil {
		slog.Error("Database error", "operation", "get_top_referrers", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch analytics"})
		return
	}

	browsers, err := h.analyticsRepo.GetTopBrowsers()
	if err != nil {
		slog.Error("Database error", "operation", "get_top_browsers", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch analytics"})
		return
	}

	devices, err := h.analyticsRepo.GetDeviceTypes()
	if err != nil {
		slog.Error("Database error", "operation", "get_device_types", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch analytics"})
		return
	}

	total := 0
	for _, v := range views {
		total += v.Views
	}

	resp := analyticsResponse{
		Analytics:    views,
		Total:        total,
		TopReferrers: referrers,
		TopBrowsers:  browsers,
		DeviceTypes:  devices,
	}
	if resp.Analytics == nil {
		resp.Analytics = []database.DailyViews{}
	}
	if resp.TopReferrers == nil {
		resp.TopReferrers = []database.ReferrerCount{}
	}
	if resp.TopBrowsers == nil {
		resp.TopBrowsers = []database.BrowserCount{}
	}
	if resp.DeviceTypes == nil {
		resp.DeviceTypes = []database.DeviceCount{}
	}

	c.JSON(http.StatusOK, resp)
}

// RelayForm forwards a posted form to the external forms backend through
// the resilient submission client. The response distinguishes an
// unresolvable endpoint (blocked before any network call) from an
// exhausted fallback chain.
func (h *Handler) RelayForm(c *gin.Context) {
	// Runtime override, same parameter names the site accepts.
	override := firstQuery(c, "formsApi", "formsapi", "forms_api")
	if override != "" {
		h.resolver.Override(override)
	}

	base := h.resolver.Resolve()
	if base == "" {
		slog.Warn("Form relay blocked: no forms endpoint resolved")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Forms are temporarily unavailable"})
		return
	}

	if err := c.Request.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data"})
		return
	}

	fields := forms.NewPayload()
	for name, values := range c.Request.PostForm {
		if len(values) > 0 {
			fields[name] = values[0]
		}
	}
	if c.Request.MultipartForm != nil {
		for name, values := range c.Request.MultipartForm.Value {
			if len(values) > 0 {
				fields[name] = values[0]
			}
		}
	}

	endpoint := c.Param("endpoint")
	result, err := h.formsClient.Submit(c.Request.Context(), fields, forms.EndpointURL(base, endpoint))
	if err != nil {
		slog.Error("Form relay failed", "endpoint", endpoint, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Submission failed, please try again later"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": string(result)})
}

func (h *Handler) GetRelayEndpoint(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"formsApi": h.resolver.Resolve()})
}

func (h *Handler) SetRelayEndpoint(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Value is required"})
		return
	}

	h.resolver.Override(req.Value)
	c.JSON(http.StatusOK, gin.H{"formsApi": h.resolver.Resolve()})
}

func (h *Handler) Login(c *gin.Context) {
	if h.adminUsername == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Admin access is not configured"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username and password required"})
		return
	}

	if req.Username != h.adminUsername || req.Password != h.adminPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	token := signSession(h.sessionSecret, time.Now().Add(sessionTTL))
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, token, int(sessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// LegacySubmit is a tombstone for the retired proxy route; the site posts
// through /relay/:endpoint now.
func (h *Handler) LegacySubmit(c *gin.Context) {
	c.JSON(http.StatusGone, gin.H{
		"ok":    false,
		"error": "This endpoint is deprecated. Please use the form relay endpoints.",
	})
}

func firstQuery(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v := c.Query(name); v != "" {
			return v
		}
	}
	return ""
}
