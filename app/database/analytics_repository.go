package database

import (
	"database/sql"
	"fmt"
)

var _ AnalyticsRepository = (*AnalyticsRepositoryImpl)(nil)

type AnalyticsRepositoryImpl struct {
	db *DB
}

func NewAnalyticsRepository(db *DB) *AnalyticsRepositoryImpl {
	return &AnalyticsRepositoryImpl{db: db}
}

func (r *AnalyticsRepositoryImpl) InsertPageView(view PageView) error {
	_, err := r.db.Exec(`
		INSERT INTO analytics (path, referrer, user_agent, language, screen_size, ip)
		VALUES (?, ?, ?, ?, ?, ?)
	`, view.Path, view.Referrer, view.UserAgent, view.Language, view.ScreenSize, view.IP)
	if err != nil {
		return fmt.Errorf("failed to insert page view: %w", err)
	}

	return nil
}

func (r *AnalyticsRepositoryImpl) GetDailyViews() ([]DailyViews, error) {
	rows, err := r.db.Query(`
		SELECT path, COUNT(*) as views, DATE(timestamp) as date
		FROM analytics
		GROUP BY path, DATE(timestamp)
		ORDER BY date DESC, views DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily views: %w", err)
	}
	defer rows.Close()

	var views []DailyViews
	for rows.Next() {
		var v DailyViews
		if err := rows.Scan(&v.Path, &v.Views, &v.Date); err != nil {
			return nil, fmt.Errorf("failed to scan daily views: %w", err)
		}
		views = append(views, v)
	}

	return views, rows.Err()
}

func (r *AnalyticsRepositoryImpl) GetTopReferrers(limit int) ([]ReferrerCount, error) {
	rows, err := r.db.Query(`
		SELECT referrer, COUNT(*) as count
		FROM analytics
		WHERE referrer IS NOT NULL AND referrer != ''
		GROUP BY referrer
		ORDER BY count DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query referrers: %w", err)
	}
	defer rows.Close()

	var referrers []ReferrerCount
	for rows.Next() {
		var ref ReferrerCount
		var referrer sql.NullString
		if err := rows.Scan(&referrer, &ref.Count); err != nil {
			return nil, fmt.Errorf("failed to scan referrer: %w", err)
		}
		ref.Referrer = referrer.String
		referrers = append(referrers, ref)
	}

	return referrers, rows.Err()
}

func (r *AnalyticsRepositoryImpl) GetTopBrowsers() ([]BrowserCount, error) {
	rows, err := r.db.Query(`
		SELECT
			CASE
				WHEN user_agent LIKE '%Chrome%' THEN 'Chrome'
				WHEN user_agent LIKE '%Firefox%' THEN 'Firefox'
				WHEN user_agent LIKE '%Safari%' THEN 'Safari'
				WHEN user_agent LIKE '%Edge%' THEN 'Edge'
				ELSE 'Other'
			END as browser,
			COUNT(*) as count
		FROM analytics
		GROUP BY browser
		ORDER BY count DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query browsers: %w", err)
	}
	defer rows.Close()

	var browsers []BrowserCount
	for rows.Next() {
		var b BrowserCount
		if err := rows.Scan(&b.Browser, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan browser: %w", err)
		}
		browsers = append(browsers, b)
	}

	return browsers, rows.Err()
}

func (r *AnalyticsRepositoryImpl) GetDeviceTypes() ([]DeviceCount, error) {
	rows, err := r.db.Query(`
		SELECT
			CASE
				WHEN user_agent LIKE '%Mobile%' THEN 'Mobile'
				WHEN user_agent LIKE '%Tablet%' THEN 'Tablet'
				ELSE 'Desktop'
			END as device,
			COUNT(*) as count
		FROM analytics
		GROUP BY device
		ORDER BY count DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query device types: %w", err)
	}
	defer rows.Close()

	var devices []DeviceCount
	for rows.Next() {
		var d DeviceCount
		if err := rows.Scan(&d.Device, &d.Count); err != nil {
			return nil, fmt.Errorf("failed to scan device type: %w", err)
		}
		devices = append(devices, d)
	}

	return devices, rows.Err()
}
