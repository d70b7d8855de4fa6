package database

import (
	"fmt"
)

var _ SubscriberRepository = (*SubscriberRepositoryImpl)(nil)

type SubscriberRepositoryImpl struct {
	db *DB
}

func NewSubscriberRepository(db *DB) *SubscriberRepositoryImpl {
	return &SubscriberRepositoryImpl{db: db}
}

// Insert records a subscriber. Re-subscribing an existing address is a
// no-op, not an error.
func (r *SubscriberRepositoryImpl) Insert(email string) error {
	_, err := r.db.Exec(`
		INSERT OR IGNORE INTO subscribers (email) VALUES (?)
	`, email)
	if err != nil {
		return fmt.Errorf("failed to insert subscriber: %w", err)
	}

	return nil
}

func (r *SubscriberRepositoryImpl) GetAll() ([]Subscriber, error) {
	rows, err := r.db.Query(`
		SELECT id, email, created_at FROM subscribers ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []Subscriber
	for rows.Next() {
		var s Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		subscribers = append(subscribers, s)
	}

	return subscribers, rows.Err()
}

func (r *SubscriberRepositoryImpl) GetCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM subscribers`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}

	return count, nil
}
