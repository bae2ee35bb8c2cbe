package store

import (
	"database/sql"
	"fmt"
)

// Subscription is a followed podcast feed. feed_url is the natural
// key; the numeric id exists for the vault wire format.
type Subscription struct {
	ID                int64
	FeedURL           string
	Title             string
	Author            string
	ArtworkURL        string
	AddedAt           int64 // epoch ms
	ProviderPodcastID string
	ExtraJSON         string
}

const subscriptionCols = `id, feed_url, title, author, artwork_url, added_at, provider_podcast_id, extra_json`

func scanSubscription(row rowScanner) (*Subscription, error) {
	sub := &Subscription{}
	err := row.Scan(&sub.ID, &sub.FeedURL, &sub.Title, &sub.Author, &sub.ArtworkURL,
		&sub.AddedAt, &sub.ProviderPodcastID, &sub.ExtraJSON)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// UpsertSubscription inserts a subscription or refreshes its metadata
// if the feed is already followed. added_at is kept on update.
func (s *Store) UpsertSubscription(sub *Subscription) error {
	if sub.AddedAt == 0 {
		sub.AddedAt = nowMillis()
	}
	if sub.ID == 0 {
		// Allocated up front; on conflict the existing row keeps its
		// id and this one becomes a sequence gap
		id, err := s.nextID()
		if err != nil {
			return err
		}
		sub.ID = id
	}
	_, err := s.db.Exec(`
		INSERT INTO subscriptions (`+subscriptionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(feed_url) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			artwork_url = excluded.artwork_url,
			provider_podcast_id = excluded.provider_podcast_id
	`, sub.ID, sub.FeedURL, sub.Title, sub.Author, sub.ArtworkURL, sub.AddedAt, sub.ProviderPodcastID, sub.ExtraJSON)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	// On conflict the stored id is the existing row's
	err = s.db.QueryRow("SELECT id FROM subscriptions WHERE feed_url = ?", sub.FeedURL).Scan(&sub.ID)
	if err != nil {
		return fmt.Errorf("failed to get subscription ID: %w", err)
	}
	return nil
}

// GetSubscription retrieves a subscription by feed URL, or nil
func (s *Store) GetSubscription(feedURL string) (*Subscription, error) {
	sub, err := scanSubscription(s.db.QueryRow(`
		SELECT `+subscriptionCols+` FROM subscriptions WHERE feed_url = ?
	`, feedURL))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// DeleteSubscription removes a subscription. Subscriptions have no
// children, so no cascade is involved.
func (s *Store) DeleteSubscription(feedURL string) error {
	_, err := s.db.Exec("DELETE FROM subscriptions WHERE feed_url = ?", feedURL)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// AllSubscriptions returns every subscription, most recently added
// first
func (s *Store) AllSubscriptions() ([]*Subscription, error) {
	rows, err := s.db.Query(`
		SELECT ` + subscriptionCols + ` FROM subscriptions ORDER BY added_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// CountSubscriptions returns the number of subscriptions
func (s *Store) CountSubscriptions() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM subscriptions").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}

// InsertSubscriptionTx inserts a subscription with all fields as
// given, including its id. Used by the vault import.
func (s *Store) InsertSubscriptionTx(tx *sql.Tx, sub *Subscription) error {
	_, err := tx.Exec(`
		INSERT INTO subscriptions (`+subscriptionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.FeedURL, sub.Title, sub.Author, sub.ArtworkURL,
		sub.AddedAt, sub.ProviderPodcastID, sub.ExtraJSON)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}
