package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the wire format of link timestamps: UTC, no zone suffix.
const TimestampLayout = "2006-01-02T15:04:05.999999"

// Link describes the core short-link entity stored in the links table.
//
// ID and TargetURL never change once stored; only CountRedirects and
// UpdatedAt move, on redirect.
type Link struct {
	ID             string    `db:"id" gorm:"column:id;primaryKey;size:32"`
	TargetURL      string    `db:"target_url" gorm:"column:target_url;type:text;not null"`
	CountRedirects int64     `db:"count_redirects" gorm:"column:count_redirects;not null;default:0"`
	CreatedAt      time.Time `db:"created_at" gorm:"column:created_at;not null"`
	UpdatedAt      time.Time `db:"updated_at" gorm:"column:updated_at;not null"`
}

// TableName pins the table used by every backend.
func (Link) TableName() string {
	return "links"
}

type linkJSON struct {
	ID             string `json:"id"`
	TargetURL      string `json:"targetUrl"`
	CountRedirects int64  `json:"countRedirects"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

// MarshalJSON renders the camelCase API representation.
func (l Link) MarshalJSON() ([]byte, error) {
	return json.Marshal(linkJSON{
		ID:             l.ID,
		TargetURL:      l.TargetURL,
		CountRedirects: l.CountRedirects,
		CreatedAt:      l.CreatedAt.UTC().Format(TimestampLayout),
		UpdatedAt:      l.UpdatedAt.UTC().Format(TimestampLayout),
	})
}

// UnmarshalJSON parses the representation written by MarshalJSON.
func (l *Link) UnmarshalJSON(data []byte) error {
	var raw linkJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	created, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return fmt.Errorf("createdAt: %w", err)
	}
	updated, err := parseTimestamp(raw.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updatedAt: %w", err)
	}

	*l = Link{
		ID:             raw.ID,
		TargetURL:      raw.TargetURL,
		CountRedirects: raw.CountRedirects,
		CreatedAt:      created,
		UpdatedAt:      updated,
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
}
