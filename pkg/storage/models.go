package storage

import (
	"time"
)

type Link struct {
	ID          int64      `json:"-" db:"id"`
	Code        string     `json:"code" db:"code"`
	TargetURL   string     `json:"targetUrl" db:"target_url"`
	TotalClicks int64      `json:"totalClicks" db:"total_clicks"`
	LastClicked *time.Time `json:"lastClicked" db:"last_clicked"`
	Deleted     bool       `json:"-" db:"deleted"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}
