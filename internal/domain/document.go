package domain

import "time"

// DocumentInfo describes an uploaded source document.
type DocumentInfo struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	PageCount int       `json:"page_count"`
	Page      PageSpace `json:"page"`
	LoadedAt  time.Time `json:"loaded_at"`
}
