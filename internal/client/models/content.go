// Package models defines the client-side data model: remote content
// payloads, the per-device user-data document and analytics events.
package models

// Devotional is a daily devotional entry as served by the content API.
type Devotional struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Verse   string `json:"verse"`
	Content string `json:"content"`
	Date    string `json:"date"`
	Author  string `json:"author,omitempty"`
}

// VideoSermon is a video sermon as served by the content API.
type VideoSermon struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Speaker   string `json:"speaker"`
	VideoURL  string `json:"video_url"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Duration  int    `json:"duration,omitempty"` // seconds
	Featured  bool   `json:"featured,omitempty"`
}

// AudioSermon is an audio sermon as served by the content API.
type AudioSermon struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Speaker  string `json:"speaker"`
	AudioURL string `json:"audio_url"`
	Duration int    `json:"duration,omitempty"` // seconds
	Featured bool   `json:"featured,omitempty"`
}

// Announcement is a congregation announcement as served by the content API.
type Announcement struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	ImageURL string `json:"image_url,omitempty"`
	StartsAt string `json:"starts_at,omitempty"`
	EndsAt   string `json:"ends_at,omitempty"`
}

// FeaturedContent bundles the featured video and audio sermons into the
// single payload cached under one key.
type FeaturedContent struct {
	VideoSermons []VideoSermon `json:"video_sermons"`
	AudioSermons []AudioSermon `json:"audio_sermons"`
}
