package models

import (
	"fmt"
	"time"
)

// FavoriteKind is the closed set of content kinds a favorite can refer to.
// External input (UI layers, analytics payloads) may use looser aliases;
// those are normalized once via ParseFavoriteKind.
type FavoriteKind string

const (
	KindDevotionals  FavoriteKind = "devotionals"
	KindVideoSermons FavoriteKind = "video_sermons"
	KindAudioSermons FavoriteKind = "audio_sermons"
)

// ParseFavoriteKind maps a kind string, including historical aliases like
// "video" and "video_sermon", onto the canonical enum.
func ParseFavoriteKind(s string) (FavoriteKind, error) {
	switch s {
	case "devotional", "devotionals":
		return KindDevotionals, nil
	case "video", "video_sermon", "video_sermons":
		return KindVideoSermons, nil
	case "audio", "audio_sermon", "audio_sermons":
		return KindAudioSermons, nil
	default:
		return "", fmt.Errorf("unknown favorite kind %q", s)
	}
}

// Favorites holds per-kind membership sets, serialized as sorted id slices.
// An id appears at most once per slice.
type Favorites struct {
	Devotionals  []int `json:"devotionals"`
	VideoSermons []int `json:"video_sermons"`
	AudioSermons []int `json:"audio_sermons"`
}

// DownloadRecord indexes one locally downloaded audio sermon. At most one
// record exists per SermonID.
type DownloadRecord struct {
	SermonID     int       `json:"sermon_id"`
	LocalPath    string    `json:"local_path"`
	DownloadedAt time.Time `json:"downloaded_at"`
	Title        string    `json:"title"`
	Speaker      string    `json:"speaker"`
	Duration     int       `json:"duration,omitempty"` // seconds
}

// ReadingStreak tracks consecutive-day devotional reading. LastReadDate is a
// calendar day in "2006-01-02" form, anchored to the device-local timezone.
type ReadingStreak struct {
	CurrentStreak int    `json:"current_streak"`
	LastReadDate  string `json:"last_read_date"`
	LongestStreak int    `json:"longest_streak"`
}

// Font sizes and themes accepted by AppSettings.
const (
	FontSmall  = "small"
	FontMedium = "medium"
	FontLarge  = "large"

	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// AppSettings is the user-adjustable settings block of the user document.
type AppSettings struct {
	Notifications      bool   `json:"notifications"`
	AutoDownloadOnWifi bool   `json:"auto_download_on_wifi"`
	FontSize           string `json:"font_size"`
	Theme              string `json:"theme"`
}

// SettingsPatch is a partial update of AppSettings; nil fields are left
// untouched by the merge.
type SettingsPatch struct {
	Notifications      *bool   `json:"notifications,omitempty"`
	AutoDownloadOnWifi *bool   `json:"auto_download_on_wifi,omitempty"`
	FontSize           *string `json:"font_size,omitempty"`
	Theme              *string `json:"theme,omitempty"`
}

// UserData is the single per-device user document. It is owned exclusively
// by the userdata.Store; no other component writes it.
type UserData struct {
	DeviceID        string           `json:"device_id"`
	Favorites       Favorites        `json:"favorites"`
	ReadDevotionals []int            `json:"read_devotionals"`
	DownloadedAudio []DownloadRecord `json:"downloaded_audio"`
	ReadingStreak   ReadingStreak    `json:"reading_streak"`
	AppSettings     AppSettings      `json:"app_settings"`
	LastSyncAt      time.Time        `json:"last_sync_at"`
}

// DefaultUserData returns a fresh document for the given device id.
func DefaultUserData(deviceID string) *UserData {
	return &UserData{
		DeviceID:        deviceID,
		Favorites:       Favorites{Devotionals: []int{}, VideoSermons: []int{}, AudioSermons: []int{}},
		ReadDevotionals: []int{},
		DownloadedAudio: []DownloadRecord{},
		AppSettings: AppSettings{
			Notifications:      true,
			AutoDownloadOnWifi: false,
			FontSize:           FontMedium,
			Theme:              ThemeSystem,
		},
	}
}
