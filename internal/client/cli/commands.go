package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/beaconchurch/beacon/internal/client/models"
)

// Status prints a snapshot of connectivity, sync state, cache size, the
// analytics backlog and the user document.
func (a *App) Status(ctx context.Context) error {
	conn := a.core.Connectivity()
	sync := a.core.SyncStatus()

	fmt.Printf("Connection:  %s\n", conn.ConnectionType)
	if sync.IsSyncing {
		fmt.Printf("Sync:        in progress (%d%%)\n", sync.Progress)
	} else if sync.LastSyncAt != nil {
		fmt.Printf("Sync:        last at %s\n", sync.LastSyncAt.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("Sync:        never")
	}
	if sync.LastError != "" {
		fmt.Printf("Sync error:  %s\n", sync.LastError)
	}
	fmt.Printf("Cache:       %d bytes\n", a.core.CacheSizeBytes(ctx))
	fmt.Printf("Analytics:   %d pending\n", a.core.PendingEvents())

	ud, err := a.core.UserData(ctx)
	if err != nil {
		fmt.Printf("Error reading user data: %v\n", err)
		return err
	}
	fmt.Printf("Device:      %s\n", ud.DeviceID)
	fmt.Printf("Favorites:   %d devotionals, %d video, %d audio\n",
		len(ud.Favorites.Devotionals), len(ud.Favorites.VideoSermons), len(ud.Favorites.AudioSermons))
	fmt.Printf("Streak:      %d days (best %d)\n", ud.ReadingStreak.CurrentStreak, ud.ReadingStreak.LongestStreak)
	fmt.Printf("Downloads:   %d\n", len(ud.DownloadedAudio))
	return nil
}

// Sync triggers a sync and reports the resulting status.
func (a *App) Sync(ctx context.Context) error {
	st := a.core.SyncNow(ctx)
	switch {
	case st.IsSyncing:
		fmt.Println("Sync already in progress")
	case st.LastError != "":
		fmt.Printf("Sync finished with errors: %s\n", st.LastError)
	case st.LastSyncAt != nil:
		fmt.Printf("Sync finished at %s\n", st.LastSyncAt.Format("15:04:05"))
	default:
		fmt.Println("Sync did not run (offline?)")
	}
	return nil
}

// Favorite toggles a favorite for the given kind and content id.
func (a *App) Favorite(ctx context.Context, kind, id string) error {
	contentID, err := strconv.Atoi(id)
	if err != nil {
		fmt.Printf("Invalid id %q\n", id)
		return err
	}
	nowFavorite, err := a.core.ToggleFavorite(ctx, kind, contentID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return err
	}
	if nowFavorite {
		fmt.Printf("Added %s %d to favorites\n", kind, contentID)
	} else {
		fmt.Printf("Removed %s %d from favorites\n", kind, contentID)
	}
	return nil
}

// MarkRead records a devotional as read and prints the updated streak.
func (a *App) MarkRead(ctx context.Context, id string) error {
	devotionalID, err := strconv.Atoi(id)
	if err != nil {
		fmt.Printf("Invalid id %q\n", id)
		return err
	}
	if err := a.core.MarkRead(ctx, devotionalID); err != nil {
		fmt.Printf("Error: %v\n", err)
		return err
	}
	ud, err := a.core.UserData(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Marked devotional %d as read, streak is %d days\n", devotionalID, ud.ReadingStreak.CurrentStreak)
	return nil
}

// Downloads lists the downloaded audio sermons.
func (a *App) Downloads(ctx context.Context) error {
	ud, err := a.core.UserData(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return err
	}
	if len(ud.DownloadedAudio) == 0 {
		fmt.Println("No downloads")
		return nil
	}
	for _, d := range ud.DownloadedAudio {
		fmt.Printf("%6d  %s / %s (%s)\n", d.SermonID, d.Title, d.Speaker, d.DownloadedAt.Format("2006-01-02"))
	}
	return nil
}

// RemoveDownload drops the download record for the given sermon id.
func (a *App) RemoveDownload(ctx context.Context, id string) error {
	sermonID, err := strconv.Atoi(id)
	if err != nil {
		fmt.Printf("Invalid id %q\n", id)
		return err
	}
	if err := a.core.RemoveDownload(ctx, sermonID); err != nil {
		fmt.Printf("Error: %v\n", err)
		return err
	}
	fmt.Printf("Removed download %d\n", sermonID)
	return nil
}

// Settings shows the current settings when called without arguments, or
// applies a single field change ("settings theme dark").
func (a *App) Settings(ctx context.Context, args []string) error {
	if len(args) == 0 {
		ud, err := a.core.UserData(ctx)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return err
		}
		s := ud.AppSettings
		fmt.Printf("notifications: %v\nauto_download_on_wifi: %v\nfont_size: %s\ntheme: %s\n",
			s.Notifications, s.AutoDownloadOnWifi, s.FontSize, s.Theme)
		return nil
	}
	if len(args) < 2 {
		fmt.Println("Usage: settings [<field> <value>]")
		return nil
	}

	var patch models.SettingsPatch
	field, value := args[0], args[1]
	switch field {
	case "notifications":
		v := value == "on" || value == "true"
		patch.Notifications = &v
	case "autodownload", "auto_download_on_wifi":
		v := value == "on" || value == "true"
		patch.AutoDownloadOnWifi = &v
	case "fontsize", "font_size":
		patch.FontSize = &value
	case "theme":
		patch.Theme = &value
	default:
		fmt.Printf("Unknown setting %q\n", field)
		return nil
	}

	if err := a.core.UpdateSettings(ctx, patch); err != nil {
		fmt.Printf("Error: %v\n", err)
		return err
	}
	fmt.Printf("Set %s to %s\n", field, value)
	return nil
}

// Track records one analytics interaction: content type, content id, action.
func (a *App) Track(ctx context.Context, args []string) error {
	contentID, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Printf("Invalid id %q\n", args[1])
		return err
	}
	if err := a.core.RecordEvent(ctx, args[0], contentID, args[2], nil); err != nil {
		fmt.Printf("Error: %v\n", err)
		return err
	}
	fmt.Printf("Tracked %s on %s %d (%d pending)\n", args[2], args[0], contentID, a.core.PendingEvents())
	return nil
}

// Flush pushes pending analytics now.
func (a *App) Flush(ctx context.Context) error {
	if err := a.core.FlushEvents(ctx); err != nil {
		fmt.Printf("Flush failed: %v\n", err)
		return err
	}
	fmt.Printf("Flushed, %d pending\n", a.core.PendingEvents())
	return nil
}

// ClearCache drops all cached content, leaving user data intact.
func (a *App) ClearCache(ctx context.Context) error {
	a.core.ClearCache(ctx)
	fmt.Println("Cache cleared")
	return nil
}
