package redis

import "fmt"

// Key construction helpers

// StatusKey returns the key for the live status of a bridge (hash)
// Pattern: lumen:status:{device}
func StatusKey(device string) string {
	return fmt.Sprintf("lumen:status:%s", device)
}

// EventsKey returns the key for the recent broker events of a bridge (list)
// Pattern: lumen:events:{device}
func EventsKey(device string) string {
	return fmt.Sprintf("lumen:events:%s", device)
}
