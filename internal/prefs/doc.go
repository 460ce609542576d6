// Package prefs provides local key-value preference storage.
//
// A Store keeps small string values such as the auth token and the time it
// was stored. Backends are selected by URL scheme:
//
//	store, err := prefs.Open("file:///home/user/.config/listenmoe/prefs.json")
//	store, err := prefs.Open("sqlite:///home/user/.config/listenmoe/prefs.db")
//	store, err := prefs.Open("memory:")
//
// Set applies all values of the map together, the way a preference editor
// commits a batch of edits:
//
//	err := store.Set(map[string]string{"user_token": token, "last_auth": "1700000000"})
package prefs
