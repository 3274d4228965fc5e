package library

import (
	"github.com/nbd-wtf/go-nostr"
)

// GetFirstTag returns the value of the first tag named key.
func GetFirstTag(e nostr.Event, key string) (string, bool) {
	for _, tag := range e.Tags {
		if tag.StartsWith([]string{key}) {
			return tag.Value(), true
		}
	}
	return "", false
}

// TagMap flattens the key/value tags of a journal event. Tags without a value are skipped.
func TagMap(e nostr.Event) map[string]string {
	m := make(map[string]string, len(e.Tags))
	for _, tag := range e.Tags {
		if len(tag) < 2 {
			continue
		}
		if _, seen := m[tag[0]]; !seen {
			m[tag[0]] = tag[1]
		}
	}
	return m
}
