package syncer

import (
	"bytes"
	"reflect"

	json "github.com/goccy/go-json"
)

// JSONEqual compares two snapshots by their JSON encoding. It is a cheap
// approximation of structural equality: records must serialize with a
// stable field order (structs do; maps are sorted by the encoder), and it
// costs O(payload) per comparison.
func JSONEqual[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	ea, errA := json.Marshal(a)
	eb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return bytes.Equal(ea, eb)
}

// KeysEqual returns an EqualFunc that compares only the ordered record keys.
// Useful when records carry volatile fields that should not trigger commits.
func KeysEqual[T any](key func(T) string) EqualFunc[T] {
	return func(a, b []T) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if key(a[i]) != key(b[i]) {
				return false
			}
		}
		return true
	}
}
