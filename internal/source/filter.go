package source

import (
	"fmt"

	"github.com/mediumroast/mrcli/api/schemas"
)

// KeyFunc extracts the display name and id of an entity.
type KeyFunc[T any] func(T) (string, schemas.ID)

func CompanyKey(c schemas.Company) (string, schemas.ID)         { return c.Name, c.ID }
func InteractionKey(i schemas.Interaction) (string, schemas.ID) { return i.Name, i.ID }
func StudyKey(s schemas.Study) (string, schemas.ID)             { return s.Name, s.ID }

// Filter keeps the items matching byName and byID. Empty criteria match everything.
// When a criterion is set and nothing matches, the error wraps schemas.ErrNotFound.
func Filter[T any](items []T, byName, byID string, key KeyFunc[T]) ([]T, error) {
	if byName == "" && byID == "" {
		return items, nil
	}
	var out []T
	for _, it := range items {
		name, id := key(it)
		if byName != "" && name != byName {
			continue
		}
		if byID != "" && string(id) != byID {
			continue
		}
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no entity with %s: %w", describe(byName, byID), schemas.ErrNotFound)
	}
	return out, nil
}

// Find returns the single item whose name or id equals key.
func Find[T any](items []T, key string, keyOf KeyFunc[T]) (T, error) {
	for _, it := range items {
		if name, id := keyOf(it); name == key || string(id) == key {
			return it, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%q: %w", key, schemas.ErrNotFound)
}

func describe(byName, byID string) string {
	switch {
	case byName != "" && byID != "":
		return fmt.Sprintf("name %q and id %q", byName, byID)
	case byName != "":
		return fmt.Sprintf("name %q", byName)
	default:
		return fmt.Sprintf("id %q", byID)
	}
}
