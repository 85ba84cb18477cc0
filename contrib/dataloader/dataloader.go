// Package dataloader provides generic helpers for batch loading related
// instances: deduplicating and chunking keys, and lining the results of a
// batched query back up with the instances that requested them.
//
// # Basic Usage
//
// A batched lookup of many-to-one relationships loads every referenced row
// with a single IN query and orders the result by the foreign keys:
//
//	keys := dataloader.Unique(ownerIDs)
//	owners, err := loadUsers(ctx, keys)
//	if err != nil {
//	    return err
//	}
//	ordered := dataloader.OrderByKeysNoError(ownerIDs, owners, func(u *User) int { return u.ID })
//
// One-to-many relationships group the loaded rows by foreign key:
//
//	pets, err := loadPetsByOwner(ctx, userIDs)
//	grouped := dataloader.GroupByKey(pets, func(p *Pet) int { return p.OwnerID })
//	ordered := dataloader.OrderGroupsByKeys(userIDs, grouped)
//	// ordered[i] holds the pets of userIDs[i]
package dataloader

import "errors"

// ErrNotFound is returned when a key is missing from a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// OrderByKeys reorders values to match the order of keys. Missing values
// are represented as zero values with an ErrNotFound error at their index.
// Keys may repeat, in which case the value is repeated too.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		k := keyFn(v)
		if _, ok := lookup[k]; !ok {
			lookup[k] = v
		}
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// OrderByKeysNoError is like OrderByKeys, but returns zero values for
// missing keys without errors. Use it for optional relationships.
func OrderByKeysNoError[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) []V {
	result, _ := OrderByKeys(keys, values, keyFn)
	return result
}

// GroupByKey groups values by key, keeping their order within each group.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys returns the groups of keys, in order. Keys without a
// group get an empty, non-nil slice.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = append(make([]V, 0, len(groups[key])), groups[key]...)
	}
	return result
}

// Unique returns the keys without duplicates, in first-seen order.
func Unique[K comparable](keys []K) []K {
	seen := make(map[K]struct{}, len(keys))
	result := make([]K, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, k)
	}
	return result
}

// Chunk splits keys into consecutive batches of at most size keys. A size
// below 1 returns a single batch.
func Chunk[K any](keys []K, size int) [][]K {
	if len(keys) == 0 {
		return nil
	}
	if size < 1 || size >= len(keys) {
		return [][]K{keys}
	}
	batches := make([][]K, 0, (len(keys)+size-1)/size)
	for size < len(keys) {
		keys, batches = keys[size:], append(batches, keys[:size:size])
	}
	return append(batches, keys)
}
