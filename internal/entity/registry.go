package entity

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Info)
	registryMu sync.RWMutex
)

// Register adds an entity to the registry.
// Panics if an entity with the same key is already registered.
func Register(info Info) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[info.Key]; exists {
		panic(fmt.Sprintf("entity already registered: %s", info.Key))
	}
	if info.ListKey == "" {
		info.ListKey = info.Key
	}
	if info.Plural == "" {
		info.Plural = info.Label + "s"
	}
	registry[info.Key] = info
}

// Get returns an entity by key.
func Get(key string) (Info, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	info, ok := registry[key]
	return info, ok
}

// All returns every registered entity, sorted by group then key.
func All() []Info {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Info, 0, len(registry))
	for _, info := range registry {
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Key < result[j].Key
	})
	return result
}

// ByGroup returns the entities of one group, sorted by key.
func ByGroup(group string) []Info {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []Info
	for _, info := range registry {
		if info.Group == group {
			result = append(result, info)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// Groups returns the unique group names, sorted.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, info := range registry {
		seen[info.Group] = true
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Count returns the number of registered entities.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
