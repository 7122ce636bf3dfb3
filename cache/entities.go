package cache

import (
	"sync"

	"github.com/Seklfreak/Lumi/metrics"
)

// Kind names a family of cached entities
type Kind string

const (
	KindGuild    Kind = "guild"
	KindUser     Kind = "user"
	KindReminder Kind = "reminder"
)

// Entities is the process local entity cache shared by all data managers.
// Entries never expire, they are only removed by Delete (local writes or
// invalidations received from other shards) or by restarting the process.
// Entities are stored as values, a Get hands out a copy of the snapshot.
type Entities struct {
	mutex   sync.RWMutex
	entries map[Kind]map[string]interface{}
}

func NewEntities() *Entities {
	return &Entities{
		entries: make(map[Kind]map[string]interface{}),
	}
}

func (e *Entities) Get(kind Kind, id string) (entity interface{}, ok bool) {
	e.mutex.RLock()
	entity, ok = e.entries[kind][id]
	e.mutex.RUnlock()

	if ok {
		metrics.CacheLookups.WithLabelValues(string(kind), "hit").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues(string(kind), "miss").Inc()
	}
	return entity, ok
}

func (e *Entities) Set(kind Kind, id string, entity interface{}) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	bucket, ok := e.entries[kind]
	if !ok {
		bucket = make(map[string]interface{})
		e.entries[kind] = bucket
	}
	bucket[id] = entity
}

// Delete removes the entry, returns false if there was nothing cached
func (e *Entities) Delete(kind Kind, id string) bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if _, ok := e.entries[kind][id]; !ok {
		return false
	}
	delete(e.entries[kind], id)
	return true
}

// Filter returns every cached entity of kind matching keep
func (e *Entities) Filter(kind Kind, keep func(entity interface{}) bool) []interface{} {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	result := make([]interface{}, 0)
	for _, entity := range e.entries[kind] {
		if keep(entity) {
			result = append(result, entity)
		}
	}
	return result
}

// DeleteWhere drops every entity of kind matching drop and returns how many were removed
func (e *Entities) DeleteWhere(kind Kind, drop func(entity interface{}) bool) int {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	removed := 0
	for id, entity := range e.entries[kind] {
		if drop(entity) {
			delete(e.entries[kind], id)
			removed++
		}
	}
	return removed
}

func (e *Entities) Len(kind Kind) int {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return len(e.entries[kind])
}
