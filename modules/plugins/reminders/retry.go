package reminders

import (
	"sync"
	"time"

	redisCache "github.com/go-redis/cache"
	"github.com/pkg/errors"
)

const retryKeyPrefix = "lumi:reminders:retry:"

// RetryStore keeps the notifications of failed deliveries for the retry button
type RetryStore interface {
	Save(notification Notification, ttl time.Duration) error
	// Load returns false once the notification expired or was delivered
	Load(reminderID string) (Notification, bool, error)
	Delete(reminderID string) error
}

// RedisRetryStore keeps the notifications in redis, every shard can answer the retry button
type RedisRetryStore struct {
	codec *redisCache.Codec
}

func NewRedisRetryStore(codec *redisCache.Codec) *RedisRetryStore {
	return &RedisRetryStore{codec: codec}
}

func (s *RedisRetryStore) Save(notification Notification, ttl time.Duration) error {
	err := s.codec.Set(&redisCache.Item{
		Key:        retryKeyPrefix + notification.ReminderID,
		Object:     notification,
		Expiration: ttl,
	})
	return errors.Wrap(err, "saving retry notification failed")
}

func (s *RedisRetryStore) Load(reminderID string) (notification Notification, found bool, err error) {
	err = s.codec.Get(retryKeyPrefix+reminderID, &notification)
	if err == redisCache.ErrCacheMiss {
		return notification, false, nil
	}
	if err != nil {
		return notification, false, errors.Wrap(err, "loading retry notification failed")
	}
	return notification, true, nil
}

func (s *RedisRetryStore) Delete(reminderID string) error {
	err := s.codec.Delete(retryKeyPrefix + reminderID)
	if err == redisCache.ErrCacheMiss {
		return nil
	}
	return errors.Wrap(err, "deleting retry notification failed")
}

// MemoryRetryStore is used without redis, only the shard that failed the delivery knows the notification
type MemoryRetryStore struct {
	mutex   sync.Mutex
	now     func() time.Time
	entries map[string]memoryRetryEntry
}

type memoryRetryEntry struct {
	notification Notification
	expires      time.Time
}

func NewMemoryRetryStore(now func() time.Time) *MemoryRetryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryRetryStore{
		now:     now,
		entries: make(map[string]memoryRetryEntry),
	}
}

func (s *MemoryRetryStore) Save(notification Notification, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for id, entry := range s.entries {
		if !entry.expires.After(now) {
			delete(s.entries, id)
		}
	}
	s.entries[notification.ReminderID] = memoryRetryEntry{
		notification: notification,
		expires:      now.Add(ttl),
	}
	return nil
}

func (s *MemoryRetryStore) Load(reminderID string) (Notification, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.entries[reminderID]
	if !ok || !entry.expires.After(s.now()) {
		return Notification{}, false, nil
	}
	return entry.notification, true, nil
}

func (s *MemoryRetryStore) Delete(reminderID string) error {
	s.mutex.Lock()
	delete(s.entries, reminderID)
	s.mutex.Unlock()
	return nil
}
