package memory

import (
	"sort"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"ai-recorder-be/internal/entity"
)

// SessionCollection is the source of truth for recorded sessions: an
// in-memory store that lives for the process lifetime. Entries never expire;
// they leave only through Delete. Stored sessions are treated as immutable,
// updates come in as fresh values through Save.
type SessionCollection struct {
	cache *cache.Cache
}

func NewSessionCollection() *SessionCollection {
	return &SessionCollection{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (c *SessionCollection) Save(session *entity.Session) {
	c.cache.Set(session.Id.String(), session, cache.NoExpiration)
}

func (c *SessionCollection) Get(id uuid.UUID) (*entity.Session, bool) {
	if x, found := c.cache.Get(id.String()); found {
		return x.(*entity.Session), true
	}
	return nil, false
}

func (c *SessionCollection) Delete(id uuid.UUID) bool {
	if _, found := c.cache.Get(id.String()); !found {
		return false
	}
	c.cache.Delete(id.String())
	return true
}

// List returns every session, newest first. The order is deterministic so
// ranking ties stay stable between calls.
func (c *SessionCollection) List() []*entity.Session {
	items := c.cache.Items()
	sessions := make([]*entity.Session, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, item.Object.(*entity.Session))
	}
	sortSessions(sessions)
	return sessions
}

// ListByUser returns the sessions owned by userId, newest first.
func (c *SessionCollection) ListByUser(userId uuid.UUID) []*entity.Session {
	items := c.cache.Items()
	sessions := make([]*entity.Session, 0, len(items))
	for _, item := range items {
		session := item.Object.(*entity.Session)
		if session.UserId == userId {
			sessions = append(sessions, session)
		}
	}
	sortSessions(sessions)
	return sessions
}

func (c *SessionCollection) Len() int {
	return c.cache.ItemCount()
}

func sortSessions(sessions []*entity.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].StartedAt.After(sessions[j].StartedAt)
		}
		return sessions[i].Id.String() < sessions[j].Id.String()
	})
}
