package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AuthorSessionKey returns the cache key for an author's login session
func (r *CacheKeyStruct) AuthorSessionKey(authorID int) string {
	return fmt.Sprintf("login:%d", authorID)
}

// PageLockKey returns the cache key guarding a page's editor session
func (r *CacheKeyStruct) PageLockKey(pageID string) string {
	return fmt.Sprintf("page:%s:editor_lock", pageID)
}

// PagePayloadKey returns the cache key for a published page's payload
func (r *CacheKeyStruct) PagePayloadKey(pageID string) string {
	return fmt.Sprintf("page:%s:payload", pageID)
}

// PageDirtyKey returns the cache key mirroring a page's unsaved-changes flag
func (r *CacheKeyStruct) PageDirtyKey(pageID string) string {
	return fmt.Sprintf("page:%s:dirty", pageID)
}

// ActivityChannel returns the Redis PubSub channel for the live activity feed
func (r *CacheKeyStruct) ActivityChannel() string {
	return "activity:events"
}

var CacheKey = NewCacheKeyStruct()
