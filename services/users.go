package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// User is the subset of the stored user document the gateway surfaces.
type User struct {
	ID          string `json:"_id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Username    string `json:"username,omitempty"`
}

// Users resolves user documents through the store facade. Bulk lookups
// go through an optional Redis read-through cache: display names are
// re-resolved on every chat render, so the same handful of ids is
// fetched constantly.
type Users struct {
	store *Store
	cache *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewUsers(store *Store, cache *redis.Client, log *zap.Logger) *Users {
	return &Users{store: store, cache: cache, ttl: 5 * time.Minute, log: log}
}

// Get fetches one user document by id.
func (u *Users) Get(ctx context.Context, uid string) (json.RawMessage, error) {
	return u.store.Get(ctx, RequestCollectionID, "users", uid)
}

// GetByEmail fetches a user document by email field.
func (u *Users) GetByEmail(ctx context.Context, email string) (json.RawMessage, error) {
	return u.store.Get(ctx, RequestDataByField, "users", "email,"+email)
}

// Create writes a new user document.
func (u *Users) Create(ctx context.Context, uid, email, displayName string) (json.RawMessage, error) {
	doc := struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	}{Email: email, DisplayName: displayName}
	return u.store.Post(ctx, RequestCollectionID, "users,"+uid, doc)
}

// Update overwrites fields on an existing user document and invalidates
// the cache entry.
func (u *Users) Update(ctx context.Context, uid string, data json.RawMessage) (json.RawMessage, error) {
	out, err := u.store.Update(ctx, RequestCollectionID, "users,"+uid, data)
	if err != nil {
		return nil, err
	}
	if u.cache != nil {
		if err := u.cache.Del(ctx, userCacheKey(uid)).Err(); err != nil {
			u.log.Warn("invalidate user cache", zap.String("uid", uid), zap.Error(err))
		}
	}
	return out, nil
}

// BulkGet resolves many users by id, serving what it can from cache and
// fetching the rest from the store in one bulk request. Cache failures
// degrade to a plain fetch.
func (u *Users) BulkGet(ctx context.Context, ids []string) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found := make(map[string]User, len(ids))
	missing := make([]string, 0, len(ids))

	if u.cache != nil {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = userCacheKey(id)
		}
		values, err := u.cache.MGet(ctx, keys...).Result()
		if err != nil {
			u.log.Warn("user cache read", zap.Error(err))
			missing = append(missing, ids...)
		} else {
			for i, v := range values {
				s, ok := v.(string)
				if !ok {
					missing = append(missing, ids[i])
					continue
				}
				var user User
				if err := json.Unmarshal([]byte(s), &user); err != nil {
					missing = append(missing, ids[i])
					continue
				}
				found[ids[i]] = user
			}
		}
	} else {
		missing = append(missing, ids...)
	}

	if len(missing) > 0 {
		req := struct {
			DocumentsID []string `json:"documents_id"`
		}{DocumentsID: missing}
		raw, err := u.store.Post(ctx, RequestBulkDocsByID, "users", req)
		if err != nil {
			return nil, fmt.Errorf("bulk get users: %w", err)
		}
		var fetched []User
		if err := json.Unmarshal(raw, &fetched); err != nil {
			return nil, fmt.Errorf("bulk get users: decode: %w", err)
		}
		for _, user := range fetched {
			found[user.ID] = user
			if u.cache != nil {
				payload, err := json.Marshal(user)
				if err != nil {
					continue
				}
				if err := u.cache.Set(ctx, userCacheKey(user.ID), payload, u.ttl).Err(); err != nil {
					u.log.Warn("user cache write", zap.String("uid", user.ID), zap.Error(err))
				}
			}
		}
	}

	// Preserve request order; unknown ids are simply absent.
	users := make([]User, 0, len(found))
	for _, id := range ids {
		if user, ok := found[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

// GetTelegram fetches the linkage document for a telegram user.
func (u *Users) GetTelegram(ctx context.Context, telegramUID string) (json.RawMessage, error) {
	return u.store.Get(ctx, RequestCollectionID, "telegram_users", telegramUID)
}

// LinkTelegram records which local user a telegram identity maps to.
func (u *Users) LinkTelegram(ctx context.Context, telegramUID, localUserID string) (json.RawMessage, error) {
	doc := struct {
		UserID string `json:"user_id"`
	}{UserID: localUserID}
	return u.store.Post(ctx, RequestCollectionID, "telegram_users,"+telegramUID, doc)
}

func userCacheKey(uid string) string {
	return "gateway:user:" + uid
}
