package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"sqlchat-go/internal/model"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  []model.User
	err    error
	nextID uint
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	r.users = append(r.users, *u)
	return nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uint) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindWithPagination(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, 0, r.err
	}
	total := int64(len(r.users))
	if offset >= len(r.users) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(r.users) {
		end = len(r.users)
	}
	return append([]model.User(nil), r.users[offset:end]...), total, nil
}

// fakeConversationRepo 在内存中模拟 chatbot_history 表。
type fakeConversationRepo struct {
	mu     sync.Mutex
	turns  []model.ChatHistory
	owners map[string]uint
	clock  time.Time
	err    error
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		owners: make(map[string]uint),
		clock:  time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (r *fakeConversationRepo) ClaimOwner(_ context.Context, conv *model.Conversation) (uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	if owner, ok := r.owners[conv.ID]; ok {
		return owner, nil
	}
	r.owners[conv.ID] = conv.UserID
	return conv.UserID, nil
}

func (r *fakeConversationRepo) CreateTurn(_ context.Context, t *model.ChatHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.clock = r.clock.Add(time.Second)
	t.ID = uint(len(r.turns) + 1)
	t.CreatedAt = r.clock
	r.turns = append(r.turns, *t)
	return nil
}

func (r *fakeConversationRepo) FindTitle(_ context.Context, userID uint, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	for _, t := range r.turns {
		if t.UserID == userID && t.ConversationID == id {
			return t.Title, nil
		}
	}
	return "", model.ErrConversationNotFound
}

func (r *fakeConversationRepo) OwnedByOther(_ context.Context, userID uint, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if owner, ok := r.owners[id]; ok {
		return owner != userID, nil
	}
	for _, t := range r.turns {
		if t.ConversationID == id && t.UserID != userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeConversationRepo) ListByUser(_ context.Context, userID uint) ([]model.ConversationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	latest := make(map[string]model.ChatHistory)
	for _, t := range r.turns {
		if t.UserID != userID {
			continue
		}
		if cur, ok := latest[t.ConversationID]; !ok || t.ID > cur.ID {
			latest[t.ConversationID] = t
		}
	}
	rows := make([]model.ChatHistory, 0, len(latest))
	for _, t := range latest {
		rows = append(rows, t)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	out := make([]model.ConversationSummary, 0, len(rows))
	for _, t := range rows {
		out = append(out, model.ConversationSummary{ID: t.ConversationID, Title: t.Title})
	}
	return out, nil
}

func (r *fakeConversationRepo) FindHistory(_ context.Context, userID uint, id string) ([]model.ChatHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]model.ChatHistory, 0)
	for _, t := range r.turns {
		if t.UserID == userID && t.ConversationID == id {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type fakeTitleCache struct {
	mu     sync.Mutex
	titles map[string]string
}

func newFakeTitleCache() *fakeTitleCache {
	return &fakeTitleCache{titles: make(map[string]string)}
}

func cacheKey(userID uint, id string) string {
	return fmt.Sprintf("%d:%s", userID, id)
}

func (c *fakeTitleCache) Get(_ context.Context, userID uint, id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.titles[cacheKey(userID, id)]
	return t, ok
}

func (c *fakeTitleCache) Set(_ context.Context, userID uint, id, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.titles[cacheKey(userID, id)] = title
}

type fakeAuditRepo struct {
	audits    []model.QueryAudit
	lastLimit int
}

func (r *fakeAuditRepo) Create(_ context.Context, a *model.QueryAudit) error {
	r.audits = append(r.audits, *a)
	return nil
}

func (r *fakeAuditRepo) ListRecent(_ context.Context, limit int) ([]model.QueryAudit, error) {
	r.lastLimit = limit
	if limit > len(r.audits) {
		limit = len(r.audits)
	}
	return r.audits[:limit], nil
}
