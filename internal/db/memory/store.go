package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pitchfeed/internal/db"
	"pitchfeed/internal/models"
)

type eventKey struct {
	actor  string
	target string
	typ    models.EventType
}

// Store keeps every record in process. A single mutex serializes writers, so
// the ledger duplicate check and the counter updates it guards are one step.
type Store struct {
	mu            sync.RWMutex
	users         map[string]*models.User
	handles       map[string]string              // handle -> user id
	following     map[string]map[string]struct{} // follower -> followees
	followers     map[string]map[string]struct{} // followee -> followers
	pitches       map[string]*models.Pitch
	threads       map[string]*models.Thread
	comments      map[string]*models.Comment
	byPitch       map[string][]string // pitch id -> comment ids (arrival order)
	events        []*models.Event
	eventKeys     map[eventKey]struct{}
	notifications []*models.Notification
	now           func() time.Time
}

func New() *Store {
	return &Store{
		users:     make(map[string]*models.User),
		handles:   make(map[string]string),
		following: make(map[string]map[string]struct{}),
		followers: make(map[string]map[string]struct{}),
		pitches:   make(map[string]*models.Pitch),
		threads:   make(map[string]*models.Thread),
		comments:  make(map[string]*models.Comment),
		byPitch:   make(map[string][]string),
		eventKeys: make(map[eventKey]struct{}),
		now:       time.Now,
	}
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("user %s: %w", user.ID, db.ErrDuplicate)
	}
	if _, ok := s.handles[user.Handle]; ok {
		return fmt.Errorf("handle %s: %w", user.Handle, db.ErrDuplicate)
	}
	now := s.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	u := *user
	s.users[u.ID] = &u
	s.handles[u.Handle] = u.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, db.ErrNotFound)
	}
	out := *u
	return &out, nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// === Follows ===

func (s *Store) Follow(ctx context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[followerID]; !ok {
		return fmt.Errorf("user %s: %w", followerID, db.ErrNotFound)
	}
	if _, ok := s.users[followeeID]; !ok {
		return fmt.Errorf("user %s: %w", followeeID, db.ErrNotFound)
	}
	if _, ok := s.following[followerID][followeeID]; ok {
		return fmt.Errorf("follow %s -> %s: %w", followerID, followeeID, db.ErrDuplicate)
	}
	if s.following[followerID] == nil {
		s.following[followerID] = make(map[string]struct{})
	}
	if s.followers[followeeID] == nil {
		s.followers[followeeID] = make(map[string]struct{})
	}
	s.following[followerID][followeeID] = struct{}{}
	s.followers[followeeID][followerID] = struct{}{}
	return nil
}

func (s *Store) Unfollow(ctx context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.following[followerID][followeeID]; !ok {
		return fmt.Errorf("follow %s -> %s: %w", followerID, followeeID, db.ErrNotFound)
	}
	delete(s.following[followerID], followeeID)
	delete(s.followers[followeeID], followerID)
	return nil
}

func (s *Store) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.following[userID]), nil
}

func (s *Store) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.followers[userID]), nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// === Pitches & comments ===

func (s *Store) GetPitch(ctx context.Context, id string) (*models.Pitch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pitches[id]
	if !ok {
		return nil, fmt.Errorf("pitch %s: %w", id, db.ErrNotFound)
	}
	out := *p
	return &out, nil
}

func (s *Store) ListPitches(ctx context.Context, filter db.PitchFilter) ([]*models.Pitch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var include map[string]bool
	if filter.AuthorIDs != nil {
		include = make(map[string]bool, len(filter.AuthorIDs))
		for _, id := range filter.AuthorIDs {
			include[id] = true
		}
	}
	exclude := make(map[string]bool, len(filter.ExcludeAuthorIDs))
	for _, id := range filter.ExcludeAuthorIDs {
		exclude[id] = true
	}

	out := make([]*models.Pitch, 0)
	for _, p := range s.pitches {
		if include != nil && !include[p.UserID] {
			continue
		}
		if exclude[p.UserID] {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	// Newest first, same as the postgres store.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[id]
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", id, db.ErrNotFound)
	}
	return cloneThread(t), nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, db.ErrNotFound)
	}
	return cloneComment(c), nil
}

func (s *Store) ListComments(ctx context.Context, pitchID string) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPitch[pitchID]
	out := make([]*models.Comment, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneComment(s.comments[id]))
	}
	return out, nil
}

func cloneThread(t *models.Thread) *models.Thread {
	out := *t
	out.CommentIDs = append([]string(nil), t.CommentIDs...)
	return &out
}

func cloneComment(c *models.Comment) *models.Comment {
	out := *c
	out.ChildIDs = append([]string(nil), c.ChildIDs...)
	if c.ParentID != nil {
		parent := *c.ParentID
		out.ParentID = &parent
	}
	return &out
}

// === Ledger ===

func (s *Store) Commit(ctx context.Context, m db.Mutation, weights models.KarmaWeights) (*db.Outcome, error) {
	ev := m.Event
	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey{actor: ev.ActorID, target: ev.TargetID, typ: ev.Type}
	if _, ok := s.eventKeys[key]; ok {
		return nil, fmt.Errorf("event %s on %s by %s: %w", ev.Type, ev.TargetID, ev.ActorID, db.ErrDuplicate)
	}
	owner, ok := s.users[ev.OwnerID]
	if !ok {
		return nil, fmt.Errorf("owner %s: %w", ev.OwnerID, db.ErrNotFound)
	}

	// Validate everything before the first write.
	switch ev.Type {
	case models.EventPitchCreated:
		if m.Pitch == nil || m.Thread == nil {
			return nil, fmt.Errorf("pitch_created without pitch record")
		}
		if _, ok := s.pitches[m.Pitch.ID]; ok {
			return nil, fmt.Errorf("pitch %s: %w", m.Pitch.ID, db.ErrDuplicate)
		}
	case models.EventCommentCreated:
		if m.Comment == nil {
			return nil, fmt.Errorf("comment_created without comment record")
		}
		if err := s.checkCommentLocked(m.Comment); err != nil {
			return nil, err
		}
	case models.EventPitchLiked, models.EventPitchShared:
		if _, ok := s.pitches[ev.TargetID]; !ok {
			return nil, fmt.Errorf("pitch %s: %w", ev.TargetID, db.ErrNotFound)
		}
	case models.EventCommentLiked:
		if _, ok := s.comments[ev.TargetID]; !ok {
			return nil, fmt.Errorf("comment %s: %w", ev.TargetID, db.ErrNotFound)
		}
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}

	out := &db.Outcome{}
	eff := db.EffectOf(ev.Type)
	switch ev.Type {
	case models.EventPitchCreated:
		p := *m.Pitch
		t := cloneThread(m.Thread)
		s.pitches[p.ID] = &p
		s.threads[t.ID] = t
		out.Pitch = &p
	case models.EventCommentCreated:
		c := cloneComment(m.Comment)
		s.comments[c.ID] = c
		s.byPitch[c.PitchID] = append(s.byPitch[c.PitchID], c.ID)
		if c.ParentID == nil {
			t := s.threads[s.pitches[c.PitchID].ThreadID]
			t.CommentIDs = append(t.CommentIDs, c.ID)
		} else {
			parent := s.comments[*c.ParentID]
			parent.ChildIDs = append(parent.ChildIDs, c.ID)
		}
		out.Comment = cloneComment(c)
	case models.EventPitchLiked, models.EventPitchShared:
		p := s.pitches[ev.TargetID]
		p.LikeCount += eff.PitchLikes
		p.ShareCount += eff.PitchShares
		cp := *p
		out.Pitch = &cp
	case models.EventCommentLiked:
		c := s.comments[ev.TargetID]
		c.LikeCount += eff.CommentLikes
		out.Comment = cloneComment(c)
	}

	if eff.Owner != (models.Tally{}) {
		owner.SetTally(ev.Class, eff.Add(owner.Tally(ev.Class)), weights)
		owner.UpdatedAt = s.now().UTC()
	}

	stored := *ev
	stored.Seq = uint(len(s.events) + 1)
	s.events = append(s.events, &stored)
	s.eventKeys[key] = struct{}{}
	ev.Seq = stored.Seq

	evOut := stored
	ownerOut := *owner
	out.Event = &evOut
	out.Owner = &ownerOut
	return out, nil
}

func (s *Store) checkCommentLocked(c *models.Comment) error {
	p, ok := s.pitches[c.PitchID]
	if !ok {
		return fmt.Errorf("pitch %s: %w", c.PitchID, db.ErrNotFound)
	}
	if _, ok := s.threads[p.ThreadID]; !ok {
		return fmt.Errorf("thread %s: %w", p.ThreadID, db.ErrNotFound)
	}
	if _, ok := s.comments[c.ID]; ok {
		return fmt.Errorf("comment %s: %w", c.ID, db.ErrDuplicate)
	}
	if c.ParentID != nil {
		parent, ok := s.comments[*c.ParentID]
		if !ok || parent.PitchID != c.PitchID {
			return fmt.Errorf("parent comment %s on pitch %s: %w", *c.ParentID, c.PitchID, db.ErrNotFound)
		}
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Event, len(s.events))
	for i, ev := range s.events {
		cp := *ev
		out[i] = &cp
	}
	return out, nil
}

func (s *Store) Rebuild(ctx context.Context, c *db.Counters, weights models.KarmaWeights) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		for _, class := range db.Classes {
			u.SetTally(class, c.Users[id][class], weights)
		}
	}
	for id, p := range s.pitches {
		p.LikeCount = c.PitchLikes[id]
		p.ShareCount = c.PitchShares[id]
	}
	for id, cm := range s.comments {
		cm.LikeCount = c.CommentLikes[id]
	}
	return nil
}

// === Notifications ===

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.ID = uint(len(s.notifications) + 1)
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	cp := *n
	s.notifications = append(s.notifications, &cp)
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Notification, 0)
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.UserID != userID {
			continue
		}
		cp := *n
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID string, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == 0 || int(id) > len(s.notifications) || s.notifications[id-1].UserID != userID {
		return fmt.Errorf("notification %d: %w", id, db.ErrNotFound)
	}
	s.notifications[id-1].IsRead = true
	return nil
}

var _ db.Store = (*Store)(nil)
