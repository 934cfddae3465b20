package services

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"pitchfeed/internal/db"
	"pitchfeed/internal/models"

	"github.com/google/uuid"
)

// Ordering picks how siblings are visited in a thread walk.
type Ordering string

const (
	OrderChronological Ordering = "chronological"
	OrderPopularity    Ordering = "popularity"
)

// ParseOrdering defaults to chronological for an empty string.
func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderChronological:
		return OrderChronological, nil
	case OrderPopularity:
		return OrderPopularity, nil
	}
	return "", invalidInput("unknown ordering %q", s)
}

// compare is a total order: ids break every remaining tie.
func (o Ordering) compare(a, b *models.Comment) int {
	if o == OrderPopularity && a.LikeCount != b.LikeCount {
		if a.LikeCount > b.LikeCount {
			return -1
		}
		return 1
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// ThreadService owns comments and their nesting.
type ThreadService struct {
	store      db.Store
	karma      *KarmaService
	notifier   *NotificationService
	maxComment int
	now        func() time.Time
}

func NewThreadService(store db.Store, karma *KarmaService, notifier *NotificationService, maxComment int) *ThreadService {
	return &ThreadService{store: store, karma: karma, notifier: notifier, maxComment: maxComment, now: time.Now}
}

// CreateComment adds a comment to pitchID, under parentID when it is set.
// The parent must already exist on the same pitch, so no cycle can form.
func (s *ThreadService) CreateComment(ctx context.Context, pitchID, authorID, content string, parentID *string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidInput("comment is empty")
	}
	if utf8.RuneCountInString(content) > s.maxComment {
		return nil, invalidInput("comment is longer than %d characters", s.maxComment)
	}
	if parentID != nil && strings.TrimSpace(*parentID) == "" {
		parentID = nil
	}

	if _, err := s.store.GetUser(ctx, authorID); err != nil {
		return nil, translate(err)
	}
	pitch, err := s.store.GetPitch(ctx, pitchID)
	if err != nil {
		return nil, translate(err)
	}
	var parent *models.Comment
	if parentID != nil {
		parent, err = s.store.GetComment(ctx, *parentID)
		if err != nil {
			return nil, translate(err)
		}
		if parent.PitchID != pitchID {
			return nil, translate(db.ErrNotFound)
		}
	}

	comment := &models.Comment{
		ID:        uuid.NewString(),
		PitchID:   pitchID,
		UserID:    authorID,
		ParentID:  parentID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	out, err := s.karma.Record(ctx, db.Mutation{
		Event: &models.Event{
			ActorID:  authorID,
			TargetID: comment.ID,
			Type:     models.EventCommentCreated,
			OwnerID:  authorID,
			PitchID:  pitchID,
			Class:    pitch.Asset.Class,
		},
		Comment: comment,
	})
	if err != nil {
		return nil, err
	}

	if parent != nil {
		s.notifier.Notify(&models.Notification{UserID: parent.UserID, ActorID: authorID, Type: models.NotificationReply, TargetID: comment.ID})
	} else {
		s.notifier.Notify(&models.Notification{UserID: pitch.UserID, ActorID: authorID, Type: models.NotificationComment, TargetID: comment.ID})
	}
	return out.Comment, nil
}

// LikeComment records byUserID's like on commentID. A second like by the
// same user fails with ErrDuplicateEvent.
func (s *ThreadService) LikeComment(ctx context.Context, commentID, byUserID string) (int, error) {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return 0, translate(err)
	}
	if _, err := s.store.GetUser(ctx, byUserID); err != nil {
		return 0, translate(err)
	}
	pitch, err := s.store.GetPitch(ctx, comment.PitchID)
	if err != nil {
		return 0, translate(err)
	}

	out, err := s.karma.Record(ctx, db.Mutation{Event: &models.Event{
		ActorID:  byUserID,
		TargetID: commentID,
		Type:     models.EventCommentLiked,
		OwnerID:  comment.UserID,
		PitchID:  comment.PitchID,
		Class:    pitch.Asset.Class,
	}})
	if err != nil {
		return 0, err
	}
	s.notifier.Notify(&models.Notification{UserID: comment.UserID, ActorID: byUserID, Type: models.NotificationLike, TargetID: commentID})
	return out.Comment.LikeCount, nil
}

// forest is one consistent read of a pitch's comments.
type forest struct {
	roots    []string
	comments map[string]*models.Comment
}

func (s *ThreadService) loadForest(ctx context.Context, pitch *models.Pitch) (*forest, error) {
	thread, err := s.store.GetThread(ctx, pitch.ThreadID)
	if err != nil {
		return nil, translate(err)
	}
	list, err := s.store.ListComments(ctx, pitch.ID)
	if err != nil {
		return nil, translate(err)
	}
	f := &forest{roots: thread.CommentIDs, comments: make(map[string]*models.Comment, len(list))}
	for _, c := range list {
		f.comments[c.ID] = c
	}
	return f, nil
}

// sorted resolves ids and orders them; ids missing from the read are skipped.
func (f *forest) sorted(ids []string, order Ordering) []*models.Comment {
	out := make([]*models.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := f.comments[id]; ok {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, order.compare)
	return out
}

// walk visits the subtrees under ids depth-first, pre-order, with an
// explicit stack. Each comment is yielded at most once.
func (f *forest) walk(ids []string, order Ordering) iter.Seq[*models.Comment] {
	return func(yield func(*models.Comment) bool) {
		seen := make(map[string]bool, len(f.comments))
		stack := f.sorted(ids, order)
		slices.Reverse(stack)
		for len(stack) > 0 {
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			if !yield(c) {
				return
			}
			children := f.sorted(c.ChildIDs, order)
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, children[i])
			}
		}
	}
}

// GetThread returns a restartable walk over the comments of pitchID. The
// comments are read once; ranging the sequence again replays that read.
func (s *ThreadService) GetThread(ctx context.Context, pitchID string, order Ordering) (iter.Seq[*models.Comment], error) {
	if order != OrderChronological && order != OrderPopularity {
		return nil, invalidInput("unknown ordering %q", order)
	}
	pitch, err := s.store.GetPitch(ctx, pitchID)
	if err != nil {
		return nil, translate(err)
	}
	f, err := s.loadForest(ctx, pitch)
	if err != nil {
		return nil, err
	}
	return f.walk(f.roots, order), nil
}

// CountDescendants counts replies at every depth below id. id may name a
// comment, a thread or a pitch; the latter two count the whole thread.
func (s *ThreadService) CountDescendants(ctx context.Context, id string) (int, error) {
	var (
		pitch *models.Pitch
		start []string
	)
	comment, err := s.store.GetComment(ctx, id)
	switch {
	case err == nil:
		if pitch, err = s.store.GetPitch(ctx, comment.PitchID); err != nil {
			return 0, translate(err)
		}
		start = comment.ChildIDs
	case errors.Is(err, db.ErrNotFound):
		if pitch, err = s.resolveRoot(ctx, id); err != nil {
			return 0, err
		}
	default:
		return 0, translate(err)
	}

	f, err := s.loadForest(ctx, pitch)
	if err != nil {
		return 0, err
	}
	if comment == nil {
		start = f.roots
	} else if fresh, ok := f.comments[comment.ID]; ok {
		start = fresh.ChildIDs
	}

	n := 0
	for range f.walk(start, OrderChronological) {
		n++
	}
	return n, nil
}

// resolveRoot finds the pitch owning a thread id or a pitch id.
func (s *ThreadService) resolveRoot(ctx context.Context, id string) (*models.Pitch, error) {
	if thread, err := s.store.GetThread(ctx, id); err == nil {
		p, err := s.store.GetPitch(ctx, thread.PitchID)
		return p, translate(err)
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, translate(err)
	}
	p, err := s.store.GetPitch(ctx, id)
	return p, translate(err)
}
