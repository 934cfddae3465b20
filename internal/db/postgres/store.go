package postgres

import (
	"context"
	"errors"
	"fmt"

	"pitchfeed/internal/db"
	"pitchfeed/internal/models"

	"gorm.io/gorm"
)

// Store implements db.Store on PostgreSQL. Every Commit runs in a single
// transaction; the unique index on the ledger rejects duplicate events and
// row-level UPDATE locks serialize concurrent counter writes.
type Store struct {
	db *gorm.DB
}

func New(conn *gorm.DB) *Store {
	return &Store{db: conn}
}

func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, db.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, db.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error, "user "+user.Handle)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user "+id)
	}
	return &user, nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) ([]*models.User, error) {
	var users []*models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, translate(err, "users")
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := s.db.WithContext(ctx).Order("id").Find(&users).Error
	return users, translate(err, "users")
}

// === Follows ===

func (s *Store) Follow(ctx context.Context, followerID, followeeID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id IN ?", []string{followerID, followeeID}).Count(&count).Error; err != nil {
			return err
		}
		if count != 2 {
			return fmt.Errorf("follow %s -> %s: %w", followerID, followeeID, db.ErrNotFound)
		}
		follow := models.Follow{FollowerID: followerID, FolloweeID: followeeID}
		return translate(tx.Create(&follow).Error, "follow")
	})
}

func (s *Store) Unfollow(ctx context.Context, followerID, followeeID string) error {
	res := s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("follow %s -> %s: %w", followerID, followeeID, db.ErrNotFound)
	}
	return nil
}

func (s *Store) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Order("followee_id ASC").
		Pluck("followee_id", &ids).Error
	return ids, err
}

func (s *Store) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("followee_id = ?", userID).
		Order("follower_id ASC").
		Pluck("follower_id", &ids).Error
	return ids, err
}

// === Pitches & comments ===

func (s *Store) GetPitch(ctx context.Context, id string) (*models.Pitch, error) {
	var pitch models.Pitch
	if err := s.db.WithContext(ctx).First(&pitch, "id = ?", id).Error; err != nil {
		return nil, translate(err, "pitch "+id)
	}
	return &pitch, nil
}

func (s *Store) ListPitches(ctx context.Context, filter db.PitchFilter) ([]*models.Pitch, error) {
	pitches := make([]*models.Pitch, 0)
	if filter.AuthorIDs != nil && len(filter.AuthorIDs) == 0 {
		return pitches, nil
	}

	query := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if filter.AuthorIDs != nil {
		query = query.Where("user_id IN ?", filter.AuthorIDs)
	}
	if len(filter.ExcludeAuthorIDs) > 0 {
		query = query.Where("user_id NOT IN ?", filter.ExcludeAuthorIDs)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	err := query.Find(&pitches).Error
	return pitches, err
}

func (s *Store) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	var thread models.Thread
	if err := s.db.WithContext(ctx).First(&thread, "id = ?", id).Error; err != nil {
		return nil, translate(err, "thread "+id)
	}
	return &thread, nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, translate(err, "comment "+id)
	}
	return &comment, nil
}

func (s *Store) ListComments(ctx context.Context, pitchID string) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := s.db.WithContext(ctx).
		Where("pitch_id = ?", pitchID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

// === Ledger ===

type classColumns struct {
	pitches, likes, shares, karma string
}

func columnsFor(class models.AssetClass) classColumns {
	if class == models.AssetCrypto {
		return classColumns{"total_crypto_pitches", "total_crypto_likes", "total_crypto_shares", "crypto_karma"}
	}
	return classColumns{"total_stock_pitches", "total_stock_likes", "total_stock_shares", "stock_karma"}
}

func (s *Store) Commit(ctx context.Context, m db.Mutation, weights models.KarmaWeights) (*db.Outcome, error) {
	ev := m.Event
	out := &db.Outcome{}
	eff := db.EffectOf(ev.Type)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Ledger entry; the unique (actor, target, type) index rejects repeats.
		if err := tx.Create(ev).Error; err != nil {
			return translate(err, fmt.Sprintf("event %s on %s by %s", ev.Type, ev.TargetID, ev.ActorID))
		}

		// 2. The record or counter the event targets.
		switch ev.Type {
		case models.EventPitchCreated:
			if m.Pitch == nil || m.Thread == nil {
				return fmt.Errorf("pitch_created without pitch record")
			}
			if err := tx.Create(m.Pitch).Error; err != nil {
				return translate(err, "pitch "+m.Pitch.ID)
			}
			if err := tx.Create(m.Thread).Error; err != nil {
				return translate(err, "thread "+m.Thread.ID)
			}
			out.Pitch = m.Pitch
		case models.EventCommentCreated:
			if m.Comment == nil {
				return fmt.Errorf("comment_created without comment record")
			}
			comment, err := insertComment(tx, m.Comment)
			if err != nil {
				return err
			}
			out.Comment = comment
		case models.EventPitchLiked, models.EventPitchShared:
			res := tx.Model(&models.Pitch{}).Where("id = ?", ev.TargetID).UpdateColumns(map[string]interface{}{
				"like_count":  gorm.Expr("like_count + ?", eff.PitchLikes),
				"share_count": gorm.Expr("share_count + ?", eff.PitchShares),
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("pitch %s: %w", ev.TargetID, db.ErrNotFound)
			}
			var pitch models.Pitch
			if err := tx.First(&pitch, "id = ?", ev.TargetID).Error; err != nil {
				return translate(err, "pitch "+ev.TargetID)
			}
			out.Pitch = &pitch
		case models.EventCommentLiked:
			res := tx.Model(&models.Comment{}).Where("id = ?", ev.TargetID).
				UpdateColumn("like_count", gorm.Expr("like_count + ?", eff.CommentLikes))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("comment %s: %w", ev.TargetID, db.ErrNotFound)
			}
			var comment models.Comment
			if err := tx.First(&comment, "id = ?", ev.TargetID).Error; err != nil {
				return translate(err, "comment "+ev.TargetID)
			}
			out.Comment = &comment
		default:
			return fmt.Errorf("unknown event type %q", ev.Type)
		}

		// 3. Owner counters, then karma recomputed from the locked row.
		owner, err := applyOwner(tx, ev, eff, weights)
		if err != nil {
			return err
		}
		out.Owner = owner
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Event = ev
	return out, nil
}

func insertComment(tx *gorm.DB, c *models.Comment) (*models.Comment, error) {
	var pitch models.Pitch
	if err := tx.Select("id", "thread_id").First(&pitch, "id = ?", c.PitchID).Error; err != nil {
		return nil, translate(err, "pitch "+c.PitchID)
	}
	if c.ParentID != nil {
		var n int64
		if err := tx.Model(&models.Comment{}).Where("id = ? AND pitch_id = ?", *c.ParentID, c.PitchID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("parent comment %s on pitch %s: %w", *c.ParentID, c.PitchID, db.ErrNotFound)
		}
	}
	if err := tx.Create(c).Error; err != nil {
		return nil, translate(err, "comment "+c.ID)
	}

	// array_append under the row lock serializes concurrent replies.
	var res *gorm.DB
	if c.ParentID == nil {
		res = tx.Model(&models.Thread{}).Where("id = ?", pitch.ThreadID).
			UpdateColumn("comment_ids", gorm.Expr("array_append(comment_ids, ?)", c.ID))
	} else {
		res = tx.Model(&models.Comment{}).Where("id = ?", *c.ParentID).
			UpdateColumn("child_ids", gorm.Expr("array_append(child_ids, ?)", c.ID))
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return c, nil
}

func applyOwner(tx *gorm.DB, ev *models.Event, eff db.Effect, weights models.KarmaWeights) (*models.User, error) {
	cols := columnsFor(ev.Class)
	if eff.Owner != (models.Tally{}) {
		res := tx.Model(&models.User{}).Where("id = ?", ev.OwnerID).UpdateColumns(map[string]interface{}{
			cols.pitches: gorm.Expr(cols.pitches+" + ?", eff.Owner.Pitches),
			cols.likes:   gorm.Expr(cols.likes+" + ?", eff.Owner.Likes),
			cols.shares:  gorm.Expr(cols.shares+" + ?", eff.Owner.Shares),
		})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, fmt.Errorf("owner %s: %w", ev.OwnerID, db.ErrNotFound)
		}
	}

	var owner models.User
	if err := tx.First(&owner, "id = ?", ev.OwnerID).Error; err != nil {
		return nil, translate(err, "owner "+ev.OwnerID)
	}
	if eff.Owner == (models.Tally{}) {
		return &owner, nil
	}
	owner.SetTally(ev.Class, owner.Tally(ev.Class), weights)
	karma := owner.StockKarma
	if ev.Class == models.AssetCrypto {
		karma = owner.CryptoKarma
	}
	if err := tx.Model(&models.User{}).Where("id = ?", owner.ID).UpdateColumn(cols.karma, karma).Error; err != nil {
		return nil, err
	}
	return &owner, nil
}

func (s *Store) ListEvents(ctx context.Context) ([]*models.Event, error) {
	var events []*models.Event
	err := s.db.WithContext(ctx).Order("seq ASC").Find(&events).Error
	return events, err
}

func (s *Store) Rebuild(ctx context.Context, c *db.Counters, weights models.KarmaWeights) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		zeroUser := map[string]interface{}{}
		for _, class := range db.Classes {
			cols := columnsFor(class)
			zeroUser[cols.pitches], zeroUser[cols.likes], zeroUser[cols.shares], zeroUser[cols.karma] = 0, 0, 0, 0
		}
		if err := all.Model(&models.User{}).UpdateColumns(zeroUser).Error; err != nil {
			return err
		}
		if err := all.Model(&models.Pitch{}).UpdateColumns(map[string]interface{}{"like_count": 0, "share_count": 0}).Error; err != nil {
			return err
		}
		if err := all.Model(&models.Comment{}).UpdateColumn("like_count", 0).Error; err != nil {
			return err
		}

		for id, byClass := range c.Users {
			var u models.User
			updates := map[string]interface{}{}
			for _, class := range db.Classes {
				t := byClass[class]
				u.SetTally(class, t, weights)
				cols := columnsFor(class)
				updates[cols.pitches], updates[cols.likes], updates[cols.shares] = t.Pitches, t.Likes, t.Shares
			}
			updates["stock_karma"], updates["crypto_karma"] = u.StockKarma, u.CryptoKarma
			if err := tx.Model(&models.User{}).Where("id = ?", id).UpdateColumns(updates).Error; err != nil {
				return err
			}
		}
		for id, n := range c.PitchLikes {
			if err := tx.Model(&models.Pitch{}).Where("id = ?", id).UpdateColumn("like_count", n).Error; err != nil {
				return err
			}
		}
		for id, n := range c.PitchShares {
			if err := tx.Model(&models.Pitch{}).Where("id = ?", id).UpdateColumn("share_count", n).Error; err != nil {
				return err
			}
		}
		for id, n := range c.CommentLikes {
			if err := tx.Model(&models.Comment{}).Where("id = ?", id).UpdateColumn("like_count", n).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// === Notifications ===

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	var out []*models.Notification
	query := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&out).Error
	return out, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID string, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("notification %d: %w", id, db.ErrNotFound)
	}
	return nil
}

var _ db.Store = (*Store)(nil)
