package models

import (
	"time"
)

type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Handle       string    `gorm:"uniqueIndex;size:50;not null" json:"handle"`
	DisplayName  string    `gorm:"size:100" json:"display_name"`
	Bio          string    `gorm:"size:200" json:"bio"`
	ProfileImage string    `json:"profile_image"`
	Deactivated  bool      `gorm:"default:false" json:"deactivated"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Reputation counters. Written only through the event ledger.
	StockKarma         int `gorm:"default:0;not null" json:"stock_karma"`
	TotalStockPitches  int `gorm:"default:0;not null" json:"total_stock_pitches"`
	TotalStockLikes    int `gorm:"default:0;not null" json:"total_stock_likes"`
	TotalStockShares   int `gorm:"default:0;not null" json:"total_stock_shares"`
	CryptoKarma        int `gorm:"default:0;not null" json:"crypto_karma"`
	TotalCryptoPitches int `gorm:"default:0;not null" json:"total_crypto_pitches"`
	TotalCryptoLikes   int `gorm:"default:0;not null" json:"total_crypto_likes"`
	TotalCryptoShares  int `gorm:"default:0;not null" json:"total_crypto_shares"`
}

// Karma returns the combined stock and crypto karma.
func (u *User) Karma() int {
	return u.StockKarma + u.CryptoKarma
}

// Tally is the set of counters a single asset class contributes to a user.
type Tally struct {
	Pitches int
	Likes   int
	Shares  int
}

// Tally returns the user's counters for class.
func (u *User) Tally(class AssetClass) Tally {
	if class == AssetCrypto {
		return Tally{Pitches: u.TotalCryptoPitches, Likes: u.TotalCryptoLikes, Shares: u.TotalCryptoShares}
	}
	return Tally{Pitches: u.TotalStockPitches, Likes: u.TotalStockLikes, Shares: u.TotalStockShares}
}

// SetTally overwrites the counters for class and recomputes that class's karma.
func (u *User) SetTally(class AssetClass, t Tally, w KarmaWeights) {
	if class == AssetCrypto {
		u.TotalCryptoPitches, u.TotalCryptoLikes, u.TotalCryptoShares = t.Pitches, t.Likes, t.Shares
		u.CryptoKarma = w.Karma(t)
		return
	}
	u.TotalStockPitches, u.TotalStockLikes, u.TotalStockShares = t.Pitches, t.Likes, t.Shares
	u.StockKarma = w.Karma(t)
}

// Follow is a directed edge: FollowerID follows FolloweeID.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FolloweeID string    `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_follow_pair" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}
