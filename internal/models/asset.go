package models

import (
	"time"
)

type AssetClass string

const (
	AssetStock  AssetClass = "stock"
	AssetCrypto AssetClass = "crypto"
)

func (c AssetClass) Valid() bool {
	return c == AssetStock || c == AssetCrypto
}

// AssetSnapshot is the immutable price anchor captured when a pitch is created.
// Sector and Industry are set for stocks, Category and Platform for crypto.
type AssetSnapshot struct {
	AssetID    string     `gorm:"column:asset_id;size:64;not null;index" json:"asset_id"`
	Symbol     string     `gorm:"column:symbol;size:32;not null" json:"symbol"`
	Name       string     `gorm:"column:asset_name;size:200" json:"name"`
	Class      AssetClass `gorm:"column:asset_class;type:varchar(10);not null" json:"class"`
	Price      float64    `gorm:"column:snapshot_price;not null" json:"price"`
	MarketCap  float64    `gorm:"column:market_cap" json:"market_cap,omitempty"`
	Sector     string     `gorm:"column:sector;size:100" json:"sector,omitempty"`
	Industry   string     `gorm:"column:industry;size:100" json:"industry,omitempty"`
	Category   string     `gorm:"column:category;size:100" json:"category,omitempty"`
	Platform   string     `gorm:"column:platform;size:100" json:"platform,omitempty"`
	CapturedAt time.Time  `gorm:"column:captured_at" json:"captured_at"`
}
