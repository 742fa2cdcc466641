package storage

import (
	"context"

	"chintai_scraper/models"
)

// Sink persists one complete snapshot, replacing whatever the previous
// run wrote. Replace is transactional: on error the prior snapshot
// stays untouched.
type Sink interface {
	Replace(ctx context.Context, listings []models.Listing) error
	Close() error
}

// persistedAccessLegs is how many access legs the snapshot schema can
// hold. The downstream UI reads these columns by name, so the count is
// part of the contract even when the scrape-side cap is configured
// differently.
const persistedAccessLegs = 3

// snapshotColumns is the fixed column contract consumed read-only by
// the map/filter UI. Identifiers are the domain-language labels the
// consumers already query.
var snapshotColumns = []string{
	"id",
	"名称", "カテゴリ", "アドレス",
	"築年数", "構造", "階数",
	"家賃", "管理費", "敷金", "礼金",
	"間取り", "面積",
	"区", "市町", "漢数字アドレス",
	"緯度", "経度",
	"アクセス1線路名", "アクセス1駅名", "アクセス1徒歩分",
	"アクセス2線路名", "アクセス2駅名", "アクセス2徒歩分",
	"アクセス3線路名", "アクセス3駅名", "アクセス3徒歩分",
	"物件画像URL", "間取画像URL", "物件詳細URL",
	"scraped_at",
}

// snapshotValues flattens one listing in snapshotColumns order. Nil
// pointers become SQL NULLs; access legs beyond the schema's three are
// not persisted.
func snapshotValues(l models.Listing) []interface{} {
	vals := []interface{}{
		l.ID,
		l.Name, l.Category, l.Address,
		l.AgeYears, l.BuildingFloors, l.UnitFloor,
		l.Rent, l.AdminFee, l.Deposit, l.Gratuity,
		l.FloorPlan, l.AreaSqM,
		l.Ward, l.Neighborhood, l.KanjiAddress,
		l.Lat, l.Lng,
	}
	for i := 0; i < persistedAccessLegs; i++ {
		if i < len(l.Access) {
			leg := l.Access[i]
			vals = append(vals, leg.Line, leg.Station, leg.WalkMinutes)
		} else {
			vals = append(vals, nil, nil, nil)
		}
	}
	return append(vals, l.ImageURL, l.FloorPlanImageURL, l.DetailURL, l.ScrapedAt)
}
