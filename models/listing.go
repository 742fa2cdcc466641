package models

import "time"

// RawListing is one room-type row exactly as scraped. Building-level
// fields (Name through Structure) are shared by every row of the same
// building entry; the rest are per-room. An absent markup node leaves
// the field empty rather than failing the entry.
//
// The struct holds only strings so it stays comparable: exact-duplicate
// removal before normalization is a plain map lookup.
type RawListing struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	Address   string `json:"address"`
	Access    string `json:"access"` // all access-detail texts joined ", " in document order
	Age       string `json:"age"`
	Structure string `json:"structure"`

	Floor     string `json:"floor"`
	Rent      string `json:"rent"`
	AdminFee  string `json:"admin_fee"`
	Deposit   string `json:"deposit"`
	Gratuity  string `json:"gratuity"`
	FloorPlan string `json:"floor_plan"`
	Area      string `json:"area"`

	ImageURL          string `json:"image_url"`
	FloorPlanImageURL string `json:"floor_plan_image_url"`
	DetailURL         string `json:"detail_url"`
}

// AccessLeg is one station-access entry. Station and WalkMinutes are
// nil when the source text did not split into the expected parts.
type AccessLeg struct {
	Line        string  `json:"line"`
	Station     *string `json:"station"`
	WalkMinutes *int    `json:"walk_minutes"`
}

// GeoPoint is a geocoding result. Lat/Lng are only meaningful when
// Found is true; a partial pair never occurs.
type GeoPoint struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Found bool    `json:"found"`
}

// Listing is the typed projection of a RawListing after normalization
// and geocoding. Nullable numerics are pointers: nil means the source
// text lacked the expected unit marker, not zero.
type Listing struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"名称"`
	Category string `json:"category" db:"カテゴリ"`
	Address  string `json:"address" db:"アドレス"`

	AgeYears       int  `json:"age_years" db:"築年数"` // 0 for 新築
	BuildingFloors *int `json:"building_floors" db:"構造"`
	UnitFloor      *int `json:"unit_floor" db:"階数"` // negative = basement

	Rent     *float64 `json:"rent" db:"家賃"`    // 万円
	AdminFee *float64 `json:"admin_fee" db:"管理費"` // 円, not 万円
	Deposit  *float64 `json:"deposit" db:"敷金"`  // 万円
	Gratuity *float64 `json:"gratuity" db:"礼金"` // 万円

	FloorPlan string  `json:"floor_plan" db:"間取り"`
	AreaSqM   float64 `json:"area_sqm" db:"面積"`

	Ward         string `json:"ward" db:"区"`
	Neighborhood string `json:"neighborhood" db:"市町"`
	KanjiAddress string `json:"kanji_address" db:"漢数字アドレス"` // geocoder input only

	Access []AccessLeg `json:"access"`

	Lat *float64 `json:"lat" db:"緯度"`
	Lng *float64 `json:"lng" db:"経度"`

	ImageURL          string `json:"image_url" db:"物件画像URL"`
	FloorPlanImageURL string `json:"floor_plan_image_url" db:"間取画像URL"`
	DetailURL         string `json:"detail_url" db:"物件詳細URL"`

	ScrapedAt time.Time `json:"scraped_at" db:"scraped_at"`
}

// SetCoordinates fills the pair from a geocoding result, keeping the
// both-present-or-both-nil invariant.
func (l *Listing) SetCoordinates(pt GeoPoint) {
	if !pt.Found {
		l.Lat = nil
		l.Lng = nil
		return
	}
	lat, lng := pt.Lat, pt.Lng
	l.Lat = &lat
	l.Lng = &lng
}
