// Package normalize converts the raw text fields scraped from listing
// pages into typed values. Every function is pure and total: a missing
// unit marker yields nil, an unrecognized format yields *ParseError,
// and nothing here performs I/O.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"chintai_scraper/models"
)

// NewConstruction is the listing-site sentinel for a brand-new building.
const NewConstruction = "新築"

// Currency unit markers. Rent, deposit and gratuity are quoted in 万円
// (ten-thousand yen); the management fee is quoted in plain 円. The two
// must never be summed without converting.
const (
	UnitMan = "万円"
	UnitYen = "円"
)

// ParseError reports a text field whose format carried no recognized
// unit or sentinel. The orchestrator drops the affected row and keeps
// the run going.
type ParseError struct {
	Field string
	Text  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("normalize: unrecognized %s value %q", e.Field, e.Text)
}

var (
	ageSplitRe      = regexp.MustCompile(`[築年]`)
	buildingFloorRe = regexp.MustCompile(`(\d+)階建`)
	digitRunRe      = regexp.MustCompile(`\d+`)
)

// ConstructionAge parses construction-age text into whole years.
// The new-construction sentinel maps to 0.
func ConstructionAge(s string) (int, error) {
	if strings.TrimSpace(s) == NewConstruction {
		return 0, nil
	}
	parts := ageSplitRe.Split(s, -1)
	if len(parts) < 2 {
		return 0, &ParseError{Field: "construction age", Text: s}
	}
	years, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, &ParseError{Field: "construction age", Text: s}
	}
	return years, nil
}

// BuildingFloors extracts the building's total floor count from the
// structure text. Text without a 階建 marker has no count. Text with an
// underground marker is left unresolved as well, matching the upstream
// data contract even though a count may be present.
func BuildingFloors(s string) *int {
	if !strings.Contains(s, "階建") {
		return nil
	}
	if strings.Contains(s, "B") {
		return nil
	}
	matches := buildingFloorRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	low := 0
	for i, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if i == 0 || n < low {
			low = n
		}
	}
	return &low
}

// UnitFloor parses the unit's floor number. Positive means above
// ground, negative below; when the text mentions several floors (a
// range like "1-2階") the minimum wins.
func UnitFloor(s string) *int {
	if !strings.Contains(s, "階") {
		return nil
	}
	runs := digitRunRe.FindAllString(s, -1)
	if len(runs) == 0 {
		return nil
	}
	low := 0
	for i, r := range runs {
		n, err := strconv.Atoi(r)
		if err != nil {
			continue
		}
		if i == 0 || n < low {
			low = n
		}
	}
	if strings.Contains(s, "B") {
		low = -low
	}
	return &low
}

// Fee parses a currency field quoted in the given unit. Text without
// the unit marker (e.g. "-" or "管理費込") is nil, not an error.
func Fee(s, unit string) (*float64, error) {
	if !strings.Contains(s, unit) {
		return nil, nil
	}
	prefix := strings.TrimSpace(strings.SplitN(s, unit, 2)[0])
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return nil, &ParseError{Field: "fee", Text: s}
	}
	return &v, nil
}

// Area strips the two-rune unit suffix ("m2") and parses the rest as
// square meters.
func Area(s string) (float64, error) {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= 2 {
		return 0, &ParseError{Field: "area", Text: s}
	}
	v, err := strconv.ParseFloat(string(r[:len(r)-2]), 64)
	if err != nil {
		return 0, &ParseError{Field: "area", Text: s}
	}
	return v, nil
}

// Span returns the substring of s strictly after the first occurrence
// of start, through and including the first occurrence of end. An empty
// end marker means "to the end of s". If either marker is missing the
// result is empty; the caller keeps the row either way.
func Span(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	rest := s[i+len(start):]
	if end == "" {
		return rest
	}
	j := strings.Index(rest, end)
	if j < 0 {
		return ""
	}
	return rest[:j+len(end)]
}

// Ward extracts the ward portion of a Tokyo address, 区 suffix
// included: "東京都千代田区九段南1-2-3" -> "千代田区".
func Ward(address string) string {
	return Span(address, "都", "区")
}

// Neighborhood extracts everything after the ward:
// "東京都千代田区九段南1-2-3" -> "九段南1-2-3".
func Neighborhood(address string) string {
	return Span(address, "区", "")
}

// chomeKanji maps ASCII and full-width digits to their 丁目 notation.
// Zero has no 丁目 form and passes through.
var chomeKanji = map[rune]string{
	'1': "一丁目", '2': "二丁目", '3': "三丁目",
	'4': "四丁目", '5': "五丁目", '6': "六丁目",
	'7': "七丁目", '8': "八丁目", '9': "九丁目",
	'１': "一丁目", '２': "二丁目", '３': "三丁目",
	'４': "四丁目", '５': "五丁目", '６': "六丁目",
	'７': "七丁目", '８': "八丁目", '９': "九丁目",
}

// KanjiAddress rewrites every digit of an address to kanji 丁目
// notation. The geocoding service matches this form far more reliably;
// the result is never displayed.
func KanjiAddress(address string) string {
	var b strings.Builder
	b.Grow(len(address))
	for _, r := range address {
		if k, ok := chomeKanji[r]; ok {
			b.WriteString(k)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// legSeparator joins and splits the access-detail texts; the walk
// marker precedes the walk-time minutes within a leg.
const (
	legSeparator = ", "
	walkMarker   = " 歩"
)

// AccessLegs splits the joined access text into at most maxLegs legs,
// ordered as they appeared on the page. A leg that does not split into
// exactly line/station parts keeps the whole text as its line label.
func AccessLegs(joined string, maxLegs int) []models.AccessLeg {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, legSeparator)
	if maxLegs > 0 && len(parts) > maxLegs {
		parts = parts[:maxLegs]
	}

	legs := make([]models.AccessLeg, 0, len(parts))
	for _, part := range parts {
		pieces := strings.Split(part, "/")
		if len(pieces) != 2 {
			legs = append(legs, models.AccessLeg{Line: part})
			continue
		}

		leg := models.AccessLeg{Line: pieces[0]}
		if i := strings.Index(pieces[1], walkMarker); i >= 0 {
			if run := digitRunRe.FindString(pieces[1][i+len(walkMarker):]); run != "" {
				station := pieces[1][:i]
				minutes, _ := strconv.Atoi(run)
				leg.Station = &station
				leg.WalkMinutes = &minutes
			}
		}
		legs = append(legs, leg)
	}
	return legs
}

// Record normalizes one raw listing into its typed form. Any field that
// fails with a ParseError aborts this row only; identity and URL fields
// pass through untouched. Coordinates are filled later by the geocoder.
func Record(raw models.RawListing, accessLegCap int) (models.Listing, error) {
	age, err := ConstructionAge(raw.Age)
	if err != nil {
		return models.Listing{}, err
	}
	rent, err := Fee(raw.Rent, UnitMan)
	if err != nil {
		return models.Listing{}, err
	}
	deposit, err := Fee(raw.Deposit, UnitMan)
	if err != nil {
		return models.Listing{}, err
	}
	gratuity, err := Fee(raw.Gratuity, UnitMan)
	if err != nil {
		return models.Listing{}, err
	}
	adminFee, err := Fee(raw.AdminFee, UnitYen)
	if err != nil {
		return models.Listing{}, err
	}
	area, err := Area(raw.Area)
	if err != nil {
		return models.Listing{}, err
	}

	return models.Listing{
		Name:              raw.Name,
		Category:          raw.Category,
		Address:           raw.Address,
		AgeYears:          age,
		BuildingFloors:    BuildingFloors(raw.Structure),
		UnitFloor:         UnitFloor(raw.Floor),
		Rent:              rent,
		AdminFee:          adminFee,
		Deposit:           deposit,
		Gratuity:          gratuity,
		FloorPlan:         raw.FloorPlan,
		AreaSqM:           area,
		Ward:              Ward(raw.Address),
		Neighborhood:      Neighborhood(raw.Address),
		KanjiAddress:      KanjiAddress(raw.Address),
		Access:            AccessLegs(raw.Access, accessLegCap),
		ImageURL:          raw.ImageURL,
		FloorPlanImageURL: raw.FloorPlanImageURL,
		DetailURL:         raw.DetailURL,
	}, nil
}
