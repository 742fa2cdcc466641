package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"chintai_scraper/models"
)

// Extractor turns one fetched listing page into raw records: one per
// room-type row, sharing that row's building-level fields. Absent
// markup nodes become empty fields; a building entry with no room rows
// yields nothing. Extraction itself never fails on shape.
type Extractor struct {
	baseURL string // origin prefixed to relative detail links
}

func NewExtractor(baseURL string) *Extractor {
	return &Extractor{baseURL: strings.TrimRight(baseURL, "/")}
}

func (e *Extractor) Extract(body []byte) ([]models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var records []models.RawListing

	doc.Find("div.cassetteitem").Each(func(_ int, item *goquery.Selection) {
		base := models.RawListing{
			Name:     nodeText(item, ".cassetteitem_content-title"),
			Category: nodeText(item, ".cassetteitem_content-label span"),
			Address:  nodeText(item, "li.cassetteitem_detail-col1"),
		}

		var accessParts []string
		item.Find("div.cassetteitem_detail-text").Each(func(_ int, s *goquery.Selection) {
			accessParts = append(accessParts, strings.TrimSpace(s.Text()))
		})
		base.Access = strings.Join(accessParts, ", ")

		// First div is construction age, second is structure.
		cols := item.Find("li.cassetteitem_detail-col3 div")
		base.Age = strings.TrimSpace(cols.Eq(0).Text())
		base.Structure = strings.TrimSpace(cols.Eq(1).Text())

		base.ImageURL, _ = item.Find(".cassetteitem_object-item img").First().Attr("rel")
		// The misspelled class name is the site's own markup.
		base.FloorPlanImageURL, _ = item.Find(".casssetteitem_other-thumbnail img").First().Attr("rel")

		if href, ok := item.Find("a[href*='/chintai/jnc_']").First().Attr("href"); ok {
			base.DetailURL = e.baseURL + href
		}

		item.Find("table.cassetteitem_other tbody").Each(func(_ int, row *goquery.Selection) {
			rec := base

			tds := row.Find("td")
			if tds.Length() > 2 {
				rec.Floor = strings.TrimSpace(tds.Eq(2).Text())
			}
			rec.Rent = nodeText(row, ".cassetteitem_price--rent")
			rec.AdminFee = nodeText(row, ".cassetteitem_price--administration")
			rec.Deposit = nodeText(row, ".cassetteitem_price--deposit")
			rec.Gratuity = nodeText(row, ".cassetteitem_price--gratuity")
			rec.FloorPlan = nodeText(row, ".cassetteitem_madori")
			rec.Area = nodeText(row, ".cassetteitem_menseki")

			records = append(records, rec)
		})
	})

	return records, nil
}

func nodeText(s *goquery.Selection, selector string) string {
	return strings.TrimSpace(s.Find(selector).First().Text())
}
