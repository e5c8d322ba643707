package sink

import (
	"encoding/json"
	"fmt"
	"time"

	"ConsentCrawl/internal/models"
)

// Columns lists the flat columns of a stored record, in insert order
var Columns = []string{
	"id",
	"url",
	"domain_name",
	"extraction_datetime",
	"cookies_all",
	"cookies_no_consent",
	"third_party_domains_all",
	"third_party_domains_no_consent",
	"tracking_domains_all",
	"tracking_domains_no_consent",
	"consent_manager",
	"screenshot_files",
	"meta_tags",
	"json_ld",
	"status",
	"status_msg",
}

// rowValues flattens a record into text values, JSON-encoding the composite fields.
// Unset composites are stored as NULL.
func rowValues(r *models.SiteRecord) ([]interface{}, error) {
	composites := []interface{}{
		r.CookiesAll,
		r.CookiesNoConsent,
		r.ThirdPartyDomainsAll,
		r.ThirdPartyDomainsNoConsent,
		r.TrackingDomainsAll,
		r.TrackingDomainsNoConsent,
		r.ConsentManager,
		r.ScreenshotRefs,
		r.MetaTags,
		r.StructuredData,
	}

	values := make([]interface{}, 0, len(Columns))
	values = append(values, r.ID, r.URL, r.DomainName, r.ExtractionTime.UTC().Format(time.RFC3339Nano))

	for n, composite := range composites {
		encoded, err := encodeComposite(composite)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s of %s: %w", Columns[4+n], r.URL, err)
		}
		values = append(values, encoded)
	}

	return append(values, string(r.Status), r.StatusMessage), nil
}

func encodeComposite(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return string(data), nil
}
