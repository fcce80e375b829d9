package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/fdadevices/openfda-agent/internal/model"
)

var productCodeDirectPattern = regexp.MustCompile(`^[A-Z]{3}$`)

const (
	fullTextConfidenceMin = 0.6
	fullTextConfidenceMax = 0.95
	fuzzyConfidenceMin    = 0.4
	fuzzyConfidenceMax    = 0.6
	fuzzyMaxEditDistance  = 2
	topManufacturerCount  = 5
)

// DeviceResolver maps a free-text device term to product codes and
// manufacturers over the local catalog, per spec §4.3's four-stage
// algorithm: exact brand match, direct product-code lookup, full-text
// scoring, then fuzzy edit-distance matching — stopping at the first stage
// that yields matches.
type DeviceResolver struct {
	db *DB
}

func NewDeviceResolver(db *DB) *DeviceResolver {
	return &DeviceResolver{db: db}
}

// Resolve runs the four-stage algorithm against term and aggregates the
// matched records into a ResolvedEntities populated for ResolverContext.Devices.
func (r *DeviceResolver) Resolve(ctx context.Context, term string) (*model.ResolvedEntities, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return nil, fmt.Errorf("catalog: empty device term")
	}

	if recs, err := r.exactBrand(ctx, trimmed); err != nil {
		return nil, err
	} else if len(recs) > 0 {
		return aggregate(trimmed, recs, 1.0), nil
	}

	if productCodeDirectPattern.MatchString(trimmed) {
		if recs, err := r.byProductCode(ctx, trimmed); err != nil {
			return nil, err
		} else if len(recs) > 0 {
			return aggregate(trimmed, recs, 1.0), nil
		}
	}

	if recs, scores, err := r.fullText(ctx, trimmed); err != nil {
		return nil, err
	} else if len(recs) > 0 {
		return aggregate(trimmed, recs, scaleConfidence(scores, fullTextConfidenceMin, fullTextConfidenceMax)), nil
	}

	if recs, dist, err := r.fuzzy(ctx, trimmed); err != nil {
		return nil, err
	} else if len(recs) > 0 {
		confidence := fuzzyConfidenceMax - (fuzzyConfidenceMax-fuzzyConfidenceMin)*float64(dist)/float64(fuzzyMaxEditDistance)
		return aggregate(trimmed, recs, confidence), nil
	}

	return &model.ResolvedEntities{Query: trimmed, MatchCount: 0, Confidence: 0}, nil
}

func (r *DeviceResolver) exactBrand(ctx context.Context, term string) ([]DeviceRecord, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT product_code, brand_name, company_name, description FROM devices WHERE lower(brand_name) = lower(?)`,
		term)
	if err != nil {
		return nil, fmt.Errorf("catalog exact brand lookup: %w", err)
	}
	defer rows.Close()
	return scanDevices(rows)
}

func (r *DeviceResolver) byProductCode(ctx context.Context, code string) ([]DeviceRecord, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT product_code, brand_name, company_name, description FROM devices WHERE upper(product_code) = upper(?)`,
		code)
	if err != nil {
		return nil, fmt.Errorf("catalog product-code lookup: %w", err)
	}
	defer rows.Close()
	return scanDevices(rows)
}

// fullText scores candidates via FTS5's bm25() ranking (lower is better);
// results are returned alongside their raw bm25 scores for confidence scaling.
func (r *DeviceResolver) fullText(ctx context.Context, term string) ([]DeviceRecord, []float64, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT d.product_code, d.brand_name, d.company_name, d.description, bm25(devices_fts)
		FROM devices_fts
		JOIN devices d ON d.id = devices_fts.rowid
		WHERE devices_fts MATCH ?
		ORDER BY bm25(devices_fts)
		LIMIT 25`, ftsQuery(term))
	if err != nil {
		// A malformed FTS query (e.g. bare punctuation) is not a catalog
		// failure — fall through to the fuzzy stage with no matches.
		return nil, nil, nil
	}
	defer rows.Close()

	var recs []DeviceRecord
	var scores []float64
	for rows.Next() {
		var rec DeviceRecord
		var score float64
		if err := rows.Scan(&rec.ProductCode, &rec.BrandName, &rec.CompanyName, &rec.Description, &score); err != nil {
			return nil, nil, fmt.Errorf("catalog full-text scan: %w", err)
		}
		recs = append(recs, rec)
		scores = append(scores, score)
	}
	return recs, scores, nil
}

// fuzzy scans brand names directly for the closest edit-distance match;
// the catalog is small enough (device classifications number in the low
// thousands) that a linear scan is simpler and fast enough, unlike full-text
// search which needs the FTS5 index.
func (r *DeviceResolver) fuzzy(ctx context.Context, term string) ([]DeviceRecord, int, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT product_code, brand_name, company_name, description FROM devices`)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog fuzzy scan: %w", err)
	}
	defer rows.Close()

	all, err := scanDevices(rows)
	if err != nil {
		return nil, 0, err
	}

	needle := strings.ToLower(term)
	best := fuzzyMaxEditDistance + 1
	var matches []DeviceRecord
	for _, rec := range all {
		d := levenshtein(needle, strings.ToLower(rec.BrandName))
		if d > fuzzyMaxEditDistance {
			continue
		}
		switch {
		case d < best:
			best = d
			matches = []DeviceRecord{rec}
		case d == best:
			matches = append(matches, rec)
		}
	}
	if len(matches) == 0 {
		return nil, 0, nil
	}
	return matches, best, nil
}

func scanDevices(rows *sql.Rows) ([]DeviceRecord, error) {
	var out []DeviceRecord
	for rows.Next() {
		var rec DeviceRecord
		if err := rows.Scan(&rec.ProductCode, &rec.BrandName, &rec.CompanyName, &rec.Description); err != nil {
			return nil, fmt.Errorf("catalog row scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ftsQuery quotes term as an FTS5 phrase so punctuation in free text (e.g.
// "3M's respirator") doesn't trip the MATCH operator's own query syntax.
func ftsQuery(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

func aggregate(query string, recs []DeviceRecord, confidence float64) *model.ResolvedEntities {
	codes := map[string]bool{}
	var codeList []string
	counts := map[string]int{}

	for _, rec := range recs {
		if !codes[rec.ProductCode] {
			codes[rec.ProductCode] = true
			codeList = append(codeList, rec.ProductCode)
		}
		counts[rec.CompanyName]++
	}
	sort.Strings(codeList)

	type kv struct {
		name  string
		count int
	}
	kvs := make([]kv, 0, len(counts))
	for name, c := range counts {
		kvs = append(kvs, kv{name, c})
	}
	sort.Slice(kvs, func(i, j int) bool {
		if kvs[i].count != kvs[j].count {
			return kvs[i].count > kvs[j].count
		}
		return kvs[i].name < kvs[j].name
	})
	if len(kvs) > topManufacturerCount {
		kvs = kvs[:topManufacturerCount]
	}
	hits := make([]model.ManufacturerHit, len(kvs))
	for i, e := range kvs {
		hits[i] = model.ManufacturerHit{Name: e.name, Count: e.count}
	}

	return &model.ResolvedEntities{
		Query:            query,
		ProductCodes:     codeList,
		TopManufacturers: hits,
		MatchCount:       len(recs),
		Confidence:       confidence,
	}
}

// scaleConfidence maps the top full-text hit's bm25 score (lower is better)
// into [min,max] relative to the weakest score in the same result set (spec
// §4.3: "confidence ... by relative score"). A clear winner — top score far
// ahead of the pack — lands near max; a crowded, ambiguous top score lands
// near min. A single-result set collapses to max: there's nothing to be
// ambiguous against.
func scaleConfidence(scores []float64, min, max float64) float64 {
	if len(scores) == 0 {
		return min
	}
	best, worst := scores[0], scores[0]
	for _, s := range scores {
		if s < best {
			best = s
		}
		if s > worst {
			worst = s
		}
	}
	if worst == best {
		return max
	}
	// FTS5's bm25() returns more-negative-is-better weights; normalize by
	// magnitude rather than assuming a sign.
	spread := math.Abs(worst - best)
	scale := math.Max(math.Abs(worst), math.Abs(best))
	if scale == 0 {
		return max
	}
	separation := spread / scale // in (0, 1]
	return min + (max-min)*separation
}
