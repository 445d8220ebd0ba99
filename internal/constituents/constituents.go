// Package constituents loads the S&P 500 membership dataset and answers
// sector and sub-industry queries over it. The dataset is read once at
// startup and never mutated, so lookups need no locking.
package constituents

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Constituent is one index member.
type Constituent struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Sector      string `json:"sector"`
	SubIndustry string `json:"subIndustry"`
}

// SectorSummary aggregates one GICS sector.
type SectorSummary struct {
	Sector           string `json:"sector"`
	Count            int    `json:"count"`
	SubIndustryCount int    `json:"subIndustryCount"`
}

// SubIndustrySummary aggregates one sub-industry within a sector.
type SubIndustrySummary struct {
	SubIndustry string `json:"subIndustry"`
	Count       int    `json:"count"`
}

// Dataset holds the loaded membership list.
type Dataset struct {
	all []Constituent
}

// New wraps an already materialized membership list.
func New(all []Constituent) *Dataset {
	return &Dataset{all: all}
}

// Load reads the dataset from a JSON file. Both a bare array and a
// wrapper object with a "constituents" key are accepted.
func Load(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading constituents file: %w", err)
	}

	var all []Constituent
	if err := json.Unmarshal(raw, &all); err != nil {
		var wrapper struct {
			Constituents []Constituent `json:"constituents"`
		}
		if werr := json.Unmarshal(raw, &wrapper); werr != nil {
			return nil, fmt.Errorf("parsing constituents file: %w", err)
		}
		all = wrapper.Constituents
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("constituents file %s holds no entries", path)
	}
	return &Dataset{all: all}, nil
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Len reports the total number of constituents.
func (d *Dataset) Len() int { return len(d.all) }

// All returns every constituent in file order.
func (d *Dataset) All() []Constituent { return d.all }

// HasSector reports whether any constituent belongs to the sector.
// Matching is case-insensitive and ignores surrounding whitespace.
func (d *Dataset) HasSector(sector string) bool {
	want := norm(sector)
	for _, c := range d.all {
		if norm(c.Sector) == want {
			return true
		}
	}
	return false
}

// BySector returns the sector's constituents in file order.
func (d *Dataset) BySector(sector string) []Constituent {
	want := norm(sector)
	var out []Constituent
	for _, c := range d.all {
		if norm(c.Sector) == want {
			out = append(out, c)
		}
	}
	return out
}

// BySubIndustry returns the constituents of one sub-industry within a
// sector.
func (d *Dataset) BySubIndustry(sector, subIndustry string) []Constituent {
	wantSector, wantSub := norm(sector), norm(subIndustry)
	var out []Constituent
	for _, c := range d.all {
		if norm(c.Sector) == wantSector && norm(c.SubIndustry) == wantSub {
			out = append(out, c)
		}
	}
	return out
}

// Sectors summarizes every sector, sorted by name.
func (d *Dataset) Sectors() []SectorSummary {
	counts := make(map[string]int)
	subs := make(map[string]map[string]struct{})
	names := make(map[string]string)
	for _, c := range d.all {
		key := norm(c.Sector)
		counts[key]++
		if names[key] == "" {
			names[key] = strings.TrimSpace(c.Sector)
		}
		if subs[key] == nil {
			subs[key] = make(map[string]struct{})
		}
		subs[key][norm(c.SubIndustry)] = struct{}{}
	}

	out := make([]SectorSummary, 0, len(counts))
	for key, n := range counts {
		out = append(out, SectorSummary{
			Sector:           names[key],
			Count:            n,
			SubIndustryCount: len(subs[key]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sector < out[j].Sector })
	return out
}

// SubIndustries summarizes the sub-industries of one sector, sorted by
// name. An unknown sector yields an empty slice.
func (d *Dataset) SubIndustries(sector string) []SubIndustrySummary {
	want := norm(sector)
	counts := make(map[string]int)
	names := make(map[string]string)
	for _, c := range d.all {
		if norm(c.Sector) != want {
			continue
		}
		key := norm(c.SubIndustry)
		counts[key]++
		if names[key] == "" {
			names[key] = strings.TrimSpace(c.SubIndustry)
		}
	}

	out := make([]SubIndustrySummary, 0, len(counts))
	for key, n := range counts {
		out = append(out, SubIndustrySummary{SubIndustry: names[key], Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubIndustry < out[j].SubIndustry })
	return out
}

// Search matches q case-insensitively against symbols and company names.
// A limit of zero or less means no cap.
func (d *Dataset) Search(q string, limit int) []Constituent {
	want := norm(q)
	if want == "" {
		return nil
	}
	var out []Constituent
	for _, c := range d.all {
		if strings.Contains(norm(c.Symbol), want) || strings.Contains(norm(c.Name), want) {
			out = append(out, c)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}
