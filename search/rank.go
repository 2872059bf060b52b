package search

import (
	"slices"
	"sort"
	"strings"

	"github.com/scambier/omnisearch/docstore"
)

// PropertyWeight boosts documents whose frontmatter property contains a
// matched term.
type PropertyWeight struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

const downrankDivisor = 10

// filterExtensions keeps hits whose extension matches one of the query's
// extension filters, suffix-aware: ".can" matches ".canvas".
func filterExtensions(hits []RawHit, extensions []string) []RawHit {
	if len(extensions) == 0 {
		return hits
	}
	kept := hits[:0]
	for _, h := range hits {
		ext := docstore.Extension(h.Path)
		for _, e := range extensions {
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			if strings.HasPrefix(ext, e) {
				kept = append(kept, h)
				break
			}
		}
	}
	return kept
}

// filterPaths applies the query's include and exclude path substring
// filters, case-insensitively.
func filterPaths(hits []RawHit, include, exclude []string) []RawHit {
	if len(include) == 0 && len(exclude) == 0 {
		return hits
	}
	kept := hits[:0]
	for _, h := range hits {
		path := strings.ToLower(h.Path)
		if len(include) > 0 && !containsAny(path, include) {
			continue
		}
		if containsAny(path, exclude) {
			continue
		}
		kept = append(kept, h)
	}
	return kept
}

// filterSingleFile collapses the result set to at most the one hit for the
// given path, for in-file search.
func filterSingleFile(hits []RawHit, path string) []RawHit {
	for _, h := range hits {
		if h.Path == path {
			return []RawHit{h}
		}
	}
	return nil
}

// applyIgnored drops ignored documents entirely, or downranks them, but
// never both.
func applyIgnored(hits []RawHit, isIgnored func(string) bool, hide bool) []RawHit {
	if isIgnored == nil {
		return hits
	}
	if hide {
		kept := hits[:0]
		for _, h := range hits {
			if !isIgnored(h.Path) {
				kept = append(kept, h)
			}
		}
		return kept
	}
	for i := range hits {
		if isIgnored(hits[i].Path) {
			hits[i].Score /= downrankDivisor
		}
	}
	return hits
}

// applyDownrankedFolders divides the score of hits living in a downranked
// folder. The folder-equality branch fires at most once, and the per-segment
// branch at most once more.
func applyDownrankedFolders(hits []RawHit, folders []string) []RawHit {
	if len(folders) == 0 {
		return hits
	}
	for i := range hits {
		path := hits[i].Path

		for _, folder := range folders {
			if path == folder || strings.HasPrefix(path, folder+"/") {
				hits[i].Score /= downrankDivisor
				break
			}
		}

		for _, segment := range strings.Split(path, "/") {
			if slices.Contains(folders, segment) {
				hits[i].Score /= downrankDivisor
				break
			}
		}
	}
	return hits
}

// applyPropertyBoosts multiplies the score when a configured frontmatter
// property contains one of the hit's matched terms.
func applyPropertyBoosts(hits []RawHit, weights []PropertyWeight) []RawHit {
	if len(weights) == 0 {
		return hits
	}
	for i := range hits {
		for _, pw := range weights {
			values, ok := hits[i].Properties[pw.Name]
			if !ok {
				continue
			}
			boosted := false
			for _, term := range hits[i].Terms {
				for _, v := range values {
					if strings.Contains(strings.ToLower(v), term) {
						hits[i].Score *= pw.Weight
						boosted = true
						break
					}
				}
				if boosted {
					break
				}
			}
		}
	}
	return hits
}

// applyTagBoosts multiplies the score by 100 for every query tag the
// document carries, compounding per matching query tag.
func applyTagBoosts(hits []RawHit, tags []string) []RawHit {
	for i := range hits {
		for _, tag := range tags {
			if slices.Contains(hits[i].Tags, tag) {
				hits[i].Score *= 100
			}
		}
	}
	return hits
}

// sortAndTruncate orders hits by descending score, stably, and keeps the
// best limit hits.
func sortAndTruncate(hits []RawHit, limit int) []RawHit {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// dedupeHits drops repeated hits with the same path, keeping the first.
func dedupeHits(hits []RawHit) []RawHit {
	seen := make(map[string]struct{}, len(hits))
	kept := hits[:0]
	for _, h := range hits {
		if _, ok := seen[h.Path]; ok {
			continue
		}
		seen[h.Path] = struct{}{}
		kept = append(kept, h)
	}
	return kept
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
