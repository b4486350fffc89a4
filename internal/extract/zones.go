package extract

import (
	"sort"
	"strings"
)

// recipientZoneSpan is how many lines after a recipient keyword are
// considered part of the addressee block.
const recipientZoneSpan = 5

// Zone is an inclusive line interval describing the document's addressee.
type Zone struct {
	Start int
	End   int
}

// FindRecipientZones locates addressee regions: every line containing a
// recipient keyword opens a zone spanning that line plus the next
// recipientZoneSpan lines. Overlapping or adjacent zones are merged into
// maximal intervals.
func FindRecipientZones(lines []string, keywords []string) []Zone {
	var zones []Zone
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				zones = append(zones, Zone{Start: i, End: i + recipientZoneSpan})
				break
			}
		}
	}

	if len(zones) == 0 {
		return nil
	}

	sort.Slice(zones, func(i, j int) bool { return zones[i].Start < zones[j].Start })

	merged := zones[:1]
	for _, z := range zones[1:] {
		last := &merged[len(merged)-1]
		if z.Start <= last.End {
			if z.End > last.End {
				last.End = z.End
			}
			continue
		}
		merged = append(merged, z)
	}
	return merged
}

// InZone reports whether a line number falls inside any zone.
func InZone(line int, zones []Zone) bool {
	for _, z := range zones {
		if z.Start <= line && line <= z.End {
			return true
		}
	}
	return false
}
