package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/khaothykus/fieldmap-bot/internal/receipt"
)

// Timestamp patterns, most specific first. OCR mangles separators, so
// after the well-formed date+time variants comes a lenient one that
// tolerates a short run of arbitrary characters between date and time.
var (
	// 03/11/2025 14:40 or 03/11/2025 14:40:12
	dtFullRe = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})\s+(\d{1,2}):(\d{2})(?::(\d{2}))?`)

	// 03/11/2025 - 14:40 (Mercado Pago prints an en-dash here)
	dtDashRe = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})\s*[–\-]\s*(\d{1,2}):(\d{2})`)

	// date, up to 8 junk characters, then time
	dtFlexRe = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4}).{0,8}?(\d{1,2}):(\d{2})`)

	// 15/09 às 10:41 (no year)
	dtNoYearRe = regexp.MustCompile(`(?i)(\d{1,2})[/\-](\d{1,2}).{0,12}?(?:às|as)\s*(\d{1,2}):(\d{2})`)

	// Sigapay prints "Início <date> <time>" / "Término <date> <time>"
	startAnchorRe = regexp.MustCompile(`(?i)in[ií]cio.*?(\d{1,2}/\d{1,2}/\d{2,4}).{0,8}?(\d{1,2}:\d{2})`)
	endAnchorRe   = regexp.MustCompile(`(?i)t[ée]rmino.*?(\d{1,2}/\d{1,2}/\d{2,4}).{0,8}?(\d{1,2}:\d{2})`)
)

// parseTimestamp recovers the event time from the text. Vendor-specific
// anchors win over the generic scan; when the generic scan finds several
// timestamps, the category decides the tie-break.
func (e *Extractor) parseTimestamp(text string, category receipt.Category) *time.Time {
	low := strings.ToLower(text)

	// Mercado Pago toll receipts label the relevant time explicitly.
	if pos := strings.Index(low, "data da passagem"); pos >= 0 {
		window := text[pos:]
		if len(window) > 120 {
			window = window[:120]
		}
		for _, re := range []*regexp.Regexp{dtDashRe, dtFullRe, dtFlexRe} {
			if m := re.FindStringSubmatch(window); m != nil {
				if dt := fromMatch(m); dt != nil {
					return dt
				}
			}
		}
	}

	if dt := e.fromAnchors(text, category); dt != nil {
		return dt
	}

	all := e.collectTimestamps(text)
	if len(all) == 0 {
		return nil
	}

	if category == receipt.CategoryParking {
		// When a parking receipt shows both entry and exit, the expense
		// belongs to the entry: keep the earliest per day, then the
		// overall earliest.
		byDay := map[string]time.Time{}
		for _, dt := range all {
			key := dt.Format("2006-01-02")
			if cur, ok := byDay[key]; !ok || dt.Before(cur) {
				byDay[key] = dt
			}
		}
		var earliest *time.Time
		for _, dt := range byDay {
			d := dt
			if earliest == nil || d.Before(*earliest) {
				earliest = &d
			}
		}
		return earliest
	}

	earliest := all[0]
	for _, dt := range all[1:] {
		if dt.Before(earliest) {
			earliest = dt
		}
	}
	return &earliest
}

// fromAnchors resolves the Início/Término pair. Parking always uses the
// start when present; otherwise whichever anchor exists wins.
func (e *Extractor) fromAnchors(text string, category receipt.Category) *time.Time {
	start := parseAnchor(startAnchorRe.FindStringSubmatch(text))
	end := parseAnchor(endAnchorRe.FindStringSubmatch(text))

	if start == nil && end == nil {
		return nil
	}
	if category == receipt.CategoryParking && start != nil {
		return start
	}
	if start != nil {
		return start
	}
	return end
}

func parseAnchor(m []string) *time.Time {
	if m == nil {
		return nil
	}
	dateParts := strings.Split(m[1], "/")
	timeParts := strings.Split(m[2], ":")
	if len(dateParts) != 3 || len(timeParts) != 2 {
		return nil
	}
	d, _ := strconv.Atoi(dateParts[0])
	mo, _ := strconv.Atoi(dateParts[1])
	y, _ := strconv.Atoi(dateParts[2])
	hh, _ := strconv.Atoi(timeParts[0])
	mm, _ := strconv.Atoi(timeParts[1])
	if y < 100 {
		y += 2000
	}
	return toDateTime(y, mo, d, hh, mm, 0)
}

// collectTimestamps gathers every parseable timestamp in the text.
func (e *Extractor) collectTimestamps(text string) []time.Time {
	var out []time.Time

	for _, re := range []*regexp.Regexp{dtFullRe, dtDashRe, dtFlexRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if dt := fromMatch(m); dt != nil {
				out = append(out, *dt)
			}
		}
	}

	// Year-less dates assume the most plausible year.
	for _, m := range dtNoYearRe.FindAllStringSubmatch(text, -1) {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		hh, _ := strconv.Atoi(m[3])
		mm, _ := strconv.Atoi(m[4])
		if dt := toDateTime(e.inferYear(mo), mo, d, hh, mm, 0); dt != nil {
			out = append(out, *dt)
		}
	}

	return out
}

// fromMatch builds a timestamp from a with-year regex match. Submatch 6
// (seconds) only exists for the full pattern.
func fromMatch(m []string) *time.Time {
	d, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	y, _ := strconv.Atoi(m[3])
	hh, _ := strconv.Atoi(m[4])
	mm, _ := strconv.Atoi(m[5])
	ss := 0
	if len(m) > 6 && m[6] != "" {
		ss, _ = strconv.Atoi(m[6])
	}
	if y < 100 {
		y += 2000
	}
	return toDateTime(y, mo, d, hh, mm, ss)
}

// inferYear picks the year for a year-less date: a month three or more
// ahead of the current one is read as last year, guarding against a
// stale receipt being read as future-dated.
func (e *Extractor) inferYear(month int) int {
	now := e.now()
	year := now.Year()
	if month-int(now.Month()) >= 3 {
		year--
	}
	return year
}

// toDateTime validates calendar components; time.Date would silently
// normalize 31/02 into March, which must read as garbage instead.
func toDateTime(y, mo, d, hh, mm, ss int) *time.Time {
	if mo < 1 || mo > 12 || d < 1 || d > 31 || hh > 23 || mm > 59 || ss > 59 {
		return nil
	}
	t := time.Date(y, time.Month(mo), d, hh, mm, ss, 0, time.Local)
	if t.Year() != y || t.Month() != time.Month(mo) || t.Day() != d {
		return nil
	}
	return &t
}
