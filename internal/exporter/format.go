package exporter

import (
	"strconv"
	"strings"
	"unicode"

	"agencypulse/pkg/contracts/domain"
)

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

// formatCell renders a cell for CSV output. Missing numbers are empty.
func formatCell(c domain.Cell) string {
	if !c.IsNumber() {
		return c.Text
	}
	if !c.Number.Defined() {
		return ""
	}
	return strconv.FormatFloat(float64(*c.Number), 'f', -1, 64)
}

// sheetName makes title a valid, unique worksheet name.
func sheetName(title string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Sheet"
	}
	return unique(truncate(name, maxSheetName), used, maxSheetName)
}

// fileName makes title a safe, unique file base name.
func fileName(title string, used map[string]bool) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "_"):
			b.WriteByte('_')
		}
	}
	name := strings.TrimSuffix(b.String(), "_")
	if name == "" {
		name = "table"
	}
	return unique(name, used, 0)
}

func unique(name string, used map[string]bool, limit int) string {
	candidate := name
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := " (" + strconv.Itoa(i) + ")"
		if limit == 0 {
			suffix = "_" + strconv.Itoa(i)
			candidate = name + suffix
			continue
		}
		candidate = truncate(name, limit-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
