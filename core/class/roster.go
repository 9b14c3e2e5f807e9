package class

import (
	"fmt"
	"strings"
)

// RosterEntry is one parsed line of a bulk roster paste.
type RosterEntry struct {
	Name      string `json:"name"`
	StudentNo string `json:"student_id"`
}

// ParseRoster splits a teacher's multi-line roster text into entries.
// Regular teams expect "Full Name StudentNo" per line; the student number is
// the last whitespace-separated token. The Guests team takes a bare name per
// line. Blank lines and (for regular teams) lines without a student number
// are skipped rather than aborting the whole paste.
func ParseRoster(text string, guestTeam bool) []RosterEntry {
	var entries []RosterEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if guestTeam {
			entries = append(entries, RosterEntry{Name: line, StudentNo: GuestStudentNo})
			continue
		}
		idx := strings.LastIndex(line, " ")
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		no := strings.TrimSpace(line[idx+1:])
		if name == "" || no == "" {
			continue
		}
		entries = append(entries, RosterEntry{Name: name, StudentNo: no})
	}
	return entries
}

// UniqueName suffixes `name` with " (2)", " (3)", ... until `taken` reports
// it free, so duplicate display names within a team stay distinguishable.
func UniqueName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for counter := 2; ; counter++ {
		candidate := fmt.Sprintf("%s (%d)", name, counter)
		if !taken(candidate) {
			return candidate
		}
	}
}
