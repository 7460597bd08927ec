package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/relwatch/internal/shared"
)

// ReleaseType is the user-selectable category of a release group.
type ReleaseType string

const (
	TypeAlbum       ReleaseType = "album"
	TypeSingle      ReleaseType = "single"
	TypeEP          ReleaseType = "ep"
	TypeLive        ReleaseType = "live"
	TypeCompilation ReleaseType = "compilation"
	TypeRemix       ReleaseType = "remix"
	TypeOther       ReleaseType = "other"
)

// AllReleaseTypes lists every category in display order.
var AllReleaseTypes = []ReleaseType{TypeAlbum, TypeSingle, TypeEP, TypeLive, TypeCompilation, TypeRemix, TypeOther}

// ParseReleaseType accepts a category name in any case.
func ParseReleaseType(s string) (ReleaseType, bool) {
	t := ReleaseType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllReleaseTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Label is the capitalized form used in emails and listings.
func (t ReleaseType) Label() string {
	switch t {
	case TypeEP:
		return "EP"
	case "":
		return ""
	default:
		return strings.ToUpper(string(t[:1])) + string(t[1:])
	}
}

// ReleaseTypeSet is a set of enabled categories.
type ReleaseTypeSet map[ReleaseType]struct{}

// NewReleaseTypeSet builds a set from the given categories.
func NewReleaseTypeSet(types ...ReleaseType) ReleaseTypeSet {
	s := make(ReleaseTypeSet, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// ParseReleaseTypeSet parses a comma-separated list such as "album,ep".
func ParseReleaseTypeSet(list string) (ReleaseTypeSet, error) {
	s := ReleaseTypeSet{}
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, ok := ParseReleaseType(part)
		if !ok {
			return nil, fmt.Errorf("%w: unknown release type %q", shared.ErrInvalidArgument, part)
		}
		s[t] = struct{}{}
	}
	return s, nil
}

func (s ReleaseTypeSet) Has(t ReleaseType) bool {
	_, ok := s[t]
	return ok
}

// Slice returns the members in display order.
func (s ReleaseTypeSet) Slice() []ReleaseType {
	out := make([]ReleaseType, 0, len(s))
	for _, t := range AllReleaseTypes {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// ReleaseDate packs a partial date into YYYYMMDD with zero for unknown month or day.
// Zero means undated.
type ReleaseDate int

// ParseReleaseDate converts "YYYY", "YYYY-MM" or "YYYY-MM-DD" to a [ReleaseDate].
// The empty string yields 0 and no error.
func ParseReleaseDate(s string) (ReleaseDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	parts := strings.Split(s, "-")
	if len(parts) > 3 || len(parts[0]) != 4 {
		return 0, fmt.Errorf("%w: %q", shared.ErrInvalidDate, s)
	}

	limits := []int{9999, 12, 31}
	values := [3]int{}
	for i, p := range parts {
		if i > 0 && len(p) != 2 {
			return 0, fmt.Errorf("%w: %q", shared.ErrInvalidDate, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("%w: %q", shared.ErrInvalidDate, s)
		}
		values[i] = n
	}

	if values[1] != 0 && values[2] > daysIn(values[0], values[1]) {
		return 0, fmt.Errorf("%w: %q", shared.ErrInvalidDate, s)
	}

	return ReleaseDate(values[0]*10000 + values[1]*100 + values[2]), nil
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d ReleaseDate) Year() int  { return int(d) / 10000 }
func (d ReleaseDate) Month() int { return int(d) / 100 % 100 }
func (d ReleaseDate) Day() int   { return int(d) % 100 }

// String renders the date with only the known parts, e.g. "2010-01". Zero renders as "0".
func (d ReleaseDate) String() string {
	s := strconv.Itoa(d.Year())
	if d.Month() != 0 {
		s += fmt.Sprintf("-%02d", d.Month())
		if d.Day() != 0 {
			s += fmt.Sprintf("-%02d", d.Day())
		}
	}
	return s
}

// Time returns midnight UTC on the date, defaulting an unknown month or day to 1.
func (d ReleaseDate) Time() time.Time {
	month := d.Month()
	if month == 0 {
		month = 1
	}
	day := d.Day()
	if day == 0 {
		day = 1
	}
	return time.Date(d.Year(), time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ISO8601 formats [ReleaseDate.Time] as RFC 3339.
func (d ReleaseDate) ISO8601() string {
	return d.Time().Format(time.RFC3339)
}

// IsRecent reports whether the date falls strictly after now minus window.
func (d ReleaseDate) IsRecent(now time.Time, window time.Duration) bool {
	return d.Time().After(now.UTC().Add(-window))
}

// ReleaseGroup is one release group of an artist.
type ReleaseGroup struct {
	ID        string
	ArtistID  string
	MBID      string
	Name      string
	Type      ReleaseType
	Date      ReleaseDate
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate implements [Model]. Undated or untyped release groups are never stored.
func (rg *ReleaseGroup) Validate() error {
	switch {
	case rg.ArtistID == "":
		return fmt.Errorf("%w: release group without artist", shared.ErrInvalidInput)
	case !shared.IsValidMBID(rg.MBID):
		return fmt.Errorf("%w: release group mbid %q", shared.ErrInvalidInput, rg.MBID)
	case rg.Type == "":
		return fmt.Errorf("%w: release group %s has no type", shared.ErrInvalidInput, rg.MBID)
	case rg.Date == 0:
		return fmt.Errorf("%w: release group %s has no date", shared.ErrInvalidInput, rg.MBID)
	}
	return nil
}

// ReleaseListing is a release group joined with its artist for display.
type ReleaseListing struct {
	ReleaseGroup
	ArtistMBID string
	ArtistName string
	Starred    bool
}
