package ziparchive

import (
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"
)

// EntryModTime decodes f's embedded DOS date/time, interpreting it as local
// time with the DST flag "unknown" (mirroring Python's
// time.mktime(date_time + (0, 0, -1))), falling back to archiveMtime on any
// conversion failure, per spec.md §4.5/§9.
func EntryModTime(f *zip.File, archiveMtime time.Time) time.Time {
	t, err := decodeDOSTime(f.ModifiedDate, f.ModifiedTime)
	if err != nil {
		return archiveMtime
	}

	return t
}

// decodeDOSTime decodes the MS-DOS date/time pair stored in a ZIP
// central-directory record.
//
// date: bits 15-9 year-1980, 8-5 month (1-12), 4-0 day (1-31).
// time: bits 15-11 hour (0-23), 10-5 minute (0-59), 4-0 second/2 (0-29).
func decodeDOSTime(date, dosTime uint16) (time.Time, error) {
	year := int(date>>9) + 1980
	month := int((date >> 5) & 0xF)
	day := int(date & 0x1F)

	hour := int((dosTime >> 11) & 0x1F)
	minute := int((dosTime >> 5) & 0x3F)
	second := int(dosTime&0x1F) * 2

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, fmt.Errorf("invalid DOS date/time: date=%#04x time=%#04x", date, dosTime)
	}

	// time.Date normalizes out-of-range fields and resolves the local
	// offset for the given wall-clock instant itself, which is the
	// standard-library equivalent of the "DST unknown" disambiguation
	// performed by Python's time.mktime.
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local), nil
}
