package activity

import (
	"bufio"
	"encoding/json"
	"os"
	"time"
)

// ReadDay loads all records in the persisted activity log whose timestamp
// falls on the given calendar day (local time). Malformed lines are
// skipped; a missing log yields no records.
func ReadDay(logPath string, day time.Time) []Record {
	dayStr := day.Format("2006-01-02")
	return readLog(logPath, func(rec Record) bool {
		return rec.Timestamp.Local().Format("2006-01-02") == dayStr
	})
}

// ReadSince loads all persisted records at or after the given instant.
func ReadSince(logPath string, since time.Time) []Record {
	return readLog(logPath, func(rec Record) bool {
		return !rec.Timestamp.Before(since)
	})
}

func readLog(logPath string, keep func(Record) bool) []Record {
	f, err := os.Open(logPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	var records []Record

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if keep(rec) {
			records = append(records, rec)
		}
	}

	return records
}
