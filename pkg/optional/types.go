package optional

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Number is an integer that also accepts numeric strings, as sent by HTML forms.
// An empty string decodes as blank, so Value[Number] treats it like null.
type Number int64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
		if s == "" {
			return errBlank
		}
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = Number(v)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return fmt.Errorf("optional: %q is not an integer", s)
	}
	*n = Number(f)
	return nil
}

func (n Number) Int() int { return int(n) }

// ID returns the number as a row id, false when it is not a positive id.
func (n Number) ID() (uint, bool) {
	if n <= 0 || int64(n) > math.MaxUint32 {
		return 0, false
	}
	return uint(n), true
}

// Timestamp layouts accepted on input, most specific first.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Time is a timestamp that accepts RFC 3339 plus the shorter layouts browsers emit
// for datetime-local and date inputs. Values without a zone are read as UTC.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return errBlank
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339))
}

// ParseTime parses s with the accepted layouts and returns it in UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("optional: unrecognized timestamp %q", s)
}
