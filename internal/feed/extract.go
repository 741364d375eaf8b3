package feed

import (
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/tidwall/gjson"
)

// ExtractFloat walks a dot-notation path in a JSON document and returns the
// leaf as a float64, accepting either a JSON number or a numeric string
// (spec.md §4.5 "Extract").
func ExtractFloat(json []byte, path string) (float64, error) {
	result := gjson.GetBytes(json, path)
	if !result.Exists() {
		return 0, &FetchError{Kind: FetchErrorParse, Cause: errAtPath("path not found", path)}
	}

	switch result.Type {
	case gjson.Number:
		return result.Float(), nil
	case gjson.String:
		if v, err := strconv.ParseFloat(result.Str, 64); err == nil {
			return v, nil
		}
		return 0, &FetchError{Kind: FetchErrorParse, Cause: errAtPath("string value is not numeric", path)}
	default:
		return 0, &FetchError{Kind: FetchErrorParse, Cause: errAtPath("value is not numeric", path)}
	}
}

// ExtractTimestamp extracts a unix-second timestamp at path, or returns the
// current wall-clock time if path is empty (spec.md §4.5). A non-numeric
// string leaf is retried through dateparse, so sources that report an ISO
// timestamp instead of a unix epoch still resolve cleanly.
func ExtractTimestamp(json []byte, path string) (uint64, error) {
	if path == "" {
		return uint64(time.Now().Unix()), nil
	}

	if v, err := ExtractFloat(json, path); err == nil {
		return uint64(v), nil
	}

	result := gjson.GetBytes(json, path)
	if result.Exists() && result.Type == gjson.String {
		if t, err := dateparse.ParseAny(result.Str); err == nil {
			return uint64(t.Unix()), nil
		}
	}
	return 0, &FetchError{Kind: FetchErrorParse, Cause: errAtPath("unparseable timestamp", path)}
}

// ExtractFeedData extracts both the observed value and its timestamp.
func ExtractFeedData(json []byte, valuePath, timestampPath string) (value float64, timestamp uint64, err error) {
	value, err = ExtractFloat(json, valuePath)
	if err != nil {
		return 0, 0, err
	}
	timestamp, err = ExtractTimestamp(json, timestampPath)
	if err != nil {
		return 0, 0, err
	}
	return value, timestamp, nil
}

type pathError struct {
	msg  string
	path string
}

func (e *pathError) Error() string { return e.msg + ": " + e.path }

func errAtPath(msg, path string) error { return &pathError{msg: msg, path: path} }
