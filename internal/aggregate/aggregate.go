// Package aggregate rolls window-level result rows up to document level,
// grouping CSV rows and reducing each numeric metric with a configurable
// set of statistics.
package aggregate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Errors returned by the aggregator.
var (
	// ErrNoGroupColumns indicates that none of the requested group
	// columns exist in the input and no filename fallback is possible.
	ErrNoGroupColumns = errors.New("aggregate: no valid group-by columns")

	// ErrUnknownStat indicates an unsupported statistic name.
	ErrUnknownStat = errors.New("aggregate: unknown statistic")
)

// DefaultGroupBy is the document-level grouping used when none is given.
var DefaultGroupBy = []string{"filename", "label", "mode", "reference"}

// KnownMetrics are the numeric columns aggregated by default when present.
var KnownMetrics = []string{
	"mean_entropy",
	"entropy_variance",
	"compression_ratio",
	"unique_ratio",
	"delta_h",
	"burstiness_paisa",
}

// DefaultStats is the default statistic set, in output order.
var DefaultStats = []string{"mean", "median", "std", "min", "max", "p10", "p25", "p75", "p90"}

var quantileStats = map[string]float64{
	"p10": 0.10,
	"p25": 0.25,
	"p75": 0.75,
	"p90": 0.90,
}

// Options configures one aggregation run. Zero values select the defaults.
type Options struct {
	GroupBy []string
	Metrics []string
	Stats   []string
}

// Frame is a rectangular string table with a header row, the shape CSV
// readers and writers exchange.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of name in the header, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, col := range f.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Result carries the aggregated frame plus the requested columns that were
// skipped because the input lacked them.
type Result struct {
	Frame          *Frame
	IgnoredGroups  []string
	IgnoredMetrics []string
}

// Run groups the frame's rows and reduces each metric column with every
// requested statistic. Output rows are sorted by group key so repeated
// runs are diffable.
func Run(frame *Frame, opts Options) (*Result, error) {
	groupBy := opts.GroupBy
	if len(groupBy) == 0 {
		groupBy = DefaultGroupBy
	}
	stats := opts.Stats
	if len(stats) == 0 {
		stats = DefaultStats
	}
	for _, stat := range stats {
		if _, quantile := quantileStats[stat]; !quantile {
			switch stat {
			case "mean", "median", "std", "min", "max":
			default:
				return nil, fmt.Errorf("%w: %q", ErrUnknownStat, stat)
			}
		}
	}

	result := &Result{}

	var groups []string
	for _, col := range groupBy {
		if frame.ColumnIndex(col) >= 0 {
			groups = append(groups, col)
		} else {
			result.IgnoredGroups = append(result.IgnoredGroups, col)
		}
	}
	if len(groups) == 0 {
		if frame.ColumnIndex("filename") < 0 {
			return nil, ErrNoGroupColumns
		}
		groups = []string{"filename"}
	}

	metrics := opts.Metrics
	if len(metrics) == 0 {
		for _, m := range KnownMetrics {
			if frame.ColumnIndex(m) >= 0 {
				metrics = append(metrics, m)
			}
		}
	} else {
		kept := metrics[:0]
		for _, m := range metrics {
			if frame.ColumnIndex(m) >= 0 {
				kept = append(kept, m)
			} else {
				result.IgnoredMetrics = append(result.IgnoredMetrics, m)
			}
		}
		metrics = kept
	}

	groupIdx := make([]int, len(groups))
	for i, col := range groups {
		groupIdx[i] = frame.ColumnIndex(col)
	}
	metricIdx := make([]int, len(metrics))
	for i, col := range metrics {
		metricIdx[i] = frame.ColumnIndex(col)
	}

	// Bucket row indices by group key.
	buckets := make(map[string][]int)
	var keys []string
	for r, row := range frame.Rows {
		parts := make([]string, len(groupIdx))
		for i, c := range groupIdx {
			parts[i] = row[c]
		}
		key := strings.Join(parts, "\x1f")
		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], r)
	}
	sort.Strings(keys)

	out := &Frame{Columns: append([]string{}, groups...)}
	out.Columns = append(out.Columns, "windows")
	for _, metric := range metrics {
		for _, stat := range stats {
			out.Columns = append(out.Columns, metric+"_"+stat)
		}
	}

	for _, key := range keys {
		rows := buckets[key]
		outRow := strings.Split(key, "\x1f")
		outRow = append(outRow, strconv.Itoa(len(rows)))

		for mi, metric := range metrics {
			values := make([]float64, 0, len(rows))
			for _, r := range rows {
				raw := frame.Rows[r][metricIdx[mi]]
				if raw == "" {
					continue
				}
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, fmt.Errorf("aggregate: column %s row %d: %w", metric, r, err)
				}
				values = append(values, v)
			}
			for _, stat := range stats {
				outRow = append(outRow, formatFloat(reduce(values, stat)))
			}
		}
		out.Rows = append(out.Rows, outRow)
	}

	result.Frame = out
	return result, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func reduce(values []float64, stat string) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	if q, ok := quantileStats[stat]; ok {
		return quantile(values, q)
	}
	switch stat {
	case "mean":
		return mean(values)
	case "median":
		return quantile(values, 0.5)
	case "std":
		return sampleStd(values)
	case "min":
		return sorted(values)[0]
	case "max":
		s := sorted(values)
		return s[len(s)-1]
	}
	return math.NaN()
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd is the n-1 standard deviation; a single observation has no
// spread and yields 0.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

func sorted(values []float64) []float64 {
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	return s
}

// quantile uses linear interpolation between closest ranks.
func quantile(values []float64, q float64) float64 {
	s := sorted(values)
	if len(s) == 1 {
		return s[0]
	}
	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= len(s) {
		return s[len(s)-1]
	}
	frac := pos - float64(lo)
	return s[lo] + frac*(s[hi]-s[lo])
}
