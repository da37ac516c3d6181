// Package seriesfile reads metric series from YAML (or JSON) documents.
//
// The document shape is
//
//	series:
//	  - metric_type: memory_creation
//	    granularity: hour
//	    points:
//	      - {timestamp: 2024-01-01T00:00:00Z, value: 12}
//
// Timestamps are RFC 3339. Points are sorted chronologically on load.
package seriesfile

import (
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/raold/second-brain-sub006/internal/analytics"
)

type document struct {
	Series []seriesDoc `yaml:"series"`
}

type seriesDoc struct {
	MetricType  string     `yaml:"metric_type"`
	Granularity string     `yaml:"granularity"`
	Points      []pointDoc `yaml:"points"`
}

type pointDoc struct {
	Timestamp string                 `yaml:"timestamp"`
	Value     *float64               `yaml:"value"`
	Metadata  map[string]interface{} `yaml:"metadata"`
}

// Load reads and decodes the file at path.
func Load(path string) (map[analytics.MetricType]*analytics.MetricSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open series file")
	}
	defer f.Close()

	out, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return out, nil
}

// Decode parses a series document. Every metric type may appear once.
func Decode(r io.Reader) (map[analytics.MetricType]*analytics.MetricSeries, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return map[analytics.MetricType]*analytics.MetricSeries{}, nil
		}
		return nil, errors.Wrap(err, "decode series document")
	}

	out := make(map[analytics.MetricType]*analytics.MetricSeries, len(doc.Series))
	for i, sd := range doc.Series {
		series, err := sd.toSeries()
		if err != nil {
			return nil, errors.Wrapf(err, "series[%d]", i)
		}
		if _, dup := out[series.MetricType]; dup {
			return nil, errors.Errorf("series[%d]: duplicate metric type %q", i, series.MetricType)
		}
		out[series.MetricType] = series
	}
	return out, nil
}

func (sd seriesDoc) toSeries() (*analytics.MetricSeries, error) {
	mt, err := analytics.ParseMetricType(sd.MetricType)
	if err != nil {
		return nil, err
	}

	gran := analytics.GranularityHour
	if sd.Granularity != "" {
		if gran, err = analytics.ParseGranularity(sd.Granularity); err != nil {
			return nil, err
		}
	}

	points := make([]analytics.MetricPoint, 0, len(sd.Points))
	for j, pd := range sd.Points {
		p, err := pd.toPoint()
		if err != nil {
			return nil, errors.Wrapf(err, "points[%d]", j)
		}
		points = append(points, p)
	}
	sort.SliceStable(points, func(a, b int) bool {
		return points[a].Timestamp.Before(points[b].Timestamp)
	})

	return analytics.NewMetricSeries(mt, gran, points), nil
}

func (pd pointDoc) toPoint() (analytics.MetricPoint, error) {
	if pd.Timestamp == "" {
		return analytics.MetricPoint{}, errors.New("missing timestamp")
	}
	ts, err := time.Parse(time.RFC3339Nano, pd.Timestamp)
	if err != nil {
		return analytics.MetricPoint{}, errors.Wrap(err, "parse timestamp")
	}
	if pd.Value == nil {
		return analytics.MetricPoint{}, errors.New("missing value")
	}
	v := *pd.Value
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return analytics.MetricPoint{}, errors.Errorf("value %v is not finite", v)
	}
	if v < 0 {
		return analytics.MetricPoint{}, errors.Errorf("value %g is negative", v)
	}
	return analytics.MetricPoint{Timestamp: ts, Value: v, Metadata: pd.Metadata}, nil
}
