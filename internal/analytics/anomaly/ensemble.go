package anomaly

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raold/second-brain-sub006/internal/analytics"
	"github.com/raold/second-brain-sub006/internal/metrics"
)

// Ensemble runs every detector over every requested metric, merges
// corroborating candidates and ranks the result.
//
// An Ensemble holds only configuration and is safe for concurrent use.
type Ensemble struct {
	detectors      []Detector
	sensitivity    float64
	boost          float64
	maxConcurrency int
	logger         *zap.Logger
}

// NewEnsemble creates an ensemble with the four standard detectors.
// A nil logger discards output.
func NewEnsemble(cfg Config, logger *zap.Logger) *Ensemble {
	return NewEnsembleWithDetectors(cfg, logger,
		NewStatisticalDetector(cfg.Statistical),
		NewMovingAverageDetector(cfg.MovingAverage),
		NewPatternBreakDetector(cfg.Pattern),
		NewFrequencyDetector(cfg.Frequency),
	)
}

// NewEnsembleWithDetectors creates an ensemble over a custom detector set.
func NewEnsembleWithDetectors(cfg Config, logger *zap.Logger, detectors ...Detector) *Ensemble {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Sensitivity <= 0 {
		cfg.Sensitivity = def.Sensitivity
	}
	if cfg.CorroborationBoost <= 0 {
		cfg.CorroborationBoost = def.CorroborationBoost
	}
	return &Ensemble{
		detectors:      detectors,
		sensitivity:    cfg.Sensitivity,
		boost:          cfg.CorroborationBoost,
		maxConcurrency: cfg.MaxConcurrency,
		logger:         logger.Named("anomaly"),
	}
}

// Detect runs DetectAnomalies with the configured sensitivity.
func (e *Ensemble) Detect(ctx context.Context, series map[analytics.MetricType]*analytics.MetricSeries) ([]Anomaly, error) {
	return e.DetectAnomalies(ctx, series, e.sensitivity)
}

// DetectAnomalies analyses every metric concurrently and returns the merged
// anomalies sorted by severity, then timestamp, both descending.
//
// Detector failures are logged and dropped; they never fail the request. The
// only error is ctx's, in which case nothing is returned.
func (e *Ensemble) DetectAnomalies(ctx context.Context, series map[analytics.MetricType]*analytics.MetricSeries, sensitivity float64) ([]Anomaly, error) {
	keys := make([]analytics.MetricType, 0, len(series))
	for mt := range series {
		keys = append(keys, mt)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	results := make([][]Anomaly, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	if e.maxConcurrency > 0 {
		g.SetLimit(e.maxConcurrency)
	}
	for i, mt := range keys {
		i, mt := i, mt
		g.Go(func() error {
			found, err := e.detectMetric(gctx, mt, series[mt])
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.DetectionRequests.WithLabelValues(metrics.StatusCancelled).Inc()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		metrics.DetectionRequests.WithLabelValues(metrics.StatusCancelled).Inc()
		return nil, err
	}

	var candidates []Anomaly
	for _, found := range results {
		candidates = append(candidates, found...)
	}
	for i := range candidates {
		candidates[i].Confidence = clamp01(candidates[i].Confidence * sensitivity)
	}

	merged := mergeAnomalies(candidates, e.boost)
	sortAnomalies(merged)

	for _, a := range merged {
		metrics.MergedTotal.WithLabelValues(string(a.MetricType)).Inc()
	}
	metrics.DetectionRequests.WithLabelValues(metrics.StatusOK).Inc()

	e.logger.Debug("anomaly detection complete",
		zap.Int("metrics", len(keys)),
		zap.Int("candidates", len(candidates)),
		zap.Int("anomalies", len(merged)),
	)
	return merged, nil
}

// detectMetric runs the detectors for one metric in order.
func (e *Ensemble) detectMetric(ctx context.Context, mt analytics.MetricType, series *analytics.MetricSeries) ([]Anomaly, error) {
	if series == nil {
		return nil, nil
	}
	if series.MetricType != mt {
		s := *series
		s.MetricType = mt
		series = &s
	}

	var found []Anomaly
	for _, d := range e.detectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidates, err := e.runDetector(d, series)
		if err != nil {
			metrics.DetectorRunsTotal.WithLabelValues(d.Name(), metrics.StatusFailed).Inc()
			e.logger.Error("detector failed",
				zap.String("metric_type", string(mt)),
				zap.String("detector", d.Name()),
				zap.Error(err),
			)
			continue
		}
		metrics.DetectorRunsTotal.WithLabelValues(d.Name(), metrics.StatusOK).Inc()
		for _, a := range candidates {
			metrics.CandidatesTotal.WithLabelValues(d.Name(), string(a.Type)).Inc()
		}
		found = append(found, candidates...)
	}

	e.logger.Debug("metric analysed",
		zap.String("metric_type", string(mt)),
		zap.Int("points", series.Len()),
		zap.Int("candidates", len(found)),
	)
	return found, nil
}

// runDetector calls d, turning a panic into an error.
func (e *Ensemble) runDetector(d Detector, series *analytics.MetricSeries) (found []Anomaly, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			found = nil
			err = fmt.Errorf("detector %s panicked: %v", d.Name(), r)
		}
		metrics.DetectorDuration.WithLabelValues(d.Name()).Observe(time.Since(start).Seconds())
	}()
	return d.Detect(series)
}

type mergeKey struct {
	metric analytics.MetricType
	ts     int64
	typ    AnomalyType
}

// mergeAnomalies collapses candidates sharing (metric, timestamp, type). Groups
// keep their first-seen order.
func mergeAnomalies(candidates []Anomaly, boost float64) []Anomaly {
	groups := make(map[mergeKey][]Anomaly)
	var order []mergeKey
	for _, a := range candidates {
		k := mergeKey{metric: a.MetricType, ts: a.Timestamp.UnixNano(), typ: a.Type}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], a)
	}

	merged := make([]Anomaly, 0, len(order))
	for _, k := range order {
		group := groups[k]
		if len(group) == 1 {
			merged = append(merged, group[0])
			continue
		}
		merged = append(merged, mergeGroup(group, boost))
	}
	return merged
}

// mergeGroup keeps the most confident candidate as the base record, averages
// severity, and boosts the mean confidence for corroboration.
func mergeGroup(group []Anomaly, boost float64) Anomaly {
	base := group[0]
	var severitySum, confidenceSum float64
	methods := make([]string, 0, len(group))
	for _, a := range group {
		if a.Confidence > base.Confidence {
			base = a
		}
		severitySum += a.Severity
		confidenceSum += a.Confidence
		methods = append(methods, a.DetectionMethod())
	}
	n := float64(len(group))

	meta := make(map[string]interface{}, len(base.Metadata)+2)
	for k, v := range base.Metadata {
		meta[k] = v
	}
	meta[MetaDetectionCount] = len(group)
	meta[MetaDetectionMethods] = methods

	out := base
	out.Severity = clamp01(severitySum / n)
	out.Confidence = clamp01(confidenceSum / n * boost)
	out.Description = fmt.Sprintf("%s (detected by %d methods: %s)", base.Description, len(group), strings.Join(methods, ", "))
	out.Metadata = meta
	return out
}

// sortAnomalies orders by severity then timestamp, both descending. Metric and
// type break the remaining ties so output is fully deterministic.
func sortAnomalies(anomalies []Anomaly) {
	sort.SliceStable(anomalies, func(i, j int) bool {
		a, b := anomalies[i], anomalies[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if a.MetricType != b.MetricType {
			return a.MetricType < b.MetricType
		}
		return a.Type < b.Type
	})
}
