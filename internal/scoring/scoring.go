// Package scoring runs the metric set over classified rows and shapes
// the results into the flat report schema consumed by the CLI and the
// registry service.
package scoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/trustreg-labs/trustreg-go/internal/hub"
	"github.com/trustreg-labs/trustreg-go/internal/ingest"
	"github.com/trustreg-labs/trustreg-go/internal/metrics"
)

// SizeBreakdown is the per-device size score object in the report.
type SizeBreakdown struct {
	RaspberryPi float64 `json:"raspberry_pi"`
	JetsonNano  float64 `json:"jetson_nano"`
	DesktopPC   float64 `json:"desktop_pc"`
	AWSServer   float64 `json:"aws_server"`
}

// Report is one scored row. Latencies are wall-clock milliseconds per
// metric; net_score_latency covers evidence gathering plus all metrics.
type Report struct {
	Name     string `json:"name"`
	Category string `json:"category"`

	NetScore        float64 `json:"net_score"`
	NetScoreLatency int64   `json:"net_score_latency"`

	RampUpTime        float64 `json:"ramp_up_time"`
	RampUpTimeLatency int64   `json:"ramp_up_time_latency"`

	BusFactor        float64 `json:"bus_factor"`
	BusFactorLatency int64   `json:"bus_factor_latency"`

	PerformanceClaims        float64 `json:"performance_claims"`
	PerformanceClaimsLatency int64   `json:"performance_claims_latency"`

	License        float64 `json:"license"`
	LicenseLatency int64   `json:"license_latency"`

	SizeScore        SizeBreakdown `json:"size_score"`
	SizeScoreLatency int64         `json:"size_score_latency"`

	DatasetAndCodeScore        float64 `json:"dataset_and_code_score"`
	DatasetAndCodeScoreLatency int64   `json:"dataset_and_code_score_latency"`

	DatasetQuality        float64 `json:"dataset_quality"`
	DatasetQualityLatency int64   `json:"dataset_quality_latency"`

	CodeQuality        float64 `json:"code_quality"`
	CodeQualityLatency int64   `json:"code_quality_latency"`
}

// Scorer gathers evidence and computes every metric for a row.
type Scorer struct {
	gatherer hub.Gatherer
	metrics  []metrics.Metric
	weights  Weights
	logger   *slog.Logger
}

func NewScorer(gatherer hub.Gatherer, set []metrics.Metric, weights Weights, logger *slog.Logger) *Scorer {
	if weights == nil {
		weights = DefaultWeights()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{gatherer: gatherer, metrics: set, weights: weights, logger: logger}
}

// Score produces the report for one classified row.
func (s *Scorer) Score(ctx context.Context, row ingest.Row) Report {
	start := time.Now()

	ev := s.gatherer.Gather(ctx, row)
	report := Report{Name: ev.Name, Category: ev.Category}

	var weightedSum, weightTotal float64
	for _, m := range s.metrics {
		metricStart := time.Now()
		sample := m.Compute(ctx, ev)
		latency := time.Since(metricStart).Milliseconds()

		setMetric(&report, m.Name(), sample, latency)

		// The unavailable sentinel never drags the net score down.
		if sample.Score >= 0 {
			w := s.weights.of(m.Name())
			weightedSum += w * sample.Score
			weightTotal += w
		}
	}

	if weightTotal > 0 {
		report.NetScore = weightedSum / weightTotal
	}
	report.NetScoreLatency = time.Since(start).Milliseconds()
	return report
}

// ScoreAll scores rows in order. Classification already happened
// serially; scoring each row is independent, but rows are processed
// sequentially here to keep output order stable.
func (s *Scorer) ScoreAll(ctx context.Context, rows []ingest.Row) []Report {
	reports := make([]Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, s.Score(ctx, row))
		s.logger.Debug("row scored", "name", row.Name, "model_url", row.ModelURL)
	}
	return reports
}

func setMetric(r *Report, name string, sample metrics.Sample, latency int64) {
	switch name {
	case "ramp_up_time":
		r.RampUpTime, r.RampUpTimeLatency = sample.Score, latency
	case "bus_factor":
		r.BusFactor, r.BusFactorLatency = sample.Score, latency
	case "performance_claims":
		r.PerformanceClaims, r.PerformanceClaimsLatency = sample.Score, latency
	case "license":
		r.License, r.LicenseLatency = sample.Score, latency
	case "size_score":
		r.SizeScore = sizeBreakdown(sample)
		r.SizeScoreLatency = latency
	case "dataset_and_code_score":
		r.DatasetAndCodeScore, r.DatasetAndCodeScoreLatency = sample.Score, latency
	case "dataset_quality":
		r.DatasetQuality, r.DatasetQualityLatency = sample.Score, latency
	case "code_quality":
		r.CodeQuality, r.CodeQualityLatency = sample.Score, latency
	}
}

func sizeBreakdown(sample metrics.Sample) SizeBreakdown {
	if sample.Score < 0 || sample.Breakdown == nil {
		return SizeBreakdown{
			RaspberryPi: metrics.Unavailable,
			JetsonNano:  metrics.Unavailable,
			DesktopPC:   metrics.Unavailable,
			AWSServer:   metrics.Unavailable,
		}
	}
	return SizeBreakdown{
		RaspberryPi: sample.Breakdown["raspberry_pi"],
		JetsonNano:  sample.Breakdown["jetson_nano"],
		DesktopPC:   sample.Breakdown["desktop_pc"],
		AWSServer:   sample.Breakdown["aws_server"],
	}
}
