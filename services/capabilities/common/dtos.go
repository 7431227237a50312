package common

import "encoding/json"

// DefaultTimestampField is the date histogram field used when a job does not name one
const DefaultTimestampField = "timestamp"

// AggregationKind names an aggregation type as used in the merged aggregation tree
type AggregationKind string

// Known aggregation kinds
const (
	TermsAggregation         AggregationKind = "terms"
	MinAggregation           AggregationKind = "min"
	MaxAggregation           AggregationKind = "max"
	SumAggregation           AggregationKind = "sum"
	AvgAggregation           AggregationKind = "avg"
	ValueCountAggregation    AggregationKind = "value_count"
	DateHistogramAggregation AggregationKind = "date_histogram"
	HistogramAggregation     AggregationKind = "histogram"
)

// OrderedAggregationKinds lists the aggregation kinds in their canonical output order
var OrderedAggregationKinds = []AggregationKind{
	TermsAggregation,
	MinAggregation,
	MaxAggregation,
	SumAggregation,
	AvgAggregation,
	ValueCountAggregation,
	DateHistogramAggregation,
	HistogramAggregation,
}

// IsMetricAggregation returns true if the kind is a scalar metric computed per bucket
func IsMetricAggregation(kind AggregationKind) bool {
	switch kind {
	case MinAggregation, MaxAggregation, SumAggregation, AvgAggregation, ValueCountAggregation:
		return true
	default:
		return false
	}
}

// DateHistogramConfig holds the time bucketing settings of a rollup job
type DateHistogramConfig struct {
	Field    string `json:"field,omitempty"`
	TimeZone string `json:"time_zone"`
	Interval string `json:"interval"`
	Delay    string `json:"delay"`
}

// FieldName returns the configured timestamp field or the default one
func (cfg DateHistogramConfig) FieldName() string {
	if len(cfg.Field) == 0 {
		return DefaultTimestampField
	}

	return cfg.Field
}

// Job is a rollup job definition
type Job struct {
	Name         string              `json:"name"`
	RollupIndex  string              `json:"rollup_index,omitempty"`
	IndexPattern string              `json:"index_pattern,omitempty"`
	Timestamp    DateHistogramConfig `json:"timestamp"`
	Terms        []string            `json:"terms,omitempty"`
	Metrics      map[string][]string `json:"metrics,omitempty"`
	Histogram    map[string]float64  `json:"histogram,omitempty"`
}

// AggregationParams describes one aggregation applied on one field
type AggregationParams struct {
	Agg               AggregationKind
	TimeZone          string
	DateInterval      string
	Delay             string
	HistogramInterval float64
}

// MarshalJSON emits only the parameters meaningful for the aggregation kind
func (params AggregationParams) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"agg": params.Agg,
	}

	switch params.Agg {
	case DateHistogramAggregation:
		out["time_zone"] = params.TimeZone
		out["interval"] = params.DateInterval
		out["delay"] = params.Delay
	case HistogramAggregation:
		out["interval"] = params.HistogramInterval
	}

	return json.Marshal(out)
}

// AggregationTree maps an aggregation kind to the per-field aggregation parameters
type AggregationTree map[AggregationKind]map[string]AggregationParams

// MergedAggregations is the unified aggregation specification of a set of compatible jobs
type MergedAggregations struct {
	Aggs AggregationTree `json:"aggs"`
}
