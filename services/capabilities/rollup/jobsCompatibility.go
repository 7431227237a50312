package rollup

import (
	"fmt"
	"math"
	"sort"

	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/common"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("rollup")

// HistogramPolicy decides what happens when two jobs configure different intervals for the same histogram field
type HistogramPolicy string

const (
	// HistogramPolicyStrict rejects differing histogram intervals
	HistogramPolicyStrict HistogramPolicy = "strict"
	// HistogramPolicyMultiple reconciles differing histogram intervals into the larger one when it is a
	// multiple of the smaller, into their product otherwise
	HistogramPolicyMultiple HistogramPolicy = "multiple"
)

var defaultMerger = &jobsMerger{
	policy: HistogramPolicyStrict,
}

type jobsMerger struct {
	policy HistogramPolicy
}

// NewJobsMerger creates a jobs merger using the provided histogram policy. An empty policy means strict.
func NewJobsMerger(policy HistogramPolicy) (*jobsMerger, error) {
	switch policy {
	case "":
		policy = HistogramPolicyStrict
	case HistogramPolicyStrict, HistogramPolicyMultiple:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHistogramPolicy, policy)
	}

	return &jobsMerger{
		policy: policy,
	}, nil
}

// AreJobsCompatible returns true if the jobs can be merged using the strict histogram policy
func AreJobsCompatible(jobs []common.Job) bool {
	return defaultMerger.AreJobsCompatible(jobs)
}

// MergeJobConfigurations merges the jobs using the strict histogram policy
func MergeJobConfigurations(jobs []common.Job) (*common.MergedAggregations, error) {
	return defaultMerger.MergeJobConfigurations(jobs)
}

// Policy returns the histogram policy in use
func (m *jobsMerger) Policy() HistogramPolicy {
	return m.policy
}

// AreJobsCompatible returns true if all jobs share the first job's date histogram settings and
// no histogram field is configured with conflicting intervals. No jobs or a single job are always compatible.
func (m *jobsMerger) AreJobsCompatible(jobs []common.Job) bool {
	err := m.checkCompatibility(jobs)
	if err != nil {
		log.Trace("jobs are not compatible", "num jobs", len(jobs), "reason", err)
		return false
	}

	return true
}

// MergeJobConfigurations unions the terms, metric and histogram aggregations of the provided jobs.
// The date histogram entry is always the one of the first job.
func (m *jobsMerger) MergeJobConfigurations(jobs []common.Job) (*common.MergedAggregations, error) {
	if len(jobs) == 0 {
		return nil, ErrNoJobs
	}

	err := checkDateHistograms(jobs)
	if err != nil {
		return nil, err
	}

	intervals, err := m.histogramIntervals(jobs)
	if err != nil {
		return nil, err
	}

	tree := make(common.AggregationTree)
	for _, job := range jobs {
		for _, field := range job.Terms {
			addAggregation(tree, common.TermsAggregation, field, common.AggregationParams{Agg: common.TermsAggregation})
		}

		for _, field := range sortedKeys(job.Metrics) {
			for _, metric := range job.Metrics[field] {
				kind := common.AggregationKind(metric)
				addAggregation(tree, kind, field, common.AggregationParams{Agg: kind})
			}
		}

		for _, field := range sortedKeys(job.Histogram) {
			addAggregation(tree, common.HistogramAggregation, field, common.AggregationParams{
				Agg:               common.HistogramAggregation,
				HistogramInterval: intervals[field],
			})
		}
	}

	first := jobs[0].Timestamp
	tree[common.DateHistogramAggregation] = map[string]common.AggregationParams{
		first.FieldName(): {
			Agg:          common.DateHistogramAggregation,
			TimeZone:     first.TimeZone,
			DateInterval: first.Interval,
			Delay:        first.Delay,
		},
	}

	log.Debug("merged job configurations", "num jobs", len(jobs), "num aggregation kinds", len(tree), "policy", m.policy)

	return &common.MergedAggregations{
		Aggs: tree,
	}, nil
}

func (m *jobsMerger) checkCompatibility(jobs []common.Job) error {
	if len(jobs) <= 1 {
		return nil
	}

	err := checkDateHistograms(jobs)
	if err != nil {
		return err
	}

	_, err = m.histogramIntervals(jobs)

	return err
}

func checkDateHistograms(jobs []common.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	reference := jobs[0]
	for _, job := range jobs[1:] {
		settings := []struct {
			name     string
			expected string
			actual   string
		}{
			{name: "time_zone", expected: reference.Timestamp.TimeZone, actual: job.Timestamp.TimeZone},
			{name: "interval", expected: reference.Timestamp.Interval, actual: job.Timestamp.Interval},
			{name: "delay", expected: reference.Timestamp.Delay, actual: job.Timestamp.Delay},
		}

		for _, setting := range settings {
			if setting.expected != setting.actual {
				return fmt.Errorf("%w: date histogram %s of job %q is %q while job %q uses %q",
					ErrIncompatibleJobs, setting.name, job.Name, setting.actual, reference.Name, setting.expected)
			}
		}
	}

	return nil
}

// histogramIntervals collects the interval of every histogram field across all jobs
func (m *jobsMerger) histogramIntervals(jobs []common.Job) (map[string]float64, error) {
	intervals := make(map[string]float64)
	owners := make(map[string]string)

	for _, job := range jobs {
		for _, field := range sortedKeys(job.Histogram) {
			interval := job.Histogram[field]
			existing, found := intervals[field]
			if !found {
				intervals[field] = interval
				owners[field] = job.Name
				continue
			}
			if existing == interval {
				continue
			}

			if m.policy != HistogramPolicyMultiple {
				return nil, fmt.Errorf("%w: histogram interval of field %q is %v in job %q and %v in job %q",
					ErrIncompatibleJobs, field, existing, owners[field], interval, job.Name)
			}

			intervals[field] = commonMultiple(existing, interval)
		}
	}

	return intervals, nil
}

func addAggregation(tree common.AggregationTree, kind common.AggregationKind, field string, params common.AggregationParams) {
	fields, found := tree[kind]
	if !found {
		fields = make(map[string]common.AggregationParams)
		tree[kind] = fields
	}

	_, exists := fields[field]
	if exists {
		return
	}

	fields[field] = params
}

func commonMultiple(a float64, b float64) float64 {
	small, large := math.Min(a, b), math.Max(a, b)
	if isWhole(large / small) {
		return large
	}

	return small * large
}

func isWhole(value float64) bool {
	return value == math.Trunc(value)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

// IsInterfaceNil returns true if the value under the interface is nil
func (m *jobsMerger) IsInterfaceNil() bool {
	return m == nil
}
