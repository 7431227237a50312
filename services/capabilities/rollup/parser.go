package rollup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/common"
	"github.com/tidwall/gjson"
)

var dateHistogramIntervalPaths = []string{"interval", "fixed_interval", "calendar_interval"}

// ParseJobs decodes a JSON list of job definitions and validates each of them.
// An empty payload returns ErrNoJobs, a payload that is not a JSON list returns ErrNotJobList.
func ParseJobs(data []byte) ([]common.Job, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoJobs
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidJobs)
	}

	result := gjson.ParseBytes(data)
	if !result.IsArray() {
		return nil, fmt.Errorf("%w: got %s", ErrNotJobList, result.Type.String())
	}

	elements := result.Array()
	jobs := make([]common.Job, 0, len(elements))
	for i, element := range elements {
		if !element.IsObject() {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrInvalidJobs, i)
		}

		var job common.Job
		err := json.Unmarshal([]byte(element.Raw), &job)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %s", ErrInvalidJobs, i, err.Error())
		}

		err = ValidateJob(job)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}

// ValidateJob checks that a job only requests known metrics on named fields and positive histogram intervals
func ValidateJob(job common.Job) error {
	for _, field := range job.Terms {
		if len(field) == 0 {
			return fmt.Errorf("%w: job %q has an empty terms field", ErrInvalidJobs, job.Name)
		}
	}

	for _, field := range sortedKeys(job.Metrics) {
		if len(field) == 0 {
			return fmt.Errorf("%w: job %q has an empty metrics field", ErrInvalidJobs, job.Name)
		}
		for _, metric := range job.Metrics[field] {
			if !common.IsMetricAggregation(common.AggregationKind(metric)) {
				return fmt.Errorf("%w: job %q requests unknown metric %q on field %q", ErrInvalidJobs, job.Name, metric, field)
			}
		}
	}

	for _, field := range sortedKeys(job.Histogram) {
		interval := job.Histogram[field]
		if len(field) == 0 {
			return fmt.Errorf("%w: job %q has an empty histogram field", ErrInvalidJobs, job.Name)
		}
		if !(interval > 0) || math.IsInf(interval, 1) {
			return fmt.Errorf("%w: job %q has invalid histogram interval %v on field %q", ErrInvalidJobs, job.Name, interval, field)
		}
	}

	return nil
}

// AreJobsCompatibleJSON is the JSON boundary of AreJobsCompatible. An empty payload is trivially compatible
// while anything that is not a list of valid jobs is not.
func (m *jobsMerger) AreJobsCompatibleJSON(data []byte) bool {
	if len(bytes.TrimSpace(data)) == 0 {
		return true
	}

	jobs, err := ParseJobs(data)
	if err != nil {
		log.Trace("can not check compatibility", "error", err)
		return false
	}

	return m.AreJobsCompatible(jobs)
}

// MergeJobConfigurationsJSON is the JSON boundary of MergeJobConfigurations
func (m *jobsMerger) MergeJobConfigurationsJSON(data []byte) (*common.MergedAggregations, error) {
	jobs, err := ParseJobs(data)
	if err != nil {
		return nil, err
	}

	return m.MergeJobConfigurations(jobs)
}

// AreJobsCompatibleJSON checks the JSON encoded jobs using the strict histogram policy
func AreJobsCompatibleJSON(data []byte) bool {
	return defaultMerger.AreJobsCompatibleJSON(data)
}

// MergeJobConfigurationsJSON merges the JSON encoded jobs using the strict histogram policy
func MergeJobConfigurationsJSON(data []byte) (*common.MergedAggregations, error) {
	return defaultMerger.MergeJobConfigurationsJSON(data)
}

// ParseRollupCapabilities converts an Elasticsearch rollup capabilities response
// (GET _rollup/data/<index>) into job definitions, keeping the response order
func ParseRollupCapabilities(data []byte) ([]common.Job, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidJobs)
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: capabilities response is %s, not an object", ErrInvalidJobs, root.Type.String())
	}

	jobs := make([]common.Job, 0)
	var err error
	root.ForEach(func(pattern, capabilities gjson.Result) bool {
		capabilities.Get("rollup_jobs").ForEach(func(_, rawJob gjson.Result) bool {
			var job common.Job
			job, err = convertRollupJob(pattern.String(), rawJob)
			if err != nil {
				return false
			}

			jobs = append(jobs, job)
			return true
		})

		return err == nil
	})
	if err != nil {
		return nil, err
	}

	return jobs, nil
}

func convertRollupJob(pattern string, rawJob gjson.Result) (common.Job, error) {
	job := common.Job{
		Name:         rawJob.Get("job_id").String(),
		RollupIndex:  rawJob.Get("rollup_index").String(),
		IndexPattern: rawJob.Get("index_pattern").String(),
		Metrics:      make(map[string][]string),
		Histogram:    make(map[string]float64),
	}
	if len(job.IndexPattern) == 0 {
		job.IndexPattern = pattern
	}

	fields := rawJob.Get("fields")
	if !fields.IsObject() {
		return common.Job{}, fmt.Errorf("%w: job %q has no fields", ErrInvalidJobs, job.Name)
	}

	var err error
	fields.ForEach(func(fieldName, aggregations gjson.Result) bool {
		field := fieldName.String()
		for _, aggregation := range aggregations.Array() {
			kind := common.AggregationKind(aggregation.Get("agg").String())
			switch {
			case kind == common.TermsAggregation:
				job.Terms = append(job.Terms, field)
			case kind == common.DateHistogramAggregation:
				job.Timestamp = common.DateHistogramConfig{
					Field:    field,
					TimeZone: aggregation.Get("time_zone").String(),
					Interval: dateHistogramInterval(aggregation),
					Delay:    aggregation.Get("delay").String(),
				}
			case kind == common.HistogramAggregation:
				job.Histogram[field] = aggregation.Get("interval").Float()
			case common.IsMetricAggregation(kind):
				job.Metrics[field] = append(job.Metrics[field], string(kind))
			default:
				err = fmt.Errorf("%w: job %q uses unsupported aggregation %q on field %q", ErrInvalidJobs, job.Name, kind, field)
				return false
			}
		}

		return true
	})
	if err != nil {
		return common.Job{}, err
	}

	return job, ValidateJob(job)
}

func dateHistogramInterval(aggregation gjson.Result) string {
	for _, path := range dateHistogramIntervalPaths {
		interval := aggregation.Get(path)
		if interval.Exists() {
			return interval.String()
		}
	}

	return ""
}
