package rollup

import "github.com/iulianpascalau/rollup-capabilities/services/capabilities/common"

var hourlyUTC = common.DateHistogramConfig{
	TimeZone: "UTC",
	Interval: "1h",
	Delay:    "7d",
}

var jobs = []common.Job{
	{
		Name:         "foo1",
		RollupIndex:  "foo_rollup",
		IndexPattern: "foo-*",
		Timestamp:    hourlyUTC,
		Terms:        []string{"node"},
		Metrics: map[string][]string{
			"temperature": {"min", "max", "sum"},
			"voltage":     {"sum"},
		},
		Histogram: map[string]float64{
			"voltage": 5,
		},
	},
	{
		Name:         "foo2",
		RollupIndex:  "foo_rollup",
		IndexPattern: "foo-*",
		Timestamp:    hourlyUTC,
		Terms:        []string{"host"},
		Metrics: map[string][]string{
			"temperature": {"min", "max"},
		},
		Histogram: map[string]float64{
			"voltage": 5,
		},
	},
	{
		Name:         "foo3",
		RollupIndex:  "foo_rollup",
		IndexPattern: "foo-*",
		Timestamp: common.DateHistogramConfig{
			TimeZone: "PST",
			Interval: "1h",
			Delay:    "7d",
		},
		Metrics: map[string][]string{
			"voltage": {"sum"},
		},
		Histogram: map[string]float64{
			"voltage": 5,
		},
	},
}

// same date histogram as foo1, coarser voltage buckets
var coarseVoltageJob = common.Job{
	Name:      "foo4",
	Timestamp: hourlyUTC,
	Terms:     []string{"host"},
	Histogram: map[string]float64{
		"voltage": 20,
	},
}

const jobsJSON = `[
	{
		"name": "foo1",
		"rollup_index": "foo_rollup",
		"index_pattern": "foo-*",
		"timestamp": {"time_zone": "UTC", "interval": "1h", "delay": "7d"},
		"terms": ["node"],
		"metrics": {"temperature": ["min", "max", "sum"], "voltage": ["sum"]},
		"histogram": {"voltage": 5}
	},
	{
		"name": "foo2",
		"rollup_index": "foo_rollup",
		"index_pattern": "foo-*",
		"timestamp": {"time_zone": "UTC", "interval": "1h", "delay": "7d"},
		"terms": ["host"],
		"metrics": {"temperature": ["min", "max"]},
		"histogram": {"voltage": 5}
	}
]`

const rollupCapabilitiesJSON = `{
	"foo-*": {
		"rollup_jobs": [
			{
				"job_id": "foo1",
				"rollup_index": "foo_rollup",
				"index_pattern": "foo-*",
				"fields": {
					"node": [{"agg": "terms"}],
					"temperature": [{"agg": "min"}, {"agg": "max"}, {"agg": "sum"}],
					"timestamp": [{"agg": "date_histogram", "time_zone": "UTC", "interval": "1h", "delay": "7d"}],
					"voltage": [{"agg": "histogram", "interval": 5}, {"agg": "sum"}]
				}
			},
			{
				"job_id": "foo2",
				"rollup_index": "foo_rollup",
				"index_pattern": "foo-*",
				"fields": {
					"host": [{"agg": "terms"}],
					"temperature": [{"agg": "min"}, {"agg": "max"}],
					"timestamp": [{"agg": "date_histogram", "time_zone": "UTC", "fixed_interval": "1h", "delay": "7d"}],
					"voltage": [{"agg": "histogram", "interval": 5}]
				}
			}
		]
	}
}`

func expectedSingleJobTree() common.AggregationTree {
	return common.AggregationTree{
		common.TermsAggregation: {
			"node": {Agg: common.TermsAggregation},
		},
		common.MinAggregation: {
			"temperature": {Agg: common.MinAggregation},
		},
		common.MaxAggregation: {
			"temperature": {Agg: common.MaxAggregation},
		},
		common.SumAggregation: {
			"temperature": {Agg: common.SumAggregation},
			"voltage":     {Agg: common.SumAggregation},
		},
		common.DateHistogramAggregation: {
			"timestamp": {
				Agg:          common.DateHistogramAggregation,
				TimeZone:     "UTC",
				DateInterval: "1h",
				Delay:        "7d",
			},
		},
		common.HistogramAggregation: {
			"voltage": {Agg: common.HistogramAggregation, HistogramInterval: 5},
		},
	}
}

func expectedTwoJobsTree() common.AggregationTree {
	tree := expectedSingleJobTree()
	tree[common.TermsAggregation]["host"] = common.AggregationParams{Agg: common.TermsAggregation}

	return tree
}
