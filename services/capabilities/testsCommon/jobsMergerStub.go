package testsCommon

import "github.com/iulianpascalau/rollup-capabilities/services/capabilities/common"

// JobsMergerStub -
type JobsMergerStub struct {
	AreJobsCompatibleHandler          func(jobs []common.Job) bool
	AreJobsCompatibleJSONHandler      func(data []byte) bool
	MergeJobConfigurationsHandler     func(jobs []common.Job) (*common.MergedAggregations, error)
	MergeJobConfigurationsJSONHandler func(data []byte) (*common.MergedAggregations, error)
}

// AreJobsCompatible -
func (stub *JobsMergerStub) AreJobsCompatible(jobs []common.Job) bool {
	if stub.AreJobsCompatibleHandler != nil {
		return stub.AreJobsCompatibleHandler(jobs)
	}

	return true
}

// AreJobsCompatibleJSON -
func (stub *JobsMergerStub) AreJobsCompatibleJSON(data []byte) bool {
	if stub.AreJobsCompatibleJSONHandler != nil {
		return stub.AreJobsCompatibleJSONHandler(data)
	}

	return true
}

// MergeJobConfigurations -
func (stub *JobsMergerStub) MergeJobConfigurations(jobs []common.Job) (*common.MergedAggregations, error) {
	if stub.MergeJobConfigurationsHandler != nil {
		return stub.MergeJobConfigurationsHandler(jobs)
	}

	return &common.MergedAggregations{Aggs: make(common.AggregationTree)}, nil
}

// MergeJobConfigurationsJSON -
func (stub *JobsMergerStub) MergeJobConfigurationsJSON(data []byte) (*common.MergedAggregations, error) {
	if stub.MergeJobConfigurationsJSONHandler != nil {
		return stub.MergeJobConfigurationsJSONHandler(data)
	}

	return &common.MergedAggregations{Aggs: make(common.AggregationTree)}, nil
}

// IsInterfaceNil -
func (stub *JobsMergerStub) IsInterfaceNil() bool {
	return stub == nil
}
