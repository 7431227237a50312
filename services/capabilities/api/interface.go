package api

import (
	"context"

	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/common"
)

// Storage defines the interface for persisting and querying rollup job definitions
type Storage interface {
	// SaveJob inserts or replaces a job definition
	SaveJob(ctx context.Context, job common.Job) error

	// SaveJobs inserts or replaces several job definitions at once
	SaveJobs(ctx context.Context, jobs []common.Job) error

	// GetJob returns a single job definition
	GetJob(ctx context.Context, name string) (*common.Job, error)

	// GetJobs returns the job definitions of a rollup index in registration order, all of them for an empty index
	GetJobs(ctx context.Context, rollupIndex string) ([]common.Job, error)

	// DeleteJob removes a job definition
	DeleteJob(ctx context.Context, name string) error

	// Close shuts down the database connection
	Close() error

	IsInterfaceNil() bool
}

// JobsMerger defines the compatibility check and the merge of rollup job configurations
type JobsMerger interface {
	AreJobsCompatible(jobs []common.Job) bool
	AreJobsCompatibleJSON(data []byte) bool
	MergeJobConfigurations(jobs []common.Job) (*common.MergedAggregations, error)
	MergeJobConfigurationsJSON(data []byte) (*common.MergedAggregations, error)
	IsInterfaceNil() bool
}
