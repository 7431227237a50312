package rollup

import "errors"

// ErrNoJobs signals that a merge was requested without any job
var ErrNoJobs = errors.New("no capabilities available")

// ErrNotJobList signals that the provided payload is not a list of jobs
var ErrNotJobList = errors.New("jobs argument is not a list")

// ErrInvalidJobs signals a malformed job definition
var ErrInvalidJobs = errors.New("invalid job definition")

// ErrIncompatibleJobs signals that the jobs can not be merged into a single aggregation tree
var ErrIncompatibleJobs = errors.New("jobs are not compatible")

// ErrUnknownHistogramPolicy signals an unsupported histogram interval policy
var ErrUnknownHistogramPolicy = errors.New("unknown histogram interval policy")
