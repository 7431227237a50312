package testsCommon

import (
	"context"

	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/common"
)

// StoreStub -
type StoreStub struct {
	SaveJobHandler   func(ctx context.Context, job common.Job) error
	SaveJobsHandler  func(ctx context.Context, jobs []common.Job) error
	GetJobHandler    func(ctx context.Context, name string) (*common.Job, error)
	GetJobsHandler   func(ctx context.Context, rollupIndex string) ([]common.Job, error)
	DeleteJobHandler func(ctx context.Context, name string) error
	CloseHandler     func() error
}

// SaveJob -
func (stub *StoreStub) SaveJob(ctx context.Context, job common.Job) error {
	if stub.SaveJobHandler != nil {
		return stub.SaveJobHandler(ctx, job)
	}

	return nil
}

// SaveJobs -
func (stub *StoreStub) SaveJobs(ctx context.Context, jobs []common.Job) error {
	if stub.SaveJobsHandler != nil {
		return stub.SaveJobsHandler(ctx, jobs)
	}

	return nil
}

// GetJob -
func (stub *StoreStub) GetJob(ctx context.Context, name string) (*common.Job, error) {
	if stub.GetJobHandler != nil {
		return stub.GetJobHandler(ctx, name)
	}

	return &common.Job{}, nil
}

// GetJobs -
func (stub *StoreStub) GetJobs(ctx context.Context, rollupIndex string) ([]common.Job, error) {
	if stub.GetJobsHandler != nil {
		return stub.GetJobsHandler(ctx, rollupIndex)
	}

	return make([]common.Job, 0), nil
}

// DeleteJob -
func (stub *StoreStub) DeleteJob(ctx context.Context, name string) error {
	if stub.DeleteJobHandler != nil {
		return stub.DeleteJobHandler(ctx, name)
	}

	return nil
}

// Close -
func (stub *StoreStub) Close() error {
	if stub.CloseHandler != nil {
		return stub.CloseHandler()
	}

	return nil
}

// IsInterfaceNil -
func (stub *StoreStub) IsInterfaceNil() bool {
	return stub == nil
}
