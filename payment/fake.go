package payment

import (
	"context"
	"sync"
)

// FakeGateway is an in-memory Gateway for handler tests.
type FakeGateway struct {
	mu sync.Mutex

	InitResponse InitResponse
	InitErr      error
	Validations  map[string]Validation
	ValidateErr  error

	Requests []InitRequest
}

func (f *FakeGateway) Initiate(_ context.Context, req InitRequest) (InitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	return f.InitResponse, f.InitErr
}

func (f *FakeGateway) Validate(_ context.Context, valID string) (Validation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ValidateErr != nil {
		return Validation{}, f.ValidateErr
	}
	v, ok := f.Validations[valID]
	if !ok {
		return Validation{Status: "INVALID_TRANSACTION"}, nil
	}
	return v, nil
}
