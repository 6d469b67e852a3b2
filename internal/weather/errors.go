package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks a provider call that produced no usable data.
	ErrTransport = errors.New("provider transport failure")
	// ErrMisaligned marks parallel series of different lengths.
	ErrMisaligned = errors.New("misaligned time series")
)

// StoreError is a failed operation against a persisted table. It aborts
// the current run.
type StoreError struct {
	Table string
	Op    string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(table, op string, err error) error {
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Table: table, Op: op, Err: err}
}
