package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies prediction failures.
type ErrorKind string

const (
	KindInvalidRequest    ErrorKind = "invalid_request"
	KindLearnerNotFound   ErrorKind = "learner_not_found"
	KindAggregation       ErrorKind = "aggregation_failure"
	KindDomainUnavailable ErrorKind = "domain_unavailable"
	KindCanceled          ErrorKind = "canceled"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrLearnerNotFound    = errors.New("learner not found")
	ErrAggregationFailure = errors.New("aggregation failure")
	ErrDomainUnavailable  = errors.New("domain unavailable")
	ErrCanceled           = errors.New("prediction canceled")
)

// PredictionError carries the kind, the offending field (for invalid requests)
// and a machine-readable reason code.
type PredictionError struct {
	Kind   ErrorKind
	Field  string
	Reason string
	Err    error
}

func (e *PredictionError) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *PredictionError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error kind.
func (e *PredictionError) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

func sentinelFor(k ErrorKind) error {
	switch k {
	case KindInvalidRequest:
		return ErrInvalidRequest
	case KindLearnerNotFound:
		return ErrLearnerNotFound
	case KindAggregation:
		return ErrAggregationFailure
	case KindDomainUnavailable:
		return ErrDomainUnavailable
	case KindCanceled:
		return ErrCanceled
	}
	return nil
}

func InvalidRequest(field, reason string) *PredictionError {
	return &PredictionError{Kind: KindInvalidRequest, Field: field, Reason: reason}
}

func LearnerNotFound(learnerID string, err error) *PredictionError {
	return &PredictionError{Kind: KindLearnerNotFound, Reason: learnerID, Err: err}
}

func AggregationFailure(err error) *PredictionError {
	return &PredictionError{Kind: KindAggregation, Err: err}
}

func DomainUnavailable(domain, reason string, err error) *PredictionError {
	return &PredictionError{Kind: KindDomainUnavailable, Field: domain, Reason: reason, Err: err}
}

func Canceled(err error) *PredictionError {
	return &PredictionError{Kind: KindCanceled, Err: err}
}

// KindOf returns the kind of a prediction error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var pe *PredictionError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
