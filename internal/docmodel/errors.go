package docmodel

import "errors"

// Sentinel errors for MultiVector validation, reused by the vector store
// adapter and the embedding coordinator.
var (
	ErrEmptyMultiVector  = errors.New("docmodel: multi-vector sequence is empty")
	ErrDimensionMismatch = errors.New("docmodel: multi-vector row dimension mismatch")
	ErrNonFiniteVector   = errors.New("docmodel: multi-vector contains a non-finite value")
)
