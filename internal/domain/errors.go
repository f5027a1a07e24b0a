package domain

import "errors"

var (
	// ErrProductNotFound is returned when the lookup collaborator has no record of a UPC
	ErrProductNotFound = errors.New("product not found")

	// ErrProductLookupFailed is returned when the lookup collaborator cannot be reached
	ErrProductLookupFailed = errors.New("product lookup failed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrReasoningFailed is returned when the reasoning service call fails
	ErrReasoningFailed = errors.New("reasoning service request failed")

	// ErrReasoningTimeout is returned when the reasoning service does not answer in time
	ErrReasoningTimeout = errors.New("reasoning service timed out")

	// ErrUnparseableResponse is returned when no structured analysis can be recovered
	ErrUnparseableResponse = errors.New("unparseable analysis response")

	// ErrSimilarityUnavailable is returned when the similarity search backend fails
	ErrSimilarityUnavailable = errors.New("similarity search unavailable")

	// ErrEmbeddingFailed is returned when an embedding cannot be generated or is invalid
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)
