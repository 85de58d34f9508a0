package handler

const (
	errInternalServer = "Internal server error"
	errJobNotFound    = "Job not found"
	errBatchNotFound  = "Batch not found"
	errInvalidURL     = "Invalid URL"
)
