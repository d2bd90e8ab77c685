package domain

// ResultStatus is the status column of a Result Store row.
// Any other value is treated as a remote failure.
type ResultStatus string

const (
	ResultPending   ResultStatus = "PENDING"
	ResultCompleted ResultStatus = "COMPLETED"
	ResultError     ResultStatus = "ERROR"
)
