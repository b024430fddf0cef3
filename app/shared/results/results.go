package results

// OperationResult separates domain failures from infrastructure errors in
// service return values. Exactly one of Success or Failure is set on a valid
// result; the zero value represents neither (used after panics).
type OperationResult[S any, F any] struct {
	Success *S
	Failure *F
}

// SuccessResult wraps a success value.
func SuccessResult[S any, F any](value S) OperationResult[S, F] {
	return OperationResult[S, F]{Success: &value}
}

// FailureResult wraps a domain failure value.
func FailureResult[S any, F any](value F) OperationResult[S, F] {
	return OperationResult[S, F]{Failure: &value}
}

func (r OperationResult[S, F]) IsSuccess() bool {
	return r.Success != nil
}

func (r OperationResult[S, F]) IsFailure() bool {
	return r.Failure != nil
}
