package usefulerror

// Standard error codes that can be re-used across the project.
// We will use a human friendly format for the error codes and not align with posix error codes.
// Keep this minimal. Reuse first before adding new ones.
//
// Two disjoint families exist: policy errors are always PermissionDenied
// (the audit record carries the sub-reason), while substrate errors keep
// their own codes. The filesystem layer maps each family to its errno.
const (
	ErrCodeInvalidArgument  = "InvalidArgument"
	ErrCodePermissionDenied = "PermissionDenied"
	ErrCodeNotFound         = "NotFound"
	ErrCodeIsADirectory     = "IsADirectory"
	ErrCodeNotADirectory    = "NotADirectory"
	ErrCodeIOError          = "IOError"
	ErrCodeUnknown          = "Unknown"
	ErrCodeLifecycle        = "Lifecycle"
)

// PolicyDenied builds the uniform policy-denial error. The reason is
// kept out of the human-readable message; it appears only in Error()
// and in the audit trail.
func PolicyDenied(msg string) UsefulError {
	return Useful().
		WithCode(ErrCodePermissionDenied).
		WithHumanError("Permission denied by the security policy").
		Msg(msg)
}

// IsPolicyDenied reports whether err belongs to the policy family.
func IsPolicyDenied(err error) bool {
	ue, ok := AsUsefulError(err)
	return ok && ue.Code() == ErrCodePermissionDenied
}
