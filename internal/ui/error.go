package ui

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/safedep/blpfs/usefulerror"
	"github.com/safedep/dry/log"
)

// ErrorExit prints a minimal, clean error message and exits with a non-zero status code.
func ErrorExit(err error) {
	log.Errorf("Exiting due to error: %s", err)

	usefulErr := convertToUsefulError(err)

	// Use help as hint, but for unknown errors show bug report link
	hint := usefulErr.Help()
	if usefulErr.Code() == usefulerror.ErrCodeUnknown {
		hint = "Report this issue: https://github.com/safedep/blpfs/issues/new?labels=bug"
	}

	printMinimalError(usefulErr.Code(), usefulErr.HumanError(), hint)

	os.Exit(1)
}

// printMinimalError prints error in minimal two-line format:
func printMinimalError(code, message, hint string) {
	fmt.Printf("%s  %s\n", Colors.ErrorCode(" %s ", code), Colors.Red(message))

	if hint != "" && hint != "No additional help is available for this error." {
		fmt.Printf(" %s %s\n", Colors.Dim("→"), Colors.Dim(hint))
	}
}

// convertToUsefulError maps arbitrary errors onto the two error
// families. Policy denials and substrate errors arrive already coded;
// everything else is classified by its OS error kind or falls back to
// Unknown.
func convertToUsefulError(err error) usefulerror.UsefulError {
	if ue, ok := usefulerror.AsUsefulError(err); ok {
		return ue
	}

	if errors.Is(err, os.ErrNotExist) || errors.Is(err, fs.ErrNotExist) {
		return usefulerror.Useful().
			WithCode(usefulerror.ErrCodeNotFound).
			WithHumanError("File or directory not found").
			WithHelp("Check if the path exists").
			Wrap(err)
	}

	if errors.Is(err, os.ErrPermission) || errors.Is(err, fs.ErrPermission) {
		return usefulerror.Useful().
			WithCode(usefulerror.ErrCodePermissionDenied).
			WithHumanError("Permission denied").
			WithHelp("The security policy denied the operation; see the audit log for the reason").
			Wrap(err)
	}

	return usefulerror.Useful().
		WithCode(usefulerror.ErrCodeUnknown).
		WithHumanError(err.Error()).
		Wrap(err)
}
