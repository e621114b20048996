package cli

import (
	"errors"

	"github.com/vburojevic/calltrace/internal/domain"
	"github.com/vburojevic/calltrace/internal/frontier"
	"github.com/vburojevic/calltrace/internal/intent"
)

// Error codes
const (
	CodeInvalidFlags      = "INVALID_FLAGS"
	CodeInvalidConfig     = "INVALID_CONFIG"
	CodeNoIdentifiers     = "NO_IDENTIFIERS"
	CodeNoSeeds           = "NO_SEEDS"
	CodeNoCredentials     = "NO_CREDENTIALS"
	CodeUnresolvedTarget  = "UNRESOLVED_TARGET"
	CodeSearchFailed      = "SEARCH_FAILED"
	CodeClassifierFailed  = "CLASSIFIER_FAILED"
	CodeTokenFailed       = "TOKEN_FAILED"
	CodeOutputFailed      = "OUTPUT_FAILED"
	CodeMetricsFailed     = "METRICS_FAILED"
	CodeTraversalCanceled = "CANCELED"
)

// codeFor maps an error to its machine-readable code
func codeFor(err error, fallback string) string {
	var cliErr *CLIError
	var transport *domain.TransportError
	switch {
	case errors.As(err, &cliErr):
		return cliErr.Code
	case errors.Is(err, intent.ErrNoIdentifiers):
		return CodeNoIdentifiers
	case errors.Is(err, frontier.ErrNoSeeds):
		return CodeNoSeeds
	case errors.Is(err, domain.ErrNoCredentials):
		return CodeNoCredentials
	case errors.Is(err, domain.ErrUnresolvedTarget):
		return CodeUnresolvedTarget
	case errors.Is(err, domain.ErrClassifier):
		return CodeClassifierFailed
	case errors.As(err, &transport):
		return CodeSearchFailed
	default:
		return fallback
	}
}

// outputErrorCommon normalizes error emission across commands, respecting
// ndjson vs text formats so callers always get machine-readable failures.
func outputErrorCommon(globals *Globals, code string, err error) error {
	if globals == nil {
		return err
	}
	return emitError(globals, globals.Writer(), codeFor(err, code), err.Error(), hintFor(err))
}
