package cli

import (
	"errors"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/vburojevic/calltrace/internal/domain"
	"github.com/vburojevic/calltrace/internal/frontier"
	"github.com/vburojevic/calltrace/internal/intent"
)

func hintFor(err error) string {
	if err == nil {
		return ""
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.Hint != "" {
		return cliErr.Hint
	}

	switch {
	case errors.Is(err, intent.ErrNoIdentifiers):
		return "Pass identifiers as arguments, e.g. `calltrace search session_id=abc123`, or label them in --query"
	case errors.Is(err, frontier.ErrNoSeeds):
		return "Every identifier was empty or a placeholder value (null, N/A, unknown, all-zero ids, NA_ prefixes)"
	case errors.Is(err, domain.ErrNoCredentials):
		return hintForCredentials()
	case errors.Is(err, domain.ErrUnresolvedTarget):
		return "Add the index to `endpoints` in the config file; see `calltrace config show`"
	case errors.Is(err, domain.ErrClassifier):
		return hintForClassifier(err)
	}

	var transport *domain.TransportError
	if errors.As(err, &transport) {
		return hintForTransport(transport)
	}
	return ""
}

func hintForCredentials() string {
	return "Set OPENSEARCH_OAUTH_NAME, _PASSWORD, _CLIENT_ID, _CLIENT_SECRET, _SCOPE, _BEARER_TOKEN_URL and _TOKEN_URL (suffix _INT for integration), or OPENSEARCH_OAUTH_TOKEN; check with `calltrace token`"
}

func hintForTransport(err *domain.TransportError) string {
	switch err.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "The cluster rejected the token; check the credentials with `calltrace token`"
	case http.StatusNotFound:
		return "The index does not exist on that endpoint; check `indexes` and `endpoints` in the config file"
	case 0:
		return "The cluster could not be reached; check VPN/proxy settings and `endpoints` in the config file"
	}
	return ""
}

func hintForClassifier(err error) string {
	if isCommandNotFound(err, "") {
		return "The classifier command was not found; check --classifier-cmd or classifier.command"
	}
	return "The classifier must print a JSON object such as {\"session_ids\": [...], \"tracking_ids\": [...]}"
}

func isCommandNotFound(err error, name string) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, exec.ErrNotFound) && name == "" {
		return true
	}

	var ee *exec.Error
	if errors.As(err, &ee) && strings.EqualFold(ee.Name, name) && errors.Is(ee.Err, exec.ErrNotFound) {
		return true
	}

	var pe *os.PathError
	if errors.As(err, &pe) && errors.Is(pe.Err, exec.ErrNotFound) {
		if strings.EqualFold(pe.Path, name) || strings.HasSuffix(pe.Path, string(os.PathSeparator)+name) {
			return true
		}
	}

	// Fallback to string matching for wrapped errors.
	msg := err.Error()
	if strings.Contains(msg, "executable file not found") && strings.Contains(msg, name) {
		return true
	}
	if strings.Contains(msg, "command not found") && strings.Contains(msg, name) {
		return true
	}

	return false
}
