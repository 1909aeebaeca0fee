package llm

import (
	"errors"
	"regexp"
	"strings"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
)

// Error kinds. They are for diagnostics; callers surface every kind the same way.
var (
	// ErrConfig means no usable credential is configured
	ErrConfig = errors.New("llm configuration error")
	// ErrAuth means the endpoint rejected the credential
	ErrAuth = errors.New("llm authentication error")
	// ErrTransport covers everything else: network, rate limit, malformed or empty response
	ErrTransport = errors.New("llm transport error")
)

// Error is returned by every Client operation
type Error struct {
	Kind error  // ErrConfig, ErrAuth or ErrTransport
	Op   string // "plan", "code", "improve", or "init"
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error's kind so errors.Is(err, ErrAuth) works
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

var statusRe = regexp.MustCompile(`\b(401|403)\b`)

// classify picks the kind for a provider failure
func classify(err error) error {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		switch re.HTTPStatusCode() {
		case 401, 403:
			return ErrAuth
		}
		return ErrTransport
	}

	msg := strings.ToLower(err.Error())
	if statusRe.MatchString(msg) ||
		strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "incorrect api key") ||
		strings.Contains(msg, "unauthorized") {
		return ErrAuth
	}
	return ErrTransport
}
