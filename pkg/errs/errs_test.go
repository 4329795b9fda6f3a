package errs_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/yeisme/codespace/pkg/errs"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load workspace: %w", errs.NotFound("workspace %s not found", "w1"))

	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected errors.Is to match ErrNotFound")
	}

	if errors.Is(err, errs.ErrConflict) {
		t.Fatalf("NotFound must not match ErrConflict")
	}
}

func TestFromClassifiesDeadline(t *testing.T) {
	e := errs.From(fmt.Errorf("put object: %w", context.DeadlineExceeded))
	if e.Code != errs.CodeUpstreamTimeout {
		t.Fatalf("expected UPSTREAM_TIMEOUT, got %s", e.Code)
	}

	if !errors.Is(e, context.DeadlineExceeded) {
		t.Fatalf("cause should stay reachable through Unwrap")
	}
}

func TestFromKeepsDomainError(t *testing.T) {
	orig := errs.Immutable("snapshot").With("workspace_id", "w1")

	got := errs.From(fmt.Errorf("retire: %w", orig))
	if got != orig {
		t.Fatalf("expected the wrapped domain error to be returned as is")
	}

	if got.Details["workspace_id"] != "w1" {
		t.Fatalf("details lost: %v", got.Details)
	}
}

func TestUnknownErrorIsInternal(t *testing.T) {
	if code := errs.CodeOf(errors.New("boom")); code != errs.CodeInternal {
		t.Fatalf("expected INTERNAL, got %s", code)
	}

	if code := errs.CodeOf(nil); code != "" {
		t.Fatalf("expected empty code for nil, got %s", code)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[errs.Code]int{
		errs.CodeNotFound:            http.StatusNotFound,
		errs.CodeImmutableResource:   http.StatusConflict,
		errs.CodePermissionDenied:    http.StatusForbidden,
		errs.CodeConflict:            http.StatusConflict,
		errs.CodeUpstreamTimeout:     http.StatusGatewayTimeout,
		errs.CodeUpstreamUnavailable: http.StatusServiceUnavailable,
		errs.CodeValidation:          http.StatusBadRequest,
		errs.CodeInternal:            http.StatusInternalServerError,
	}

	for code, want := range cases {
		if got := errs.HTTPStatus(code); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestErrorMessageHidesNothingButDetailsStayStructured(t *testing.T) {
	e := errs.Validation("path %q is invalid", "../x").Wrap(errors.New("traversal"))

	if e.Message != `path "../x" is invalid` {
		t.Fatalf("unexpected message %q", e.Message)
	}

	if e.Error() == e.Message {
		t.Fatalf("Error() should include the code and cause for logs")
	}
}

func TestBodyNeverSerializesCause(t *testing.T) {
	err := fmt.Errorf("load: %w", errs.NotFound("workspace %s not found", "w1").
		With("workspace_id", "w1").
		Wrap(errors.New("dial tcp 10.0.0.3:5432")))

	b, mErr := sonic.Marshal(errs.Body(err))
	if mErr != nil {
		t.Fatalf("marshal: %v", mErr)
	}

	body := string(b)
	if strings.Contains(body, "10.0.0.3") {
		t.Fatalf("cause leaked into body: %s", body)
	}

	for _, want := range []string{`"code":"NOT_FOUND"`, `"workspace_id":"w1"`, `"error":{`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body %s missing %s", body, want)
		}
	}

	if body := errs.Body(errors.New("boom")); body.Error.Code != errs.CodeInternal || body.Error.Message != "internal error" {
		t.Fatalf("unclassified error body = %+v", body.Error)
	}
}
