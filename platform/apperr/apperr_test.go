package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("Lead not found"), http.StatusNotFound},
		{Forbidden("denied"), http.StatusForbidden},
		{BadRequest("missing"), http.StatusBadRequest},
		{Validation("invalid"), http.StatusBadRequest},
		{Conflict("already confirmed"), http.StatusConflict},
		{Unauthorized("no token"), http.StatusUnauthorized},
		{Internal("boom"), http.StatusInternalServerError},
		{New(KindUnknown, "?"), http.StatusBadRequest},
	}

	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Errorf("kind %d: HTTPStatus() = %d, want %d", tc.err.Kind, got, tc.want)
		}
	}
}

func TestGetKindFollowsWrappedChain(t *testing.T) {
	base := Conflict("Referral has already been confirmed.")
	wrapped := fmt.Errorf("confirm referral: %w", base)

	if !Is(wrapped, KindConflict) {
		t.Fatalf("expected wrapped error to report KindConflict, got %d", GetKind(wrapped))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("expected plain error to report KindUnknown")
	}
}

func TestErrorStringIncludesOp(t *testing.T) {
	err := Internal("insert failed").WithOp("referrals.repository.create")
	if err.Error() != "referrals.repository.create: insert failed" {
		t.Fatalf("unexpected error string %q", err.Error())
	}

	cause := errors.New("conn reset")
	wrapped := Wrap(KindInternal, "insert failed", cause)
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected Wrap to keep the cause reachable")
	}
}
