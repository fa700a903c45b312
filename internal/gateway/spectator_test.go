package gateway

import (
	"errors"
	"testing"
)

func TestStaticValidator(t *testing.T) {
	open := StaticValidator{}
	if err := open.Validate("ABC123", "anything"); err != nil {
		t.Fatalf("empty key must accept every credential, got %v", err)
	}

	keyed := StaticValidator{Key: "s3cret"}
	if err := keyed.Validate("ABC123", "s3cret"); err != nil {
		t.Fatalf("matching credential rejected: %v", err)
	}
	if err := keyed.Validate("ABC123", "wrong"); !errors.Is(err, ErrBadCredential) {
		t.Fatalf("expected ErrBadCredential, got %v", err)
	}
}
