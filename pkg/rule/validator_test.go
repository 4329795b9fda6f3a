package rule_test

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/yeisme/codespace/pkg/rule"
)

type submission struct {
	ID   string `rule:"required,max=8"`
	Path string `rule:"wspath"`
}

func TestValidateStruct(t *testing.T) {
	if err := rule.ValidateStruct(submission{ID: "s1", Path: "src/main.go"}); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}

	errs := rule.Errors(rule.ValidateStruct(submission{ID: "too-long-id", Path: "/etc/passwd"}))
	if errs["ID"] != "max=8" || errs["Path"] != rule.TagWorkspacePath {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if rule.Errors(nil) != nil {
		t.Fatal("nil error should yield nil")
	}
}

func TestRelPath(t *testing.T) {
	for _, ok := range []string{"a.txt", "src/pkg/a.go", ".sync/state", "a..b/c"} {
		if err := rule.ValidateVar(ok, rule.TagRelPath); err != nil {
			t.Errorf("%q should be accepted: %v", ok, err)
		}
	}

	for _, bad := range []string{"", "/abs", "../x", "a/../../x", "a\\b", "a\x00b"} {
		if err := rule.ValidateVar(bad, rule.TagRelPath); err == nil {
			t.Errorf("%q should be rejected", bad)
		}
	}
}

func TestRegisterValidationAndAlias(t *testing.T) {
	err := rule.RegisterValidation("even_length", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String())%2 == 0
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	rule.RegisterAlias("short_even", "required,max=4,even_length")

	if err := rule.ValidateVar("ab", "short_even"); err != nil {
		t.Fatalf("ab should pass: %v", err)
	}

	for _, bad := range []string{"", "abc", "abcdef"} {
		if err := rule.ValidateVar(bad, "short_even"); err == nil {
			t.Errorf("%q should fail", bad)
		}
	}
}

func TestEngineShared(t *testing.T) {
	if rule.Engine() != rule.Engine() {
		t.Fatal("engine should be a singleton")
	}
}
