package envreader

import (
	"os"
	"reflect"
	"testing"
)

func TestEnvReader_GetEnv(t *testing.T) {
	os.Setenv("ENVREADER_TEST_PRESENT", "value")
	defer os.Unsetenv("ENVREADER_TEST_PRESENT")
	os.Unsetenv("ENVREADER_TEST_MISSING")

	r := &EnvReader{}
	if got := r.GetEnv("ENVREADER_TEST_PRESENT"); got != "value" {
		t.Errorf("GetEnv() = %q, want %q", got, "value")
	}
	if r.Errors {
		t.Errorf("Errors set after reading a present key")
	}
	if got := r.GetEnv("ENVREADER_TEST_MISSING"); got != "" {
		t.Errorf("GetEnv() = %q, want empty", got)
	}
	if !r.Errors {
		t.Errorf("Errors not set after reading a missing key")
	}
	if !reflect.DeepEqual(r.MissingKeys, []string{"ENVREADER_TEST_MISSING"}) {
		t.Errorf("MissingKeys = %v, want [ENVREADER_TEST_MISSING]", r.MissingKeys)
	}
}

func TestEnvReader_GetEnvBoolOpt(t *testing.T) {
	os.Setenv("ENVREADER_TEST_BOOL", "true")
	defer os.Unsetenv("ENVREADER_TEST_BOOL")

	r := &EnvReader{}
	if got := r.GetEnvBoolOpt("ENVREADER_TEST_BOOL"); got != true {
		t.Errorf("GetEnvBoolOpt() = %v, want true", got)
	}
	if got := r.GetEnvBoolOpt("ENVREADER_TEST_BOOL_MISSING"); got != false {
		t.Errorf("GetEnvBoolOpt() = %v, want false", got)
	}
	if r.Errors {
		t.Errorf("optional reads must not record errors")
	}
}
