package logging

import "testing"

func TestNew_DefaultLevelIsInfo(t *testing.T) {
	t.Setenv(EnvLevel, "")
	t.Setenv(EnvFormat, "")

	logger := New("docowner")
	if logger.GetLevel().String() != "info" {
		t.Errorf("default level = %q, want info", logger.GetLevel().String())
	}
}

func TestNew_HonorsLevelOverride(t *testing.T) {
	t.Setenv(EnvLevel, "debug")
	defer t.Setenv(EnvLevel, "")

	logger := New("docuser")
	if logger.GetLevel().String() != "debug" {
		t.Errorf("level = %q, want debug", logger.GetLevel().String())
	}
}

func TestNew_IgnoresInvalidLevel(t *testing.T) {
	t.Setenv(EnvLevel, "not-a-level")
	defer t.Setenv(EnvLevel, "")

	logger := New("docowner")
	if logger.GetLevel().String() != "info" {
		t.Errorf("level = %q, want info fallback", logger.GetLevel().String())
	}
}
