package key

import "testing"

func TestModifierHas(t *testing.T) {
	m := ModCtrl | ModShift

	if !m.HasCtrl() {
		t.Error("Expected Ctrl to be set")
	}
	if !m.HasShift() {
		t.Error("Expected Shift to be set")
	}
	if m.HasAlt() {
		t.Error("Expected Alt to be unset")
	}
	if m.HasMeta() {
		t.Error("Expected Meta to be unset")
	}
}

func TestModifierWithWithout(t *testing.T) {
	m := ModNone.With(ModCtrl).With(ModAlt)
	if !m.HasCtrl() || !m.HasAlt() {
		t.Errorf("Expected Ctrl+Alt, got %v", m)
	}

	m = m.Without(ModCtrl)
	if m.HasCtrl() {
		t.Error("Expected Ctrl to be removed")
	}
	if !m.HasAlt() {
		t.Error("Expected Alt to survive")
	}
}

func TestModifierIsEmpty(t *testing.T) {
	if !ModNone.IsEmpty() {
		t.Error("ModNone should be empty")
	}
	if ModCtrl.IsEmpty() {
		t.Error("ModCtrl should not be empty")
	}
}

func TestModifierString(t *testing.T) {
	tests := []struct {
		mod  Modifier
		want string
	}{
		{ModNone, ""},
		{ModCtrl, "Ctrl"},
		{ModCtrl | ModAlt, "Ctrl+Alt"},
		{ModCtrl | ModShift | ModMeta, "Ctrl+Shift+Meta"},
	}

	for _, tt := range tests {
		if got := tt.mod.String(); got != tt.want {
			t.Errorf("Modifier.String() = %q, want %q", got, tt.want)
		}
	}
}
