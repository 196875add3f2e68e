package vm

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/stacc/compiler"
)

func imageSource(t *testing.T) *Interpreter {
	t.Helper()
	in, _ := mustRun(t, `set name "stacc \"img\""
set n 2.5
set flag false
begin scale : a b
    push a * b
end
push 3
push "top"
`)
	return in
}

func TestImageRoundTrip(t *testing.T) {
	src := imageSource(t)
	data, err := MarshalImage(src.State())
	if err != nil {
		t.Fatalf("MarshalImage error: %v", err)
	}

	snap, err := UnmarshalImage(data)
	if err != nil {
		t.Fatalf("UnmarshalImage error: %v", err)
	}
	want := src.State()
	for _, name := range want.Names() {
		got, ok := snap.Variables[name]
		if !ok {
			t.Errorf("variable %s missing", name)
			continue
		}
		if got.TypeName() != want.Variables[name].TypeName() || got.String() != want.Variables[name].String() {
			t.Errorf("%s = %v, want %v", name, got, want.Variables[name])
		}
	}
	if got := len(snap.Stack); got != 2 {
		t.Fatalf("stack len = %d, want 2", got)
	}
	if snap.Stack[0] != Number(3) || snap.Stack[1] != String("top") {
		t.Errorf("stack = %v, want [3 top]", snap.Stack)
	}

	// The decoded function is callable.
	var out bytes.Buffer
	in := New(WithOutput(&out))
	in.Restore(snap)
	stmts, _ := compiler.Parse("push 4\npush n\ncall scale\nprint pop\n")
	if err := in.Run(stmts); err != nil {
		t.Fatalf("Run after restore: %v", err)
	}
	if out.String() != "10\n" {
		t.Errorf("output = %q, want %q", out.String(), "10\n")
	}
}

func TestImageDeterministic(t *testing.T) {
	src := imageSource(t)
	a, err := MarshalImage(src.State())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		b, err := MarshalImage(src.State())
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a, b) {
			t.Fatal("encoding the same state twice produced different bytes")
		}
	}
}

func TestImageEmpty(t *testing.T) {
	data, err := MarshalImage(New().State())
	if err != nil {
		t.Fatal(err)
	}
	snap, err := UnmarshalImage(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Variables) != 0 || len(snap.Stack) != 0 {
		t.Errorf("snapshot = %+v, want empty", snap)
	}
}

func TestImageErrors(t *testing.T) {
	if _, err := UnmarshalImage([]byte{0xff, 0x00}); err == nil {
		t.Error("garbage input should fail")
	}

	data, _ := imageEncMode.Marshal(image{Version: 99})
	if _, err := UnmarshalImage(data); !errors.Is(err, ErrImageVersion) {
		t.Errorf("version error = %v, want ErrImageVersion", err)
	}

	bad := []imageValue{
		{Kind: "mystery"},
		{Kind: kindFunction, Source: "push 1\n"},
		{Kind: kindFunction, Source: "begin f :\n"},
		{Kind: kindFunction, Source: "begin f :\npop\nend\nbegin g :\npop\nend\n"},
	}
	for _, rec := range bad {
		data, _ := imageEncMode.Marshal(image{Version: imageVersion, Stack: []imageValue{rec}})
		if _, err := UnmarshalImage(data); err == nil {
			t.Errorf("record %+v should fail to decode", rec)
		}
	}
}

func TestSaveLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.img")
	src := imageSource(t)
	if err := SaveImage(path, src.State()); err != nil {
		t.Fatalf("SaveImage error: %v", err)
	}
	snap, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage error: %v", err)
	}
	if got := snap.Variables["name"]; got != String(`stacc \"img\"`) {
		t.Errorf("name = %v", got)
	}

	if _, err := LoadImage(filepath.Join(t.TempDir(), "missing.img")); err == nil {
		t.Error("LoadImage of a missing file should fail")
	}
}
