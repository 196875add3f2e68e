package vm

import (
	"errors"
	"fmt"
	"os"

	"github.com/chazu/stacc/compiler"
	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Image: CBOR encoding of global state
// ---------------------------------------------------------------------------

// imageVersion is bumped whenever the record layout changes.
const imageVersion = 1

// Value kinds in an image record.
const (
	kindFunction = "function"
	kindString   = "string"
	kindNumber   = "number"
	kindBool     = "boolean"
)

var imageEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	imageEncMode = em
}

// imageValue is one value. Functions are stored as formatted source.
type imageValue struct {
	Kind   string  `cbor:"1,keyasint"`
	Str    string  `cbor:"2,keyasint,omitempty"`
	Num    float64 `cbor:"3,keyasint"`
	Bool   bool    `cbor:"4,keyasint,omitempty"`
	Source string  `cbor:"5,keyasint,omitempty"`
}

type imageVar struct {
	Name  string     `cbor:"1,keyasint"`
	Value imageValue `cbor:"2,keyasint"`
}

type image struct {
	Version   int          `cbor:"1,keyasint"`
	Variables []imageVar   `cbor:"2,keyasint,omitempty"`
	Stack     []imageValue `cbor:"3,keyasint,omitempty"`
}

// ErrImageVersion is returned when an image was written by an incompatible
// version.
var ErrImageVersion = errors.New("unsupported image version")

// MarshalImage encodes snap. Variables are written in name order so equal
// snapshots encode to equal bytes.
func MarshalImage(snap Snapshot) ([]byte, error) {
	img := image{Version: imageVersion}
	for _, name := range snap.Names() {
		img.Variables = append(img.Variables, imageVar{Name: name, Value: encodeValue(snap.Variables[name])})
	}
	for _, v := range snap.Stack {
		img.Stack = append(img.Stack, encodeValue(v))
	}
	return imageEncMode.Marshal(img)
}

// UnmarshalImage decodes an image written by MarshalImage.
func UnmarshalImage(data []byte) (Snapshot, error) {
	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return Snapshot{}, fmt.Errorf("vm: unmarshal image: %w", err)
	}
	if img.Version != imageVersion {
		return Snapshot{}, fmt.Errorf("vm: image version %d: %w", img.Version, ErrImageVersion)
	}

	snap := Snapshot{Variables: make(map[string]Value, len(img.Variables))}
	for _, iv := range img.Variables {
		v, err := decodeValue(iv.Value)
		if err != nil {
			return Snapshot{}, fmt.Errorf("vm: variable %s: %w", iv.Name, err)
		}
		snap.Variables[iv.Name] = v
	}
	for i, rec := range img.Stack {
		v, err := decodeValue(rec)
		if err != nil {
			return Snapshot{}, fmt.Errorf("vm: stack slot %d: %w", i, err)
		}
		snap.Stack = append(snap.Stack, v)
	}
	return snap, nil
}

// SaveImage writes snap to path.
func SaveImage(path string, snap Snapshot) error {
	data, err := MarshalImage(snap)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("vm: save image: %w", err)
	}
	return nil
}

// LoadImage reads an image from path.
func LoadImage(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("vm: load image: %w", err)
	}
	return UnmarshalImage(data)
}

func encodeValue(v Value) imageValue {
	switch v := v.(type) {
	case Function:
		def := &compiler.FunctionDef{Name: v.Name, Params: v.Params, Body: v.Body}
		return imageValue{Kind: kindFunction, Source: compiler.Format([]compiler.Stmt{def})}
	case String:
		return imageValue{Kind: kindString, Str: string(v)}
	case Number:
		return imageValue{Kind: kindNumber, Num: float64(v)}
	case Bool:
		return imageValue{Kind: kindBool, Bool: bool(v)}
	}
	return imageValue{}
}

func decodeValue(rec imageValue) (Value, error) {
	switch rec.Kind {
	case kindString:
		return String(rec.Str), nil
	case kindNumber:
		return Number(rec.Num), nil
	case kindBool:
		return Bool(rec.Bool), nil
	case kindFunction:
		stmts, err := compiler.Parse(rec.Source)
		if err != nil {
			return nil, fmt.Errorf("function source: %w", err)
		}
		if len(stmts) != 1 {
			return nil, fmt.Errorf("function source holds %d statements, want 1", len(stmts))
		}
		def, ok := stmts[0].(*compiler.FunctionDef)
		if !ok {
			return nil, fmt.Errorf("function source is %s, want a definition", stmts[0])
		}
		return Function{Name: def.Name, Params: def.Params, Body: def.Body}, nil
	}
	return nil, fmt.Errorf("unknown value kind %q", rec.Kind)
}
