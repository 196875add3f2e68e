package vm

// ---------------------------------------------------------------------------
// Environment: frames of variables paired with operand stacks
// ---------------------------------------------------------------------------

// Frame is one scope level: its variable bindings and its operand stack.
type Frame struct {
	Vars  map[string]Value
	Stack []Value
}

func newFrame() *Frame {
	return &Frame{Vars: make(map[string]Value)}
}

// Push pushes v onto the frame's stack.
func (f *Frame) Push(v Value) {
	f.Stack = append(f.Stack, v)
}

// Pop removes and returns the top of the frame's stack.
func (f *Frame) Pop() (Value, error) {
	n := len(f.Stack)
	if n == 0 {
		return nil, ErrEmptyStack
	}
	v := f.Stack[n-1]
	f.Stack[n-1] = nil
	f.Stack = f.Stack[:n-1]
	return v, nil
}

// PopN removes the top n values and returns them bottom first. When fewer
// than n values are present the stack is left untouched.
func (f *Frame) PopN(n int) ([]Value, error) {
	if n > len(f.Stack) {
		return nil, ErrEmptyStack
	}
	start := len(f.Stack) - n
	out := make([]Value, n)
	copy(out, f.Stack[start:])
	clear(f.Stack[start:])
	f.Stack = f.Stack[:start]
	return out, nil
}

// Environment is the ordered list of frames. Frame 0 is the global scope
// and is never removed.
type Environment struct {
	frames []*Frame
}

// NewEnvironment returns an environment holding only the global frame.
func NewEnvironment() *Environment {
	return &Environment{frames: []*Frame{newFrame()}}
}

// Depth is the index of the current frame; 0 at global scope.
func (e *Environment) Depth() int {
	return len(e.frames) - 1
}

// Current returns the innermost frame.
func (e *Environment) Current() *Frame {
	return e.frames[len(e.frames)-1]
}

// Global returns frame 0.
func (e *Environment) Global() *Frame {
	return e.frames[0]
}

// Caller returns the frame enclosing the current one, or nil at global
// scope.
func (e *Environment) Caller() *Frame {
	if len(e.frames) < 2 {
		return nil
	}
	return e.frames[len(e.frames)-2]
}

// Get resolves name from the innermost frame outwards.
func (e *Environment) Get(name string) (Value, error) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if v, ok := e.frames[i].Vars[name]; ok {
			return v, nil
		}
	}
	return nil, &UndefinedError{Name: name}
}

// Set binds name in the current frame only.
func (e *Environment) Set(name string, v Value) {
	e.Current().Vars[name] = v
}

// Push pushes onto the current frame's stack.
func (e *Environment) Push(v Value) {
	e.Current().Push(v)
}

// Pop pops from the current frame's stack.
func (e *Environment) Pop() (Value, error) {
	return e.Current().Pop()
}

// WithScope enters a fresh frame, runs fn with it and exits the frame on
// every return path.
func (e *Environment) WithScope(fn func(scope *Frame) error) error {
	scope := newFrame()
	e.frames = append(e.frames, scope)
	defer e.exit()
	return fn(scope)
}

func (e *Environment) exit() {
	n := len(e.frames)
	e.frames[n-1] = nil
	e.frames = e.frames[:n-1]
}
