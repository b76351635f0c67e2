// Package invariant provides contract assertions for the analysis packages.
//
// Assertions guard programming errors: a nil registry handed to the analyzer,
// a scope stack popped past its root, a Value variant that a type switch does
// not know about. User-supplied configuration never reaches these checks;
// malformed mods are reported through core/errors instead.
//
// All functions panic on violation.
package invariant

import (
	"fmt"
	"reflect"
	"runtime"
)

// Precondition checks an input contract at function entry.
// Panics with PRECONDITION VIOLATION if condition is false.
//
// Example:
//
//	func (m *VarMap) SetExistence(source string, path []string, e Existence) {
//	    invariant.Precondition(source != "", "source must not be empty")
//	    // ... work ...
//	}
func Precondition(condition bool, format string, args ...any) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
func Postcondition(condition bool, format string, args ...any) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks internal consistency during execution.
//
// Example:
//
//	invariant.Invariant(len(s.frames) > 0, "scope stack must keep its root frame")
func Invariant(condition bool, format string, args ...any) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including typed nils such as (*T)(nil).
func NotNil(value any, name string) {
	if isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

// Unreachable marks the default branch of an exhaustive type switch.
//
// Example:
//
//	switch v := value.(type) {
//	case *pipeline.Literal:
//	    ...
//	default:
//	    invariant.Unreachable("unknown value variant %T", v)
//	}
func Unreachable(format string, args ...any) {
	fail("UNREACHABLE", format, args...)
}

// ExpectNoError panics if err is not nil.
// Use for operations whose failure would mean a broken build, such as
// decoding an embedded catalog.
func ExpectNoError(err error, msg string) {
	if err != nil {
		fail("POSTCONDITION", "%s must not fail: %v", msg, err)
	}
}

func isNilValue(value any) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// fail panics with a formatted message including the violating call site.
func fail(kind, format string, args ...any) {
	pc := make([]uintptr, 10)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]any{kind}, args...)...)
	if frame, ok := frames.Next(); ok {
		msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
	}

	panic(msg)
}
