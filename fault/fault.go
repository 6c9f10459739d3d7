// Package fault defines the fault taxonomy shared by the whole machine
// simulation. Every failure is classified into a closed set of kinds rooted
// at three categories: Input (program/image loading), Runtime (behavior of
// the simulated program), and Sanity (internal defects of the simulator
// itself). A fault carries the source position of the site that raised it so
// that reports are actionable without a debugger.
package fault

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind identifies one fault category. The set is closed; dispatch on it
// exhaustively rather than through type assertions.
type Kind int

const (
	// Input faults occur while loading a program or memory image.
	Input Kind = iota

	// Runtime faults are caused by the behavior of the simulated program
	// during execution. The kinds below, up to and excluding Sanity, are
	// its leaves.
	Runtime

	// UnsupportedInstruction means a decoded instruction is not
	// implemented by the simulator.
	UnsupportedInstruction

	// UnsupportedALUOp means the ALU was asked to perform an operation it
	// does not implement. Emitted at execution time, unlike
	// UnsupportedInstruction which is emitted at decode time.
	UnsupportedALUOp

	// Overflow means an integer operation overflowed or underflowed.
	Overflow

	// UnalignedJump means a jump targeted an address that is not
	// instruction aligned.
	UnalignedJump

	// UnknownMemoryControl means a memory access used a control value the
	// memory subsystem does not recognize.
	UnknownMemoryControl

	// OutOfMemoryAccess means an access fell outside the simulated memory.
	OutOfMemoryAccess

	// SyscallUnknown means the simulated program invoked a system call the
	// simulator does not implement.
	SyscallUnknown

	// Sanity marks an internal-consistency violation. It always signals a
	// defect in the simulator, never an error of the user or of the
	// simulated program.
	Sanity
)

var kindNames = map[Kind]string{
	Input:                  "Input",
	Runtime:                "Runtime",
	UnsupportedInstruction: "UnsupportedInstruction",
	UnsupportedALUOp:       "UnsupportedALUOp",
	Overflow:               "Overflow",
	UnalignedJump:          "UnalignedJump",
	UnknownMemoryControl:   "UnknownMemoryControl",
	OutOfMemoryAccess:      "OutOfMemoryAccess",
	SyscallUnknown:         "SyscallUnknown",
	Sanity:                 "Sanity",
}

// String returns the stable presentable name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Root maps a kind to its root category: Input, Runtime, or Sanity.
func (k Kind) Root() Kind {
	switch k {
	case Input, Runtime, Sanity:
		return k
	default:
		return Runtime
	}
}

// A Fault describes one classified failure. It is immutable after
// construction and implements error.
type Fault struct {
	// Kind is the fault category.
	Kind Kind

	// Reason is the short human-readable cause.
	Reason string

	// Ext carries extended explanatory text, possibly empty.
	Ext string

	// File and Line locate the site that raised the fault.
	File string
	Line int
}

// newFault builds a fault and captures the file and line of the caller of
// the exported constructor. It must only be called directly by exported
// functions of this package.
func newFault(kind Kind, reason, ext string) *Fault {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "unknown"
		line = 0
	}

	return &Fault{
		Kind:   kind,
		Reason: reason,
		Ext:    ext,
		File:   file,
		Line:   line,
	}
}

// NewInput builds an Input fault.
func NewInput(reason, ext string) *Fault {
	return newFault(Input, reason, ext)
}

// NewRuntime builds a Runtime fault that matches no more specific leaf.
func NewRuntime(reason, ext string) *Fault {
	return newFault(Runtime, reason, ext)
}

// NewUnsupportedInstruction builds an UnsupportedInstruction fault.
func NewUnsupportedInstruction(reason, ext string) *Fault {
	return newFault(UnsupportedInstruction, reason, ext)
}

// NewUnsupportedALUOp builds an UnsupportedALUOp fault.
func NewUnsupportedALUOp(reason, ext string) *Fault {
	return newFault(UnsupportedALUOp, reason, ext)
}

// NewOverflow builds an Overflow fault.
func NewOverflow(reason, ext string) *Fault {
	return newFault(Overflow, reason, ext)
}

// NewUnalignedJump builds an UnalignedJump fault.
func NewUnalignedJump(reason, ext string) *Fault {
	return newFault(UnalignedJump, reason, ext)
}

// NewUnknownMemoryControl builds an UnknownMemoryControl fault.
func NewUnknownMemoryControl(reason, ext string) *Fault {
	return newFault(UnknownMemoryControl, reason, ext)
}

// NewOutOfMemoryAccess builds an OutOfMemoryAccess fault.
func NewOutOfMemoryAccess(reason, ext string) *Fault {
	return newFault(OutOfMemoryAccess, reason, ext)
}

// NewSyscallUnknown builds a SyscallUnknown fault.
func NewSyscallUnknown(reason, ext string) *Fault {
	return newFault(SyscallUnknown, reason, ext)
}

// NewSanity builds a Sanity fault.
func NewSanity(reason, ext string) *Fault {
	return newFault(Sanity, reason, ext)
}

// internalExt is attached to every fault built by Internalf and Assert.
const internalExt = "An internal error occurred in the simulator. " +
	"To help get it fixed, please file an issue at " +
	"https://github.com/sarchlab/rvsim/issues and attach the program you " +
	"were running, the cache configuration, and a copy of this message."

// Internalf builds a Sanity fault with the standard report-this ext text.
func Internalf(format string, args ...any) *Fault {
	return newFault(Sanity, fmt.Sprintf(format, args...), internalExt)
}

// Assert panics with a Sanity fault when cond does not hold.
func Assert(cond bool, reason string) {
	if cond {
		return
	}

	panic(newFault(Sanity, "sanity check failed: "+reason, internalExt))
}

// Message renders the fault. With includePos the result carries the file and
// line of the raise site for developer diagnostics; without it the result is
// the compact log form. The reason is present in both.
func (f *Fault) Message(includePos bool) string {
	var msg string
	if includePos {
		msg = fmt.Sprintf("%s: %s (%s:%d)", f.Kind, f.Reason, f.File, f.Line)
	} else {
		msg = fmt.Sprintf("%s: %s", f.Kind, f.Reason)
	}

	if f.Ext != "" {
		msg += "\n" + f.Ext
	}

	return msg
}

// Error implements error with the position-excluding form.
func (f *Fault) Error() string {
	return f.Message(false)
}

// As unwraps a *Fault from an error chain.
func As(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}

	return nil, false
}

// Recover is the designated catching boundary for fault panics. Deferred at
// the top of a simulation step, it converts a *Fault panic into an error and
// re-raises anything else.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}

	if f, ok := r.(*Fault); ok {
		*errp = f
		return
	}

	panic(r)
}
