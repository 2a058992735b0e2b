//go:build windows

package dispatch

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/roach88/nimbus/internal/wheel"
)

const (
	inputMouse            = 0
	mouseEventFMiddleDown = 0x0020
	mouseEventFMiddleUp   = 0x0040
	mouseEventFWheel      = 0x0800
	mouseEventFHWheel     = 0x1000
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

// input mirrors INPUT with the MOUSEINPUT union member. Go's field
// alignment matches the C layout on both 386 and amd64.
type input struct {
	typ uint32
	mi  mouseInputData
}

type mouseInputData struct {
	dx        int32
	dy        int32
	mouseData uint32
	flags     uint32
	time      uint32
	extraInfo uintptr
}

// SendInput injects wheel events into the foreground input queue.
type SendInput struct{}

// NewSystem returns the platform dispatcher.
func NewSystem() (Dispatcher, error) {
	if err := procSendInput.Find(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return SendInput{}, nil
}

// Dispatch synthesizes wheel events carrying t.Delta. A delta beyond the
// range of one event is spread over several.
func (SendInput) Dispatch(t wheel.OutputTick) error {
	flags := uint32(mouseEventFWheel)
	if t.Axis == wheel.Horizontal {
		flags = mouseEventFHWheel
	}
	parts := chunks(int64(t.Delta))
	ins := make([]input, len(parts))
	for i, d := range parts {
		ins[i] = input{
			typ: inputMouse,
			mi: mouseInputData{
				mouseData: uint32(d),
				flags:     flags,
				extraInfo: wheel.InjectionMarker,
			},
		}
	}
	if err := send(ins); err != nil {
		return &Failure{Tick: t, Err: err}
	}
	return nil
}

// MiddleClick injects a middle button press and release marked as engine
// output, so a wheel hook lets it through.
func MiddleClick() error {
	ins := []input{
		{typ: inputMouse, mi: mouseInputData{flags: mouseEventFMiddleDown, extraInfo: wheel.InjectionMarker}},
		{typ: inputMouse, mi: mouseInputData{flags: mouseEventFMiddleUp, extraInfo: wheel.InjectionMarker}},
	}
	return send(ins)
}

func send(ins []input) error {
	n, _, err := procSendInput.Call(uintptr(len(ins)), uintptr(unsafe.Pointer(&ins[0])), unsafe.Sizeof(ins[0]))
	if int(n) != len(ins) {
		return err
	}
	return nil
}
