//go:build windows

package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/roach88/nimbus/internal/dispatch"
	"github.com/roach88/nimbus/internal/wheel"
)

const (
	whMouseLL     = 14
	wmQuit        = 0x0012
	wmMouseMove   = 0x0200
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmMouseWheel  = 0x020A
	wmMouseHWheel = 0x020E
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
)

// msllHookStruct mirrors MSLLHOOKSTRUCT.
type msllHookStruct struct {
	x, y      int32
	mouseData uint32
	flags     uint32
	time      uint32
	extraInfo uintptr
}

// msg mirrors MSG.
type msg struct {
	hwnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	x, y     int32
	lPrivate uint32
}

// ErrHookActive is returned when a second Hook is started in the same
// process.
var ErrHookActive = errors.New("a wheel hook is already installed")

// Hooks live in a process-wide slot because Windows callbacks can never
// be released.
var (
	active       atomic.Pointer[Hook]
	callbackOnce sync.Once
	callback     uintptr
)

// Hook captures system-wide wheel events with a WH_MOUSE_LL hook.
//
// A captured event is consumed only if the session is running and the
// sink accepts the impulse; otherwise it continues down the hook chain and
// scrolls natively. Events tagged with wheel.InjectionMarker are the
// engine's own output and always pass through.
//
// Holding the middle button turns pointer motion into drag impulses. The
// pointer stays where the button went down, and a press without motion
// is replayed as a plain middle click.
type Hook struct {
	clock   Clock
	sink    Sink
	gate    Gate
	notches notches
	drag    dragger
}

// NewSystem returns the platform wheel source.
func NewSystem(opts ...Option) (Source, error) {
	if err := procSetWindowsHookExW.Find(); err != nil {
		return nil, &HookRegistrationError{Hook: "WH_MOUSE_LL", Err: err}
	}
	o := buildOptions(opts)
	return &Hook{clock: o.clock}, nil
}

// Run installs the hook and pumps messages on a locked OS thread until ctx
// is done.
func (h *Hook) Run(ctx context.Context, sink Sink, gate Gate) error {
	h.sink = sink
	h.gate = gate
	h.notches.reset()
	h.drag = dragger{anchored: true}
	if !active.CompareAndSwap(nil, h) {
		return &HookRegistrationError{Hook: "WH_MOUSE_LL", Err: ErrHookActive}
	}
	defer active.CompareAndSwap(h, nil)

	ready := make(chan uint32, 1)
	errc := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		errc <- pump(ready)
	}()

	var tid uint32
	select {
	case tid = <-ready:
	case err := <-errc:
		return err
	}
	slog.Info("wheel hook installed", "thread", tid)

	select {
	case <-ctx.Done():
		procPostThreadMessageW.Call(uintptr(tid), wmQuit, 0, 0)
		if err := <-errc; err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errc:
		return err
	}
}

func pump(ready chan<- uint32) error {
	callbackOnce.Do(func() {
		callback = windows.NewCallback(hookProc)
	})

	var module windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &module); err != nil {
		return &HookRegistrationError{Hook: "WH_MOUSE_LL", Err: err}
	}
	hhk, _, err := procSetWindowsHookExW.Call(whMouseLL, callback, uintptr(module), 0)
	if hhk == 0 {
		return &HookRegistrationError{Hook: "WH_MOUSE_LL", Err: err}
	}
	defer procUnhookWindowsHookEx.Call(hhk)

	ready <- windows.GetCurrentThreadId()

	var m msg
	for {
		r, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		switch int32(r) {
		case 0:
			return nil
		case -1:
			return fmt.Errorf("message loop: %w", err)
		}
	}
}

func hookProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) >= 0 && hooked(wParam) {
		if h := active.Load(); h != nil {
			info := (*msllHookStruct)(unsafe.Pointer(lParam))
			if h.capture(wParam, info) {
				return 1
			}
		}
	}
	r, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return r
}

func hooked(message uintptr) bool {
	switch message {
	case wmMouseWheel, wmMouseHWheel, wmMouseMove, wmMButtonDown, wmMButtonUp:
		return true
	}
	return false
}

// capture reports whether the event was consumed.
func (h *Hook) capture(message uintptr, info *msllHookStruct) bool {
	if info.extraInfo == wheel.InjectionMarker {
		return false
	}
	if h.gate.Paused() {
		h.drag.reset()
		return false
	}

	switch message {
	case wmMButtonDown:
		h.drag.press(int(info.x), int(info.y))
		return true
	case wmMouseMove:
		if !h.drag.active {
			return false
		}
		for _, imp := range h.drag.move(int(info.x), int(info.y), h.clock.Now()) {
			h.sink.Offer(imp)
		}
		return true
	case wmMButtonUp:
		if !h.drag.active {
			return false
		}
		moved := h.drag.moved
		for _, imp := range h.drag.release(h.clock.Now()) {
			h.sink.Offer(imp)
		}
		if !moved {
			// SendInput must not run inside the hook callback.
			go func() {
				if err := dispatch.MiddleClick(); err != nil {
					slog.Warn("middle click replay failed", "error", err)
				}
			}()
		}
		return true
	}

	axis := wheel.Vertical
	if message == wmMouseHWheel {
		axis = wheel.Horizontal
	}
	n := h.notches.add(axis, int(int16(info.mouseData>>16)))
	if n == 0 {
		return true
	}
	return h.sink.Offer(wheel.Impulse{Axis: axis, Delta: n, At: h.clock.Now()})
}
