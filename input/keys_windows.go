//go:build windows

package input

import (
	"context"
	"log/slog"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	whKeyboardLL = 13
	wmKeydown    = 0x0100
	wmQuit       = 0x0012
)

// kbdllHookStruct mirrors KBDLLHOOKSTRUCT from the Win32 API.
type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	HWND    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

var (
	user32                = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookEx  = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHook = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx    = user32.NewProc("CallNextHookEx")
	procGetMessage        = user32.NewProc("GetMessageW")
	procPostThreadMessage = user32.NewProc("PostThreadMessageW")
)

// hookState is shared with the hook callback, which the OS invokes outside
// any goroutine we control.
var hookState struct {
	handle uintptr
	keys   chan<- string
}

func keyboardProc(nCode int, wParam, lParam uintptr) uintptr {
	if nCode >= 0 && wParam == wmKeydown {
		kb := (*kbdllHookStruct)(unsafe.Pointer(lParam))
		if token := vkToken(kb.VkCode); token != "" && hookState.keys != nil {
			select {
			case hookState.keys <- token:
			default:
				// Consumer is behind; dropping a key press is harmless.
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(hookState.handle, uintptr(nCode), wParam, lParam)
	return ret
}

// Listen installs a low-level keyboard hook and delivers normalized key
// tokens until ctx is cancelled. The hook observes and never swallows keys.
func Listen(ctx context.Context, logger *slog.Logger) (<-chan string, error) {
	keys := make(chan string, 16)
	hookState.keys = keys

	threadID := make(chan uint32, 1)
	go func() {
		// The hook and its message loop must live on one OS thread.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		threadID <- windows.GetCurrentThreadId()

		cb := syscall.NewCallback(keyboardProc)
		h, _, err := procSetWindowsHookEx.Call(whKeyboardLL, cb, 0, 0)
		if h == 0 {
			logger.Error("keyboard hook installation failed", "error", err)
			close(keys)
			return
		}
		hookState.handle = h
		logger.Info("keyboard hook installed")

		var m msg
		for {
			ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if ret == 0 { // WM_QUIT
				break
			}
		}
		_, _, _ = procUnhookWindowsHook.Call(h)
		close(keys)
	}()

	tid := <-threadID
	go func() {
		<-ctx.Done()
		_, _, _ = procPostThreadMessage.Call(uintptr(tid), wmQuit, 0, 0)
	}()
	return keys, nil
}
