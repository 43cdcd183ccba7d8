//go:build darwin

package clipboard

import (
	"sync"
	"unsafe"
)

// #cgo CFLAGS: -x objective-c
// #cgo LDFLAGS: -framework Cocoa
// #import <Cocoa/Cocoa.h>
// #include <stdlib.h>
// const char* kwGetClipboard() {
//     NSPasteboard *pasteboard = [NSPasteboard generalPasteboard];
//     NSString *string = [pasteboard stringForType:NSPasteboardTypeString];
//     return [string UTF8String];
// }
// void kwSetClipboard(const char *text) {
//     NSPasteboard *pasteboard = [NSPasteboard generalPasteboard];
//     [pasteboard clearContents];
//     [pasteboard setString:[NSString stringWithUTF8String:text]
//                   forType:NSPasteboardTypeString];
// }
// void kwClearClipboard() {
//     [[NSPasteboard generalPasteboard] clearContents];
// }
import "C"

var clipboardLock sync.Mutex

func readText() (string, bool, error) {
	clipboardLock.Lock()
	defer clipboardLock.Unlock()

	cstr := C.kwGetClipboard()
	if cstr == nil {
		// No text on the pasteboard; not an error.
		return "", false, nil
	}
	return C.GoString(cstr), true, nil
}

func writeText(text string) error {
	clipboardLock.Lock()
	defer clipboardLock.Unlock()

	cstr := C.CString(text)
	defer C.free(unsafe.Pointer(cstr))
	C.kwSetClipboard(cstr)
	return nil
}

func clearText() error {
	clipboardLock.Lock()
	defer clipboardLock.Unlock()

	C.kwClearClipboard()
	return nil
}
