//go:build darwin

package frontapp

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework Cocoa -framework ApplicationServices

#import <Cocoa/Cocoa.h>
#include <ApplicationServices/ApplicationServices.h>

static int frontmostPID(const char **nameOut) {
	NSRunningApplication *app = [[NSWorkspace sharedWorkspace] frontmostApplication];
	if (app == nil) {
		return -1;
	}
	*nameOut = [[app localizedName] UTF8String];
	return (int)[app processIdentifier];
}

static int activatePID(int pid) {
	NSRunningApplication *app =
	    [NSRunningApplication runningApplicationWithProcessIdentifier:(pid_t)pid];
	if (app == nil) {
		return -1;
	}
	[app activateWithOptions:NSApplicationActivateIgnoringOtherApps];
	return 0;
}

// ANSI 'V' virtual key code.
#define kVK_ANSI_V 9

static void postPaste(void) {
	CGEventSourceRef source =
	    CGEventSourceCreate(kCGEventSourceStateHIDSystemState);
	CGEventRef down = CGEventCreateKeyboardEvent(source, kVK_ANSI_V, true);
	CGEventRef up = CGEventCreateKeyboardEvent(source, kVK_ANSI_V, false);
	CGEventSetFlags(down, kCGEventFlagMaskCommand);
	CGEventSetFlags(up, kCGEventFlagMaskCommand);
	CGEventPost(kCGHIDEventTap, down);
	CGEventPost(kCGHIDEventTap, up);
	CFRelease(down);
	CFRelease(up);
	if (source != NULL) {
		CFRelease(source);
	}
}
*/
import "C"

import "fmt"

func frontmost() (App, bool) {
	var name *C.char
	pid := C.frontmostPID(&name)
	if pid < 0 {
		return App{}, false
	}
	app := App{PID: int32(pid)}
	if name != nil {
		app.Name = C.GoString(name)
	}
	return app, true
}

func activate(app App) error {
	if C.activatePID(C.int(app.PID)) != 0 {
		return fmt.Errorf("frontapp: no running application with pid %d", app.PID)
	}
	return nil
}

func synthesizePaste() error {
	C.postPaste()
	return nil
}
