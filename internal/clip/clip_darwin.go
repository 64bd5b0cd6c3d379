//go:build darwin

package clip

// #cgo CFLAGS: -x objective-c
// #cgo LDFLAGS: -framework Cocoa
// #import <Cocoa/Cocoa.h>
// #include <stdlib.h>
// #include <string.h>
//
// NSInteger keepclip_changeCount() {
//     return [[NSPasteboard generalPasteboard] changeCount];
// }
//
// // Returns the file paths on the pasteboard joined by '\n', or NULL.
// // The caller frees the result.
// char *keepclip_readFiles() {
//     @autoreleasepool {
//         NSPasteboard *pb = [NSPasteboard generalPasteboard];
//         NSDictionary *opts = @{NSPasteboardURLReadingFileURLsOnlyKey: @YES};
//         NSArray *urls = [pb readObjectsForClasses:@[[NSURL class]] options:opts];
//         if (urls == nil || [urls count] == 0) {
//             return NULL;
//         }
//         NSMutableArray *paths = [NSMutableArray arrayWithCapacity:[urls count]];
//         for (NSURL *u in urls) {
//             [paths addObject:[u path]];
//         }
//         return strdup([[paths componentsJoinedByString:@"\n"] UTF8String]);
//     }
// }
//
// int keepclip_writeFiles(const char *joined) {
//     @autoreleasepool {
//         NSString *s = [NSString stringWithUTF8String:joined];
//         NSMutableArray *urls = [NSMutableArray array];
//         for (NSString *p in [s componentsSeparatedByString:@"\n"]) {
//             if ([p length] > 0) {
//                 [urls addObject:[NSURL fileURLWithPath:p]];
//             }
//         }
//         NSPasteboard *pb = [NSPasteboard generalPasteboard];
//         [pb clearContents];
//         return [pb writeObjects:urls] ? 1 : 0;
//     }
// }
import "C"

import (
	"errors"
	"log/slog"
	"strings"
	"unsafe"

	"golang.design/x/clipboard"
)

type darwinBackend struct{}

// New returns the macOS pasteboard backend.
// clipboard.Init is called here rather than in init() so that CLI sub-commands
// that never construct a Backend don't log spurious warnings.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard init failed", "err", err)
	}
	return &darwinBackend{}
}

func (b *darwinBackend) Name() string { return "macOS NSPasteboard" }

func (b *darwinBackend) ChangeCount() (int64, error) {
	return int64(C.keepclip_changeCount()), nil
}

func (b *darwinBackend) Read() (Snapshot, error) {
	var s Snapshot
	if cs := C.keepclip_readFiles(); cs != nil {
		joined := C.GoString(cs)
		C.free(unsafe.Pointer(cs))
		for _, p := range strings.Split(joined, "\n") {
			if p != "" {
				s.Files = append(s.Files, p)
			}
		}
	}
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		s.Image = img
	}
	if text := clipboard.Read(clipboard.FmtText); len(text) > 0 {
		s.Text = string(text)
	}
	return s, nil
}

func (b *darwinBackend) Write(s Snapshot) error {
	switch {
	case len(s.Files) > 0:
		cs := C.CString(strings.Join(s.Files, "\n"))
		defer C.free(unsafe.Pointer(cs))
		if C.keepclip_writeFiles(cs) == 0 {
			return errors.New("pasteboard rejected file URLs")
		}
	case len(s.Image) > 0:
		clipboard.Write(clipboard.FmtImage, s.Image)
	case s.Text != "":
		clipboard.Write(clipboard.FmtText, []byte(s.Text))
	default:
		return errors.New("nothing to write")
	}
	return nil
}

func (b *darwinBackend) Close() {}
