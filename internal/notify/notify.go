// notify.go - Launch failure desktop notifications.
// Copyright (C) 2026  igo95862.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package notify sends a best-effort desktop notification when a sandbox
// launch fails. libnotify.so.4 is opportunistically dlopen()ed instead of
// linked directly, so the binary still runs on systems without libnotify;
// a launch-failure toast needs only a summary and a body.
package notify

// #cgo LDFLAGS: -ldl
//
// #include <dlfcn.h>
// #include <stdlib.h>
//
// typedef int gboolean;
// typedef void NotifyNotification;
//
// static gboolean (*init_fn)(const char *) = 0;
// static void (*uninit_fn)(void) = 0;
// static NotifyNotification *(*new_fn)(const char *, const char *, const char *) = 0;
// static gboolean (*show_fn)(NotifyNotification *, void *) = 0;
//
// static int initialized = 0;
//
// static int bubblejail_notify_init(const char *app_name) {
//   void *handle;
//   if (initialized != 0) {
//     return initialized;
//   }
//   initialized = -1;
//   handle = dlopen("libnotify.so.4", RTLD_LAZY);
//   if (handle == 0) {
//     return initialized;
//   }
//   init_fn = dlsym(handle, "notify_init");
//   uninit_fn = dlsym(handle, "notify_uninit");
//   new_fn = dlsym(handle, "notify_notification_new");
//   show_fn = dlsym(handle, "notify_notification_show");
//   if (init_fn == 0 || uninit_fn == 0 || new_fn == 0 || show_fn == 0) {
//     return initialized;
//   }
//   if (init_fn(app_name)) {
//     initialized = 0;
//   }
//   return initialized;
// }
//
// static int bubblejail_notify_show(const char *summary, const char *body) {
//   NotifyNotification *n;
//   if (bubblejail_notify_init("bubblejail") != 0) {
//     return -1;
//   }
//   n = new_fn(summary, body, "dialog-error");
//   if (n == 0) {
//     return -1;
//   }
//   return show_fn(n, 0) ? 0 : -1;
// }
import "C"

import "unsafe"

// NotifyFailure best-effort-notifies the desktop session that summary/body
// happened. It never returns an error and never blocks the caller on the
// notification daemon. libnotify's dlopen/dlsym resolution failing, or
// there being no notification daemon running at all, is silently ignored.
func NotifyFailure(summary, body string) {
	cSummary := C.CString(summary)
	defer C.free(unsafe.Pointer(cSummary))
	cBody := C.CString(body)
	defer C.free(unsafe.Pointer(cBody))

	C.bubblejail_notify_show(cSummary, cBody)
}
