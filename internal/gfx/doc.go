// Package gfx models the graphics API used by render goroutines: a
// process-wide display, a negotiated framebuffer config, and per-window
// surfaces and contexts.
//
// The API follows the EGL shape. A Driver opens a Display; the Display
// negotiates a Config against RequiredAttribs, creates window surfaces and
// contexts, binds them with MakeCurrent, and publishes frames with
// SwapBuffers. Contexts are thread-affine: a context may be current on at
// most one surface at a time, and callers that care pin their goroutine to
// an OS thread before binding.
//
// Shared is the lazily initialised display singleton. Soft is a text-cell
// software driver whose surfaces present frames to window hosts.
package gfx
