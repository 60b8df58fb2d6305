// Package camera defines the image source the capture pipeline drives: a
// registry of named controls, blocking convergence of a control onto a
// target value, and frame capture.
//
// Controls are registered explicitly with a getter and a setter. Unknown
// names fail with ErrUnknownControl instead of falling through to arbitrary
// fields of the device.
//
// Dummy is a simulated camera used by tests and by the "dummy" camera kind.
package camera
