// Package capture fills a library from a camera. For every point of the
// axis grid it drives each control onto its value, reads back the values the
// camera actually reached, averages several frames and stores the result
// under the reached key.
//
// Points already stored are skipped unless overwrite is requested, so an
// interrupted capture resumes where it stopped. A control that fails to
// converge is logged and sampling continues at the reached value.
package capture
