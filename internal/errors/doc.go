// Package errors provides coded, user-facing errors for the widget panel.
//
// Every failure the panel reports to a person carries a stable code (e.g.
// "E201") that maps to a short message, a category and a documentation link.
// Errors may also point into a piece of text, such as a widget configuration,
// so the terminal output can show the offending line.
//
// # Error Categories
//
//   - config: panel configuration problems (widgets.json, locators)
//   - protocol: catalog fetches and command channel failures
//   - validation: widget content that cannot be used (bad schema, empty template)
//   - runtime: misuse of the instantiation flow, unknown widgets
//
// # Usage
//
//	err := errors.New("E201").
//	    WithSource("configuration", text, offset).
//	    Wrap(jsonErr)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E201: Cannot parse Widget configuration
//	//
//	//   configuration:2:19
//	//
//	//     1 │ {
//	//   → 2 │   "name": {"type" "input"}
//	//       │                   ^
//	//     3 │ }
package errors
