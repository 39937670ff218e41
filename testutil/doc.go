// Package testutil provides testing infrastructure for powermap pullers.
//
// [Recorder] is a scriptable source: it counts pulls, records close and
// abort signals, and can defer or fail selected pulls.
//
//	func TestMyStep(t *testing.T) {
//	    h := testutil.T(t)
//	    src := testutil.NewRecorder(1, 2, 3)
//	    src.DeferOn = testutil.Only(2)
//	    got := testutil.Drain(h, myStep(src))
//	    if src.Closed() != 0 { ... }
//	}
//
// The helpers wait with a bounded context so a hung pipeline fails the test
// instead of blocking it.
package testutil
