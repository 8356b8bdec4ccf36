// Package bridge talks to CommandPost's cmdpost CLI so Final Cut Pro picks up
// documents dropped into the splice watch-folder.
//
// Every call is a short Lua snippet run through cmdpost and bounded by the
// configured timeout. CommandPost only exists on macOS; other hosts report the
// bridge as unavailable. Bridge failures never block delivery: callers log
// them as warnings and carry on.
package bridge
