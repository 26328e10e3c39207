// Package server implements the line-framed TCP front-end described in §6
// "Network surface": a connection's read path delimits requests by a
// terminator byte (configurable, default ';'), hands each request string to
// a Dispatcher, and writes back a length-prefixed response frame.
//
// This front-end is explicitly secondary to the manager's core: the
// database owns SQL parsing and table DDL/DML; this package only exposes a
// minimal command surface (REFRESH, LIST, PING) over the same catalog,
// cache, refresh engine, and scheduler the rest of the module builds.
package server
