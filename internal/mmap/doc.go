// Package mmap maps payload files read-only into memory.
//
//	m, err := mmap.Open("resources/0a1b.res")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessSequential)
//	envelope := m.Bytes()
//
// Unix uses mmap(2) and madvise(2). Windows uses CreateFileMapping and
// MapViewOfFile; Advise is a no-op there.
//
// A Mapping may be read concurrently. Close is idempotent, but callers must
// not touch slices returned by Bytes after Close.
package mmap
