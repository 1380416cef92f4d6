package ustar

import (
	"bytes"
	"errors"
	"io"
	"io/fs"

	"github.com/jmgilman/go/fs/core"
)

var errInjected = errors.New("injected failure")

// memorySink collects extracted entries in memory, in open order.
type memorySink struct {
	files  map[string]*bytes.Buffer
	order  []string
	closed int
}

func newMemorySink() *memorySink {
	return &memorySink{files: make(map[string]*bytes.Buffer)}
}

func (s *memorySink) Open(name string) (io.WriteCloser, error) {
	buf := &bytes.Buffer{}
	s.files[name] = buf
	s.order = append(s.order, name)
	return &memoryFile{buf: buf, sink: s}, nil
}

type memoryFile struct {
	buf  *bytes.Buffer
	sink *memorySink
}

func (f *memoryFile) Write(p []byte) (int, error) { return f.buf.Write(p) }

func (f *memoryFile) Close() error {
	f.sink.closed++
	return nil
}

// faultySink fails at a chosen stage of extraction.
type faultySink struct {
	failOpen  bool
	failWrite bool
	failClose bool
}

func (s *faultySink) Open(string) (io.WriteCloser, error) {
	if s.failOpen {
		return nil, errInjected
	}
	return &faultyWriter{sink: s}, nil
}

type faultyWriter struct {
	sink *faultySink
}

func (w *faultyWriter) Write(p []byte) (int, error) {
	if w.sink.failWrite {
		return 0, errInjected
	}
	return len(p), nil
}

func (w *faultyWriter) Close() error {
	if w.sink.failClose {
		return errInjected
	}
	return nil
}

// faultyFS wraps a core.FS and injects failures into file creation and
// the files it returns.
type faultyFS struct {
	core.FS
	failMkdir bool
	failOpen  bool
	failClose bool
}

func (f *faultyFS) MkdirAll(path string, perm fs.FileMode) error {
	if f.failMkdir {
		return errInjected
	}
	return f.FS.MkdirAll(path, perm)
}

func (f *faultyFS) OpenFile(name string, flag int, perm fs.FileMode) (core.File, error) {
	if f.failOpen {
		return nil, errInjected
	}
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, failClose: f.failClose}, nil
}

// Open returns archive handles whose Close fails when failClose is set.
func (f *faultyFS) Open(name string) (fs.File, error) {
	file, err := f.FS.Open(name)
	if err != nil {
		return nil, err
	}
	return &faultyReadFile{File: file, failClose: f.failClose}, nil
}

type faultyFile struct {
	core.File
	failClose bool
}

func (f *faultyFile) Close() error {
	err := f.File.Close()
	if f.failClose {
		return errInjected
	}
	return err
}

type faultyReadFile struct {
	fs.File
	failClose bool
}

func (f *faultyReadFile) Close() error {
	err := f.File.Close()
	if f.failClose {
		return errInjected
	}
	return err
}

// bufferedWriter counts flushes.
type bufferedWriter struct {
	bytes.Buffer
	flushes int
}

func (w *bufferedWriter) Flush() error {
	w.flushes++
	return nil
}
