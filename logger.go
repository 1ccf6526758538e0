// logger.go - assembler-global context shared by compiler and passes
package jasm

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/xyproto/env/v2"
)

// Holder is the assembler-global context: everything that outlives a
// single function compilation and is shared between the compiler and the
// allocation passes. Right now that is the logger and the annotation
// width used when rendering liveness strips.
type Holder struct {
	logger           *logrus.Logger
	annotationLength int
}

// NewHolder returns a holder with no logger attached. When JASM_TRACE is
// set a debug-level logger to stderr is attached right away, which also
// enables the annotate stage.
func NewHolder() *Holder {
	h := &Holder{
		annotationLength: env.Int("JASM_ANNOTATION_WIDTH", 12),
	}
	if env.Bool("JASM_TRACE") {
		l := logrus.New()
		l.SetLevel(logrus.DebugLevel)
		h.logger = l
	}
	return h
}

// SetLogger attaches (or with nil detaches) a logger. Attaching a logger
// turns on the annotate stage of the compile pipeline.
func (h *Holder) SetLogger(l *logrus.Logger) {
	h.logger = l
}

// SetLogOutput attaches a default logger writing to w.
func (h *Holder) SetLogOutput(w io.Writer) {
	l := logrus.New()
	l.SetOutput(w)
	h.logger = l
}

// Logger returns the attached logger, or nil.
func (h *Holder) Logger() *logrus.Logger { return h.logger }

// HasLogger reports whether a logger is attached.
func (h *Holder) HasLogger() bool { return h.logger != nil }

// AnnotationLength returns the column where liveness strips start.
func (h *Holder) AnnotationLength() int { return h.annotationLength }

// SetAnnotationLength overrides the annotation column.
func (h *Holder) SetAnnotationLength(n int) {
	if n > 0 {
		h.annotationLength = n
	}
}

// trace emits a debug line if a logger is attached.
func (h *Holder) trace(msg string, fields logrus.Fields) {
	if h.logger != nil {
		h.logger.WithFields(fields).Debug(msg)
	}
}
