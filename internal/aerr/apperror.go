package aerr

//
// apperror.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// AppError is an error value carrying tags, metadata, a message for the end
// user and the stack of the place where it was created.
type AppError struct {
	err     error
	tags    []string
	msg     string
	userMsg string
	meta    map[string]any
	stack   []string
}

// NewSimple create error without stack; used for sentinel errors.
func NewSimple(msg string, args ...any) AppError {
	return AppError{msg: fmt.Sprintf(msg, args...)}
}

func New(msg string, args ...any) AppError {
	return AppError{
		stack: callerStack(),
		msg:   fmt.Sprintf(msg, args...),
	}
}

// Wrapf annotate err with message.
func Wrapf(err error, msg string, args ...any) AppError {
	return AppError{
		stack: callerStack(),
		err:   err,
		msg:   fmt.Sprintf(msg, args...),
	}
}

// ApplyFor create copy of sentinel with err as cause and stack of the caller.
// Optional msg replace message (first) and user message (second) when not empty.
func ApplyFor(sentinel AppError, err error, msg ...string) AppError {
	if err == nil {
		panic("err for apply is nil")
	}

	nerr := sentinel.clone()
	nerr.stack = callerStack()
	nerr.err = err

	if len(msg) > 0 && msg[0] != "" {
		nerr.msg = msg[0]
	}

	if len(msg) > 1 && msg[1] != "" {
		nerr.userMsg = msg[1]
	}

	return nerr
}

func (a AppError) WithTag(tag string) AppError {
	if slices.Contains(a.tags, tag) {
		return a
	}

	n := a.clone()
	n.tags = append(n.tags, tag)

	return n
}

func (a AppError) WithUserMsg(msg string, args ...any) AppError {
	n := a.clone()
	n.userMsg = fmt.Sprintf(msg, args...)

	return n
}

// WithMeta return copy with added key-value pairs; non-string keys are
// formatted with %v.
func (a AppError) WithMeta(keyval ...any) AppError {
	if len(keyval)%2 != 0 {
		panic("invalid argument number to call WithMeta")
	}

	n := a.clone()
	if n.meta == nil {
		n.meta = make(map[string]any, len(keyval)/2) //nolint:mnd
	}

	for i := 0; i < len(keyval); i += 2 {
		key, ok := keyval[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keyval[i])
		}

		n.meta[key] = keyval[i+1]
	}

	return n
}

// Is match the sentinel this error was derived from (same message and tags,
// sentinel without stack and cause) or an identical value.
func (a AppError) Is(target error) bool {
	t, ok := target.(AppError)
	if !ok || t.msg != a.msg || !slices.Equal(t.tags, a.tags) {
		return false
	}

	if t.stack == nil && t.err == nil {
		return true
	}

	return t.err == a.err && t.userMsg == a.userMsg &&
		slices.Equal(t.stack, a.stack) && maps.Equal(t.meta, a.meta)
}

func (a AppError) Error() string {
	switch {
	case a.msg != "" && a.err != nil:
		return a.msg + "(" + a.err.Error() + ")"
	case a.msg != "":
		return a.msg
	case a.err != nil:
		return a.err.Error()
	default:
		return "unknown error"
	}
}

func (a AppError) Unwrap() error {
	return a.err
}

// String return message for user if set.
func (a AppError) String() string {
	switch {
	case a.userMsg != "":
		return a.userMsg
	case a.msg != "":
		return a.msg
	case a.err != nil:
		return a.err.Error()
	}

	return ""
}

// Format with %+v print each error in chain with location, tags and meta.
func (a AppError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		for err := range unwrapChain(a) {
			ae, ok := err.(AppError) //nolint:errorlint
			if !ok {
				fmt.Fprintln(s, err.Error())

				continue
			}

			loc := ""
			if len(ae.stack) > 0 {
				loc = " [" + ae.stack[0] + "]"
			}

			fmt.Fprintf(s, "%s%s %v %v\n", ae.msg, loc, ae.tags, ae.meta)
		}

		return
	}

	io.WriteString(s, a.Error()) //nolint:errcheck
}

func (a AppError) clone() AppError {
	return AppError{
		stack:   a.stack,
		msg:     a.msg,
		tags:    slices.Clone(a.tags),
		userMsg: a.userMsg,
		meta:    maps.Clone(a.meta),
		err:     a.err,
	}
}

//-------------------------------------------------------------

// unwrapChain yield err and all errors wrapped by it, outermost first.
func unwrapChain(err error) iter.Seq[error] {
	return func(yield func(error) bool) {
		for ; err != nil; err = errors.Unwrap(err) {
			if !yield(err) {
				return
			}
		}
	}
}

// appErrors yield only AppErrors from the chain, outermost first.
func appErrors(err error) iter.Seq[AppError] {
	return func(yield func(AppError) bool) {
		for e := range unwrapChain(err) {
			if ae, ok := e.(AppError); ok { //nolint:errorlint
				if !yield(ae) {
					return
				}
			}
		}
	}
}

// HasTag check if any error in chain is tagged with tag.
func HasTag(err error, tag string) bool {
	for ae := range appErrors(err) {
		if slices.Contains(ae.tags, tag) {
			return true
		}
	}

	return false
}

// GetUserMessage return user message of the deepest error that define it.
func GetUserMessage(err error) string {
	msg := ""

	for ae := range appErrors(err) {
		if ae.userMsg != "" {
			msg = ae.userMsg
		}
	}

	return msg
}

//-------------------------------------------------------------

type zerologErrorMarshaller struct {
	err error
}

func (m zerologErrorMarshaller) MarshalZerologObject(event *zerolog.Event) {
	var (
		stack, errs, tags, usermsg []string
		meta                       map[string]any
	)

	for err := range unwrapChain(m.err) {
		ae, ok := err.(AppError) //nolint:errorlint
		if !ok {
			errs = append(errs, err.Error())

			continue
		}

		if ae.msg != "" {
			errs = append(errs, ae.msg)
		}

		if ae.userMsg != "" && !slices.Contains(usermsg, ae.userMsg) {
			usermsg = append(usermsg, ae.userMsg)
		}

		for _, t := range ae.tags {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}

		// deepest stack point to origin
		if ae.stack != nil {
			stack = ae.stack
		}

		if len(ae.meta) > 0 {
			if meta == nil {
				meta = make(map[string]any)
			}

			// outer values win
			for k, v := range ae.meta {
				if _, ok := meta[k]; !ok {
					meta[k] = v
				}
			}
		}
	}

	slices.Reverse(errs)
	event.Strs("errors", errs)

	if len(usermsg) > 0 {
		event.Strs("user_msg", usermsg)
	}

	if len(tags) > 0 {
		event.Strs("tags", tags)
	}

	if meta != nil {
		event.Any("meta", meta)
	}

	if stack != nil {
		event.Strs("stack", stack)
	}
}

// ErrorMarshalFunc is zerolog.ErrorMarshalFunc that log AppError chain as object.
func ErrorMarshalFunc(err error) any {
	if err == nil {
		return nil
	}

	return zerologErrorMarshaller{err}
}

//-------------------------------------------------------------

const maxStackDepth = 10

// callerStack return "file:line:func" entries for caller of the constructor.
func callerStack() []string {
	pc := make([]uintptr, maxStackDepth)

	n := runtime.Callers(3, pc) //nolint:mnd
	if n == 0 {
		return nil
	}

	stack := make([]string, 0, n)

	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()

		if !strings.HasPrefix(frame.Function, "runtime.") {
			funcname := frame.Function[strings.LastIndex(frame.Function, "/")+1:]
			stack = append(stack, frame.File+":"+strconv.Itoa(frame.Line)+":"+funcname)
		}

		if !more {
			break
		}
	}

	return stack
}
