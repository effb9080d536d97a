// Package vm runs instruction trees against word-addressed form memory.
package vm

import (
	"errors"
	"slices"

	"reform/pkg/form"
)

var ErrNoFrame = errors.New("no open frame")

type slot struct {
	form   form.Form
	offset int
}

// Stack is the memory of one run. Forms get a contiguous block of words when
// declared and lose it when the frame they were declared in is popped.
type Stack struct {
	data   []uint64
	slots  map[form.ID]slot
	frames [][]form.ID
	size   int
}

func NewStack() *Stack {
	return &Stack{slots: make(map[form.ID]slot)}
}

func (s *Stack) PushFrame() {
	s.frames = append(s.frames, nil)
}

// PopFrame releases the forms of the innermost frame, last declared first,
// and zeroes their words. It returns the released ids in declaration order.
func (s *Stack) PopFrame() []form.ID {
	if len(s.frames) == 0 {
		return nil
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	for i := len(top) - 1; i >= 0; i-- {
		s.undeclare(top[i])
	}
	return top
}

func (s *Stack) undeclare(id form.ID) {
	sl, ok := s.slots[id]
	if !ok {
		return
	}
	n := sl.form.Size()
	clear(s.data[sl.offset : sl.offset+n])
	delete(s.slots, id)
	if sl.offset+n == s.size {
		s.size = sl.offset
	}
}

// Declare gives f a block at the end of the allocated words and records it in
// the innermost frame. Declaring a form that is already live does nothing
// and reports false.
func (s *Stack) Declare(f form.Form) (bool, error) {
	if len(s.frames) == 0 {
		return false, ErrNoFrame
	}
	id := f.Identifier()
	if _, ok := s.slots[id]; ok {
		return false, nil
	}
	offset := s.size
	s.size += f.Size()
	if s.size > len(s.data) {
		s.data = slices.Grow(s.data, s.size-len(s.data))[:s.size]
	}
	s.slots[id] = slot{form: f, offset: offset}
	top := len(s.frames) - 1
	s.frames[top] = append(s.frames[top], id)
	return true, nil
}

func (s *Stack) address(id form.ID, offset int) (int, bool) {
	sl, ok := s.slots[id]
	if !ok || offset < 0 || offset >= sl.form.Size() {
		return 0, false
	}
	return sl.offset + offset, true
}

// Read returns the word at offset of form id, or false when the form is not
// live or the offset is outside its block.
func (s *Stack) Read(id form.ID, offset int) (uint64, bool) {
	addr, ok := s.address(id, offset)
	if !ok {
		return 0, false
	}
	return s.data[addr], true
}

func (s *Stack) Write(id form.ID, offset int, word uint64) bool {
	addr, ok := s.address(id, offset)
	if !ok {
		return false
	}
	s.data[addr] = word
	return true
}

func (s *Stack) Get(id form.ID) (form.Form, bool) {
	sl, ok := s.slots[id]
	return sl.form, ok
}

// Offset returns the base word of a live form.
func (s *Stack) Offset(id form.ID) (int, bool) {
	sl, ok := s.slots[id]
	return sl.offset, ok
}

// Forms returns the live forms, outermost frame first, in declaration order.
func (s *Stack) Forms() []form.Form {
	var out []form.Form
	for _, fr := range s.frames {
		for _, id := range fr {
			out = append(out, s.slots[id].form)
		}
	}
	return out
}

// FrameForms returns the forms declared in the innermost frame.
func (s *Stack) FrameForms() []form.Form {
	if len(s.frames) == 0 {
		return nil
	}
	top := s.frames[len(s.frames)-1]
	out := make([]form.Form, 0, len(top))
	for _, id := range top {
		out = append(out, s.slots[id].form)
	}
	return out
}

// Size is the number of allocated words.
func (s *Stack) Size() int { return s.size }

// Depth is the number of open frames.
func (s *Stack) Depth() int { return len(s.frames) }
