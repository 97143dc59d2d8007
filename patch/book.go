package patch

// Selection is a patch together with its 1-based display number.
type Selection struct {
	Number int
	Patch  Patch
}

// Book is an ordered patch list with a selection cursor. With no patches the
// cursor is meaningless and every navigation is a no-op.
//
// A Book is owned by a single goroutine and is not safe for concurrent use.
type Book struct {
	patches []Patch
	index   int
}

// NewBook returns a Book positioned on the first patch.
func NewBook(patches []Patch) *Book {
	b := &Book{patches: make([]Patch, len(patches))}
	copy(b.patches, patches)
	return b
}

func (b *Book) Len() int {
	return len(b.patches)
}

// Index returns the 0-based cursor.
func (b *Book) Index() int {
	return b.index
}

// Select moves the cursor to target, clamped into range. It reports false
// when the list is empty or the cursor would not move.
func (b *Book) Select(target int) (Selection, bool) {
	if len(b.patches) == 0 {
		return Selection{}, false
	}
	if target < 0 {
		target = 0
	}
	if target >= len(b.patches) {
		target = len(b.patches) - 1
	}
	if target == b.index {
		return Selection{}, false
	}
	b.index = target
	return b.Current()
}

// Step moves the cursor by delta. Stepping past either end stops at the
// boundary and reports false once already there.
func (b *Book) Step(delta int) (Selection, bool) {
	target := b.index + delta
	if delta > 0 && target < b.index {
		target = len(b.patches) // overflowed; clamp to the last patch
	}
	return b.Select(target)
}

// Current returns the selected patch.
func (b *Book) Current() (Selection, bool) {
	if len(b.patches) == 0 {
		return Selection{}, false
	}
	return Selection{Number: b.index + 1, Patch: b.patches[b.index]}, true
}

// PeekNext returns the patch after the cursor without wrapping.
func (b *Book) PeekNext() (Patch, bool) {
	if b.index+1 >= len(b.patches) {
		return Patch{}, false
	}
	return b.patches[b.index+1], true
}

// PeekPrevious returns the patch before the cursor without wrapping.
func (b *Book) PeekPrevious() (Patch, bool) {
	if b.index == 0 || len(b.patches) == 0 {
		return Patch{}, false
	}
	return b.patches[b.index-1], true
}

// Patches returns a copy of the list.
func (b *Book) Patches() []Patch {
	out := make([]Patch, len(b.patches))
	copy(out, b.patches)
	return out
}
