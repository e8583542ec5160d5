// iterator.go - Directive iteration state machine.
// Copyright (C) 2026  igo95862.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package directive

// Continuation produces the directives that follow a placeholder once the
// runner has supplied the path it asked for.
type Continuation func(path string) []Directive

type step struct {
	dir  Directive
	cont Continuation
}

// Iterator is an explicit state machine over a slice and a cursor. A
// service builds one with Builder, and the runner drains it with
// Next/Resume, substituting runner-owned paths at placeholder steps.
type Iterator struct {
	steps []step
	pos   int
}

// Next returns the next directive in sequence, or ok=false when exhausted.
// When the returned directive is a WantsHomeBind or WantsDbusSessionBind,
// the caller must call Resume before calling Next again.
func (it *Iterator) Next() (Directive, bool) {
	if it.pos >= len(it.steps) {
		return nil, false
	}
	d := it.steps[it.pos].dir
	it.pos++
	return d, true
}

// Resume supplies the runner-owned path requested by the placeholder most
// recently returned by Next, splicing the continuation's directives into
// the remaining sequence. It is a no-op if the last directive returned was
// not a placeholder.
func (it *Iterator) Resume(path string) {
	if it.pos == 0 || it.pos > len(it.steps) {
		return
	}
	prev := it.steps[it.pos-1]
	if prev.cont == nil {
		return
	}
	extra := prev.cont(path)
	extraSteps := make([]step, len(extra))
	for i, d := range extra {
		extraSteps[i] = step{dir: d}
	}
	rest := append([]step{}, it.steps[it.pos:]...)
	it.steps = append(it.steps[:it.pos], extraSteps...)
	it.steps = append(it.steps, rest...)
}

// Builder accumulates steps for a service's IterBwrapOptions implementation.
type Builder struct {
	steps []step
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Add appends a concrete directive.
func (b *Builder) Add(d Directive) *Builder {
	b.steps = append(b.steps, step{dir: d})
	return b
}

// AddAll appends a sequence of concrete directives.
func (b *Builder) AddAll(ds ...Directive) *Builder {
	for _, d := range ds {
		b.Add(d)
	}
	return b
}

// AddHomeBindRequest appends a WantsHomeBind placeholder; cont is invoked
// with the instance home path when the runner resumes.
func (b *Builder) AddHomeBindRequest(cont Continuation) *Builder {
	b.steps = append(b.steps, step{dir: WantsHomeBind{}, cont: cont})
	return b
}

// AddDbusSessionBindRequest appends a WantsDbusSessionBind placeholder;
// cont is invoked with the session proxy socket path when the runner
// resumes.
func (b *Builder) AddDbusSessionBindRequest(cont Continuation) *Builder {
	b.steps = append(b.steps, step{dir: WantsDbusSessionBind{}, cont: cont})
	return b
}

// Build finalizes the Iterator. The Builder must not be reused afterward.
func (b *Builder) Build() *Iterator {
	return &Iterator{steps: b.steps}
}

// Collect drains it fully, auto-resuming any placeholder with resolve. It is
// a convenience for tests and for services with no placeholders of their
// own to worry about.
func Collect(it *Iterator, resolve func(Directive) (string, bool)) []Directive {
	var out []Directive
	for {
		d, ok := it.Next()
		if !ok {
			return out
		}
		if path, needsResume := resolve(d); needsResume {
			it.Resume(path)
			continue
		}
		out = append(out, d)
	}
}
