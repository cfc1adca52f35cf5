package engine

import (
	"context"

	"todosync-cli/internal/model"
)

// Drag is the state of one drag gesture. Each gesture gets its own value, so
// nothing leaks from one gesture into the next.
type Drag struct {
	eng   *Engine
	sched *Scheduler

	dragged string
	over    string
	ended   bool
}

// StartDrag begins a gesture on id and suspends polling until End.
func StartDrag(e *Engine, s *Scheduler, id string) *Drag {
	s.BeginInteraction()
	return &Drag{eng: e, sched: s, dragged: id}
}

func (d *Drag) Dragged() string { return d.dragged }

// Over is the item currently hovered, or "".
func (d *Drag) Over() string { return d.over }

func (d *Drag) Enter(id string) {
	if id != d.dragged {
		d.over = id
	}
}

func (d *Drag) Leave(id string) {
	if d.over == id {
		d.over = ""
	}
}

// Drop moves the dragged item next to target. Dragging downward lands after
// the target, otherwise before it.
func (d *Drag) Drop(ctx context.Context, target string) error {
	d.over = ""
	if d.ended || target == "" || target == d.dragged {
		return nil
	}
	p := d.eng.Placement(d.dragged, target)
	return d.eng.Move(ctx, d.dragged, target, p)
}

// PlacementFor previews where a drop on target would land.
func (d *Drag) PlacementFor(target string) model.Placement {
	return d.eng.Placement(d.dragged, target)
}

// End finishes the gesture; polling resumes after the drag grace delay.
func (d *Drag) End() {
	if d.ended {
		return
	}
	d.ended = true
	d.over = ""
	d.sched.EndDrag()
}
