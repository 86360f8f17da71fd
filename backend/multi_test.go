package backend

import (
	"testing"
)

func TestMultiRelaysChildren(t *testing.T) {
	m := NewMulti()
	a, b := NewHeadless(), NewHeadless()
	if !m.Add(a) || !m.Add(b) {
		t.Fatal("Add() = false")
	}
	if m.Add(a) {
		t.Error("Add() accepted a child twice")
	}

	var names []string
	m.Events().NewOutput.Subscribe(func(d *OutputDescriptor) { names = append(names, d.Name) })

	a.AddOutput(100, 100)
	if !m.Start() {
		t.Fatal("Start() = false")
	}
	b.AddOutput(200, 200)

	if len(names) != 2 {
		t.Fatalf("relayed %d outputs, want 2: %v", len(names), names)
	}
}

func TestMultiAddAfterStartStartsChild(t *testing.T) {
	m := NewMulti()
	m.Start()

	h := NewHeadless()
	h.AddOutput(64, 64)

	got := 0
	m.Events().NewOutput.Subscribe(func(*OutputDescriptor) { got++ })

	if !m.Add(h) {
		t.Fatal("Add() = false")
	}
	if got != 1 {
		t.Errorf("late child announced %d outputs, want 1", got)
	}

	failing := &fakeImpl{startOK: false}
	if m.Add(failing) {
		t.Error("Add() = true for a child that fails to start")
	}
	if children := m.Children(); len(children) != 1 || children[0] != h {
		t.Errorf("Children() = %v, want only the started child", children)
	}
	failing.events.NewOutput.Emit(&OutputDescriptor{Name: "STRAY-1"})
	if got != 1 {
		t.Errorf("detached child still relayed: %d outputs", got)
	}
	if failing.destroys != 0 {
		t.Error("Add destroyed a child it does not own")
	}
}

func TestMultiStartFailsIfChildFails(t *testing.T) {
	m := NewMulti()
	ok := &fakeImpl{startOK: true}
	bad := &fakeImpl{startOK: false}
	m.Add(ok)
	m.Add(bad)

	if m.Start() {
		t.Error("Start() = true with a failing child")
	}
	if ok.starts != 1 || bad.starts != 1 {
		t.Errorf("starts = %d, %d; want 1, 1", ok.starts, bad.starts)
	}
}

func TestMultiChildSelfDestroyDetaches(t *testing.T) {
	m := NewMulti()
	child := &fakeImpl{startOK: true}
	m.Add(child)
	m.Add(NewHeadless())

	child.Destroy()

	if got := len(m.Children()); got != 1 {
		t.Fatalf("Children() = %d after self-destroy, want 1", got)
	}
	m.Destroy()
	if child.destroys != 1 {
		t.Errorf("self-destroyed child destroyed %d times, want 1", child.destroys)
	}
}

func TestMultiDestroy(t *testing.T) {
	m := NewMulti()
	first := &fakeImpl{startOK: true}
	second := &fakeImpl{startOK: true}
	m.Add(first)
	m.Add(second)

	var order []*fakeImpl
	first.events.Destroy.Subscribe(func(struct{}) { order = append(order, first) })
	second.events.Destroy.Subscribe(func(struct{}) { order = append(order, second) })

	signalled := false
	m.Events().Destroy.Subscribe(func(struct{}) {
		signalled = true
		if first.destroys+second.destroys != 0 {
			t.Error("children released before the multi destroy signal")
		}
	})

	m.Destroy()
	m.Destroy()

	if !signalled {
		t.Error("Destroy signal not fired")
	}
	if len(order) != 2 || order[0] != second || order[1] != first {
		t.Error("children not destroyed in reverse insertion order")
	}
	if first.destroys != 1 || second.destroys != 1 {
		t.Errorf("destroys = %d, %d; want 1, 1", first.destroys, second.destroys)
	}
	if !m.Empty() {
		t.Error("Empty() = false after Destroy")
	}
	if m.Start() {
		t.Error("Start() = true after Destroy")
	}
}

func TestMultiLastChildSelfDestroy(t *testing.T) {
	m := NewMulti()
	child := &fakeImpl{startOK: true}
	m.Add(child)

	fired := 0
	m.Events().Destroy.Subscribe(func(struct{}) { fired++ })

	child.Destroy()

	if fired != 1 {
		t.Errorf("multi Destroy fired %d times, want 1", fired)
	}
	if m.Start() {
		t.Error("Start() = true after the last child went away")
	}
}
