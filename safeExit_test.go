package main

import (
	"reflect"
	"testing"
)

func TestSafeExit_RunsInReverseOnce(t *testing.T) {
	s := NewSafeExit()
	var order []int
	s.Register(func() { order = append(order, 1) })
	s.Register(func() { order = append(order, 2) })

	s.Exit()
	s.Exit()

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed")
	}
	if !reflect.DeepEqual(order, []int{2, 1}) {
		t.Errorf("order = %v, want [2 1]", order)
	}
}
