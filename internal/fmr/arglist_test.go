package fmr

import (
	"errors"
	"testing"
)

func TestArgumentListAppendAndIterate(t *testing.T) {
	l := NewArgumentList()
	if err := l.Append(10, TypeU8); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(0xBEEF, TypeU16); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if l.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", l.Count())
	}

	var got []Type
	l.Iterate(func(ty Type, v Value) bool {
		got = append(got, ty)
		return true
	})
	if len(got) != 2 || got[0] != TypeU8 || got[1] != TypeU16 {
		t.Errorf("Iterate order/types wrong: %v", got)
	}
}

func TestArgumentListIllegalType(t *testing.T) {
	l := NewArgumentList()
	err := l.Append(1, Type(200))
	var fe *Error
	if !errors.As(err, &fe) || fe.Kind != KindIllegalType {
		t.Fatalf("expected KindIllegalType, got %v", err)
	}
	if l.Count() != 0 {
		t.Errorf("list length changed after rejected append: %d", l.Count())
	}
}

func TestArgumentListOverflow(t *testing.T) {
	l := NewArgumentList()
	for i := 0; i < MaxArgs; i++ {
		if err := l.Append(uint64(i), TypeU8); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}
	err := l.Append(99, TypeU8)
	var fe *Error
	if !errors.As(err, &fe) || fe.Kind != KindOverflow {
		t.Fatalf("expected KindOverflow on 17th append, got %v", err)
	}
	if l.Count() != MaxArgs {
		t.Errorf("Count() = %d, want %d", l.Count(), MaxArgs)
	}
}

func TestArgumentListReleaseNilIsNoop(t *testing.T) {
	var l *ArgumentList
	l.Release() // must not panic

	l2 := NewArgumentList()
	_ = l2.Append(1, TypeU8)
	l2.Release()
	l2.Release() // idempotent
	if l2.Count() != 0 {
		t.Errorf("Count() after double release = %d, want 0", l2.Count())
	}
}
