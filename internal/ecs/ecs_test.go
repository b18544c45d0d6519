package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nameComp string
type massComp struct{ Mass float64 }

func TestStore_WriteReadOverwrite(t *testing.T) {
	s := NewStore()
	e := s.NewEntity()

	_, ok := Read[nameComp](s, e)
	assert.False(t, ok)

	Write(s, e, nameComp("hull"))
	got, ok := Read[nameComp](s, e)
	require.True(t, ok)
	assert.Equal(t, nameComp("hull"), got)

	Write(s, e, nameComp("keel"))
	got, _ = Read[nameComp](s, e)
	assert.Equal(t, nameComp("keel"), got)

	Remove[nameComp](s, e)
	_, ok = Read[nameComp](s, e)
	assert.False(t, ok)
}

func TestStore_WriteToDeadEntityDropped(t *testing.T) {
	s := NewStore()
	e := s.NewEntity()
	s.RemoveEntity(e)

	Write(s, e, nameComp("ghost"))
	_, ok := Read[nameComp](s, e)
	assert.False(t, ok)
	assert.False(t, s.Alive(e))
}

func TestStore_ChildrenWith(t *testing.T) {
	s := NewStore()
	model := s.NewEntity()
	a := s.NewChild(model)
	b := s.NewChild(model)
	c := s.NewChild(model)

	Write(s, a, massComp{1})
	Write(s, c, massComp{3})
	Write(s, b, nameComp("no mass"))

	got := ChildrenWith[massComp](s, model)
	assert.Equal(t, []Entity{a, c}, got)
}

func TestStore_RemoveEntityRecursive(t *testing.T) {
	s := NewStore()
	model := s.NewEntity()
	link := s.NewChild(model)
	collision := s.NewChild(link)
	Write(s, collision, nameComp("box"))

	s.RemoveEntity(model)

	assert.False(t, s.Alive(model))
	assert.False(t, s.Alive(link))
	assert.False(t, s.Alive(collision))
	_, ok := Read[nameComp](s, collision)
	assert.False(t, ok)
}

func TestStore_FirstAndEntitiesWithOrdered(t *testing.T) {
	s := NewStore()
	e1 := s.NewEntity()
	e2 := s.NewEntity()
	e3 := s.NewEntity()
	Write(s, e3, massComp{3})
	Write(s, e1, massComp{1})
	Write(s, e2, massComp{2})

	first, ok := First[massComp](s)
	require.True(t, ok)
	assert.Equal(t, e1, first)
	assert.Equal(t, []Entity{e1, e2, e3}, EntitiesWith[massComp](s))
}
