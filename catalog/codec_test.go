package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func partsuppSchema() Schema {
	return NewSchema("partsupp",
		Field{"PS_PARTKEY", Int()},
		Field{"PS_SUPPKEY", Int()},
		Field{"PS_AVAILQTY", Int()},
		Field{"PS_SUPPLYCOST", Int()},
	)
}

func TestPackUnpackRoundTrip(t *testing.T) {
	s := partsuppSchema()
	b, err := s.Pack(int64(1), int64(10), int64(1), int64(9))
	require.NoError(t, err)

	rec, err := s.Unpack(b)
	require.NoError(t, err)

	v, ok := rec.Get("PS_PARTKEY")
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	repacked, err := s.Pack(rec.Values()...)
	require.NoError(t, err)
	require.Equal(t, b, repacked)
}

func TestSchemaMatchIgnoresNames(t *testing.T) {
	a := NewSchema("a", Field{"X", Int()}, Field{"Y", Int()})
	b := NewSchema("b", Field{"P", Int()}, Field{"Q", Int()})
	require.True(t, a.Match(b))

	c := NewSchema("c", Field{"P", Int()}, Field{"Q", Char(10)})
	require.False(t, a.Match(c))
}

func TestSchemaFieldIndexRequiresExactName(t *testing.T) {
	s := partsuppSchema()
	idx, ok := s.FieldIndex("PS_SUPPKEY")
	require.True(t, ok)
	require.Equal(t, 1, idx)

	_, ok = s.FieldIndex("ps_suppkey")
	require.False(t, ok)
}

func TestCharFieldPadsAndTrims(t *testing.T) {
	s := NewSchema("part", Field{"P_NAME", Char(8)})
	b, err := s.Pack("AB")
	require.NoError(t, err)
	require.Len(t, b, 8)

	rec, err := s.Unpack(b)
	require.NoError(t, err)
	v, _ := rec.Get("P_NAME")
	require.Equal(t, "AB", v)
}

func TestDisjointFieldNames(t *testing.T) {
	a := NewSchema("a", Field{"X", Int()})
	b := NewSchema("b", Field{"Y", Int()})
	require.True(t, a.DisjointFieldNames(b))

	c := NewSchema("c", Field{"X", Int()})
	require.False(t, a.DisjointFieldNames(c))
}
