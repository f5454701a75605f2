package expr

import (
	"testing"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/stretchr/testify/require"
)

func TestCompareEquality(t *testing.T) {
	schema := catalog.NewSchema("t", catalog.Field{Name: "X", Type: catalog.Int()})
	rec, err := schema.Instantiate(int64(5))
	require.NoError(t, err)
	env := EnvOf(rec)

	pred := Compare{Op: OpEQ, Left: Field("X"), Right: Const(int64(5))}
	ok, err := pred.Eval(env)
	require.NoError(t, err)
	require.True(t, ok)

	pred2 := Compare{Op: OpLT, Left: Field("X"), Right: Const(int64(10))}
	ok, err = pred2.Eval(env)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFieldNotFoundIsEvaluationError(t *testing.T) {
	schema := catalog.NewSchema("t", catalog.Field{Name: "X", Type: catalog.Int()})
	rec, _ := schema.Instantiate(int64(5))
	env := EnvOf(rec)

	pred := Compare{Op: OpEQ, Left: Field("MISSING"), Right: Const(int64(1))}
	_, err := pred.Eval(env)
	require.Error(t, err)
	var notFound *FieldNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestModHashConsistentAcrossEquivalentKeys(t *testing.T) {
	leftSchema := catalog.NewSchema("l", catalog.Field{Name: "PS_PARTKEY", Type: catalog.Int()})
	rightSchema := catalog.NewSchema("r", catalog.Field{Name: "P_PARTKEY", Type: catalog.Int()})

	leftRec, _ := leftSchema.Instantiate(int64(42))
	rightRec, _ := rightSchema.Instantiate(int64(42))

	leftBucket, err := Mod{Field: "PS_PARTKEY", N: 4}.Bucket(EnvOf(leftRec))
	require.NoError(t, err)
	rightBucket, err := Mod{Field: "P_PARTKEY", N: 4}.Bucket(EnvOf(rightRec))
	require.NoError(t, err)

	require.Equal(t, leftBucket, rightBucket)
}
