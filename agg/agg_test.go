package agg

import (
	"testing"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/stretchr/testify/require"
)

func TestCountSteps(t *testing.T) {
	schema := catalog.NewSchema("t", catalog.Field{Name: "X", Type: catalog.Int()})
	c := Count()
	acc := c.Init
	for i := 0; i < 3; i++ {
		rec, _ := schema.Instantiate(int64(i))
		acc = c.Step(acc, rec)
	}
	require.Equal(t, int64(3), c.Finalize(acc))
}

func TestSumAndAvg(t *testing.T) {
	schema := catalog.NewSchema("t", catalog.Field{Name: "X", Type: catalog.Int()})
	sum := Sum("X")
	avg := Avg("X")
	sumAcc := sum.Init
	avgAcc := avg.Init
	for _, v := range []int64{1, 2, 3} {
		rec, _ := schema.Instantiate(v)
		sumAcc = sum.Step(sumAcc, rec)
		avgAcc = avg.Step(avgAcc, rec)
	}
	require.Equal(t, float64(6), sum.Finalize(sumAcc))
	require.Equal(t, float64(2), avg.Finalize(avgAcc))
}

func TestMinMax(t *testing.T) {
	schema := catalog.NewSchema("t", catalog.Field{Name: "X", Type: catalog.Int()})
	min := Min("X")
	max := Max("X")
	minAcc := min.Init
	maxAcc := max.Init
	for _, v := range []int64{5, 1, 9} {
		rec, _ := schema.Instantiate(v)
		minAcc = min.Step(minAcc, rec)
		maxAcc = max.Step(maxAcc, rec)
	}
	require.Equal(t, float64(1), min.Finalize(minAcc))
	require.Equal(t, float64(9), max.Finalize(maxAcc))
}

func TestValidateArity(t *testing.T) {
	aggSchema := catalog.NewSchema("agg", catalog.Field{Name: "CNT", Type: catalog.Int()})
	require.NoError(t, ValidateArity([]Expr{Count()}, aggSchema))
	require.Error(t, ValidateArity([]Expr{Count(), Count()}, aggSchema))
}
