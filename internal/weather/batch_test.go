package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewBatchCollectsColumnsInFirstSeenOrder(t *testing.T) {
	b := NewBatch([]*Record{
		row("station", "1", "date_time", "x"),
		row("station", "2", "air_temp", 3.0, "date_time", "y"),
	})

	assert.Equal(t, []string{"station", "date_time", "air_temp"}, b.Columns)
	assert.Equal(t, 2, b.Len())
}

func TestBatchMinTime(t *testing.T) {
	t1 := time.Date(2026, 10, 19, 1, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC)
	b := NewBatch([]*Record{
		row("date_time", t1),
		row("date_time", nil),
		row("date_time", t2),
	})

	earliest, ok := b.MinTime("date_time")
	assert.True(t, ok)
	assert.Equal(t, t2, earliest)

	_, ok = NewBatch([]*Record{row("date_time", "unparsed")}).MinTime("date_time")
	assert.False(t, ok)
}

func TestBatchColumnDefs(t *testing.T) {
	b := NewBatch([]*Record{
		row("a", nil, "b", true, "c", time.Now(), "d", int64(4), "e", nil),
		row("a", 1.5, "e", nil),
	})

	assert.Equal(t, []ColumnDef{
		{Name: "a", Type: TypeDouble},
		{Name: "b", Type: TypeBoolean},
		{Name: "c", Type: TypeTimestamp},
		{Name: "d", Type: TypeBigint},
		{Name: "e", Type: TypeVarchar},
	}, b.ColumnDefs(b.Columns))
}

func TestRecordCloneIsIndependent(t *testing.T) {
	r := row("a", 1.0)
	c := r.Clone()
	c.Set("a", 2.0)
	c.Set("b", "x")

	assert.Equal(t, 1.0, r.Value("a"))
	assert.Equal(t, []string{"a"}, r.Keys())
	assert.Equal(t, []string{"a", "b"}, c.Keys())
}
