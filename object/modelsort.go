package qobject

import (
	"fmt"
	"sort"
)

// SortableModel can be implemented by models to use SortModelInserted and
// SortModelUpdated, which keep the rows of a model ordered as they are
// inserted or edited.
type SortableModel interface {
	// Implemented by embedding Model
	ModelDataSource
	Inserted(start, count int)
	Moved(start, count, destination int)

	// RowLess is a less function, equivalent to the sort package
	RowLess(i, j int) bool
	// RowMove should move row 'src' to index 'dst', without emitting signals
	RowMove(src, dst int)
}

// SortModelInserted sorts newly appended rows [start:end] into position
// and emits RowsInserted for each contiguous run of rows. Rows before start
// must already be sorted.
func SortModelInserted(model SortableModel, start, end int) {
	mvStart, mvEnd := -1, -1
	emitCount := 0

	for i := start; i < end; i++ {
		n := sort.Search(i, func(j int) bool { return model.RowLess(i, j) })
		if i != n {
			model.RowMove(i, n)
		}

		if mvStart < 0 && mvEnd < 0 {
			mvStart = n
			mvEnd = n
		} else if n >= mvStart && n <= mvEnd+1 {
			mvEnd = mvEnd + 1
		} else {
			model.Inserted(mvStart, mvEnd-mvStart+1)
			emitCount += (mvEnd - mvStart) + 1
			mvStart = n
			mvEnd = n
		}
	}

	if mvStart >= 0 && mvEnd >= 0 {
		model.Inserted(mvStart, mvEnd-mvStart+1)
		emitCount += (mvEnd - mvStart) + 1
	}

	if emitCount != end-start {
		panic(fmt.Sprintf("emitted inserts for %d rows, insert had %d", emitCount, end-start))
	}
}

// SortModelUpdated moves row back into sorted position after its data
// changed, emitting RowsMoved if it moved. It returns the new index of the
// row.
func SortModelUpdated(model SortableModel, row int) int {
	count := model.RowCount()
	if row < 0 || row >= count {
		return row
	}

	dst := row
	for dst > 0 && model.RowLess(row, dst-1) {
		dst--
	}
	if dst == row {
		for dst < count-1 && model.RowLess(dst+1, row) {
			dst++
		}
	}
	if dst == row {
		return row
	}

	model.RowMove(row, dst)
	model.Moved(row, 1, dst)
	return dst
}
