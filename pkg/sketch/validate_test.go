package sketch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCleanSketch(t *testing.T) {
	s := newSolver(t)
	p1 := addPoint(t, s, 0, 0)
	p2 := addPoint(t, s, 1, 0)
	l := addLine(t, s, p1, p2)
	addCircle(t, s, p1, 2)
	constrain(t, s, Horizontal, []ID{l})
	assert.Empty(t, s.Check())
}

func TestCheckDanglingReferences(t *testing.T) {
	s := newSolver(t)
	p1 := addPoint(t, s, 0, 0)
	p2 := addPoint(t, s, 1, 0)
	l := addLine(t, s, p1, p2)
	constrain(t, s, Horizontal, []ID{l})

	// Bypass the cascade to corrupt the graph.
	delete(s.st.entities, p2)
	s.ov.set(p2, 0, 0)

	errs := s.Check()
	require.Len(t, errs, 2)
	assert.Equal(t, l, errs[0].Entity)
	assert.Equal(t, SeverityError, errs[0].Severity)
	assert.Contains(t, errs[0].Message, "does not exist")
	assert.Equal(t, p2, errs[1].Entity, "overlay entry for a missing point")
}

func TestCheckConstraintRefs(t *testing.T) {
	s := newSolver(t)
	p1 := addPoint(t, s, 0, 0)
	l := addLine(t, s, p1, addPoint(t, s, 1, 0))
	cid := constrain(t, s, PointOnLine, []ID{p1, l})

	s.st.constraints[cid].Entities = []ID{l, p1}
	errs := s.Check()
	require.Len(t, errs, 1)
	assert.Equal(t, cid, errs[0].Constraint)
	assert.Contains(t, errs[0].Error(), "does not accept stored selection")

	s.st.constraints[cid].Entities = []ID{p1, ID(1 << 60)}
	errs = s.Check()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "does not exist")
}

func TestCheckGeometry(t *testing.T) {
	s := newSolver(t)
	p := addPoint(t, s, 0, 0)
	c := addCircle(t, s, p, 1)
	s.st.put(Circle{ID: c, Center: p, Radius: -1})
	q := addPoint(t, s, 1, 0)
	a, err := s.AddArc(p, q, q, true)
	require.NoError(t, err)

	errs := s.Check()
	require.Len(t, errs, 2)
	assert.Equal(t, c, errs[0].Entity)
	assert.Equal(t, SeverityError, errs[0].Severity)
	assert.Equal(t, a, errs[1].Entity)
	assert.Equal(t, SeverityWarning, errs[1].Severity)
}

func TestCheckDuplicateConstraints(t *testing.T) {
	s := newSolver(t)
	p1 := addPoint(t, s, 0, 0)
	p2 := addPoint(t, s, 1, 1)
	first := constrain(t, s, Coincident, []ID{p1, p2})
	dup := constrain(t, s, Coincident, []ID{p2, p1})
	constrain(t, s, Distance, []ID{p1, p2}, AsReference())

	errs := s.Check()
	require.Len(t, errs, 1)
	assert.Equal(t, dup, errs[0].Constraint)
	assert.Equal(t, SeverityWarning, errs[0].Severity)
	assert.Contains(t, errs[0].Message, first.String())
}
