package params

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diffractcore/pkg/domain"
)

func TestDeclareRejectsDuplicatesAndBadBounds(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("a", 1, Between(0, 2), true, WithUnit("Å")))
	err := s.Declare("a", 1, Unbounded(), false)
	require.ErrorIs(t, err, domain.ErrDuplicateID)

	require.ErrorIs(t, s.Declare("b", 1, Between(3, 2), false), domain.ErrInvalidBounds)
	require.ErrorIs(t, s.Declare("c", 5, Between(0, 2), true), domain.ErrOutOfBounds)
	require.ErrorIs(t, s.Declare("d", math.NaN(), Unbounded(), false), domain.ErrNonFiniteValue)
	// a fixed parameter may sit outside bounds it will only honor once freed
	require.NoError(t, s.Declare("e", 5, Between(0, 2), false))

	p, err := s.Parameter("a")
	require.NoError(t, err)
	require.Equal(t, "Å", p.Unit)
	require.True(t, p.Free)
}

func TestGetUnknown(t *testing.T) {
	s := NewStore()
	_, err := s.Get("missing")
	require.ErrorIs(t, err, domain.ErrUnknownID)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestSetNeverLeavesFreeParameterOutOfBounds(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("occ", 0.5, Between(0, 1), true))
	candidates := []float64{-1, -0.0001, 0, 0.25, 1, 1.0001, 7, math.Inf(1), math.NaN()}
	for _, v := range candidates {
		_ = s.Set("occ", v)
		got, err := s.Get("occ")
		require.NoError(t, err)
		require.GreaterOrEqual(t, got, 0.0)
		require.LessOrEqual(t, got, 1.0)
	}
	require.ErrorIs(t, s.Set("occ", 2), domain.ErrOutOfBounds)
}

func TestSetClippedClipsToBounds(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("x", 0.5, Between(0, 1), true))
	v, err := s.SetClipped("x", 3)
	require.NoError(t, err)
	require.Equal(t, 1.0, v)
	v, err = s.SetClipped("x", -3)
	require.NoError(t, err)
	require.Equal(t, 0.0, v)
	require.False(t, s.CanUndo())
}

func TestTetragonalLinkPropagates(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("cell.a", 5, AtLeast(0), true))
	require.NoError(t, s.Declare("cell.b", 5, AtLeast(0), false))
	require.NoError(t, s.Link("cell.b", "cell.a"))

	require.NoError(t, s.Set("cell.a", 6.0))
	b, err := s.Get("cell.b")
	require.NoError(t, err)
	require.Equal(t, 6.0, b)

	require.ErrorIs(t, s.Set("cell.b", 7), domain.ErrConstraintViolation)
	require.ErrorIs(t, s.SetFree("cell.b", true), domain.ErrConstraintViolation)
}

func TestChainedConstraintsEvaluateInTopologicalOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"d", "c", "b", "a"} {
		require.NoError(t, s.Declare(id, 1, Unbounded(), false))
	}
	require.NoError(t, s.Link("d", "c * 2"))
	require.NoError(t, s.Link("c", "b + 1"))
	require.NoError(t, s.Link("b", "a * 10"))
	require.NoError(t, s.Set("a", 2))

	d, _ := s.Get("d")
	require.Equal(t, 42.0, d)
	require.Equal(t, []string{"b", "c", "d"}, s.EvaluationOrder())
}

func TestLinkRejectsCyclesWithoutMutation(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("a", 1, Unbounded(), true))
	require.NoError(t, s.Declare("b", 2, Unbounded(), false))
	require.NoError(t, s.Declare("c", 3, Unbounded(), false))
	require.NoError(t, s.Link("b", "a"))
	require.NoError(t, s.Link("c", "b"))

	before := s.List()
	err := s.Link("a", "c + 1")
	require.ErrorIs(t, err, domain.ErrCyclicConstraint)
	require.Equal(t, domain.KindConstraint, domain.KindOf(err))
	require.Equal(t, before, s.List())

	require.ErrorIs(t, s.Link("a", "a + 1"), domain.ErrCyclicConstraint)
	require.ErrorIs(t, s.Link("a", "nope"), domain.ErrUnknownID)
	require.ErrorIs(t, s.Link("a", "1 +"), domain.ErrInvalidExpression)
}

func TestLinkRejectsNonFiniteResult(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("zero", 0, Unbounded(), false))
	require.NoError(t, s.Declare("inv", 1, Unbounded(), false))
	require.ErrorIs(t, s.Link("inv", "1 / zero"), domain.ErrNonFiniteOutput)
	p, _ := s.Parameter("inv")
	require.False(t, p.Constrained())
}

func TestSetRollsBackWhenPropagationFails(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("a", 1, Unbounded(), true))
	require.NoError(t, s.Declare("b", 1, Unbounded(), false))
	require.NoError(t, s.Link("b", "1 / a"))
	err := s.Set("a", 0)
	require.ErrorIs(t, err, domain.ErrNonFiniteOutput)
	a, _ := s.Get("a")
	b, _ := s.Get("b")
	require.Equal(t, 1.0, a)
	require.Equal(t, 1.0, b)
}

func TestReevaluateIsIdempotent(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("a", 3.3, Unbounded(), true))
	require.NoError(t, s.Declare("b", 0, Unbounded(), false))
	require.NoError(t, s.Declare("c", 0, Unbounded(), false))
	require.NoError(t, s.Link("b", "sqrt(a) * 1.7"))
	require.NoError(t, s.Link("c", "b / 3 + a"))

	require.NoError(t, s.Reevaluate())
	first := s.List()
	require.NoError(t, s.Reevaluate())
	require.Equal(t, first, s.List())
}

func TestUnlinkKeepsValue(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("a", 4, Unbounded(), true))
	require.NoError(t, s.Declare("b", 0, Unbounded(), false))
	require.NoError(t, s.Link("b", "a / 2"))
	require.NoError(t, s.Unlink("b"))
	require.NoError(t, s.Set("a", 10))
	b, _ := s.Get("b")
	require.Equal(t, 2.0, b)
	require.Empty(t, s.Dependents("a"))
}

func TestRemoveRefusesReferencedParameter(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("a", 4, Unbounded(), true))
	require.NoError(t, s.Declare("b", 0, Unbounded(), false))
	require.NoError(t, s.Link("b", "a"))
	require.ErrorIs(t, s.Remove("a"), domain.ErrParameterInUse)
	require.NoError(t, s.RemoveAll([]string{"a", "b"}))
	require.Equal(t, 0, s.Len())
}

func TestSetBoundsAndFree(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("a", 4, Unbounded(), false))
	require.NoError(t, s.SetBounds("a", Between(0, 3)))
	require.ErrorIs(t, s.SetFree("a", true), domain.ErrOutOfBounds)
	require.NoError(t, s.Set("a", 2))
	require.NoError(t, s.SetFree("a", true))
	require.ErrorIs(t, s.SetBounds("a", Between(5, 6)), domain.ErrOutOfBounds)
	require.Equal(t, []string{"a"}, s.FreeIDs())
}

func TestUndoRedo(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("a", 1, Unbounded(), true))
	require.NoError(t, s.Declare("b", 0, Unbounded(), false))
	require.NoError(t, s.Set("a", 2))
	require.NoError(t, s.Link("b", "a * 3"))

	label, err := s.Undo()
	require.NoError(t, err)
	require.Equal(t, "link b", label)
	p, _ := s.Parameter("b")
	require.False(t, p.Constrained())
	require.Equal(t, 0.0, p.Value)

	_, err = s.Undo()
	require.NoError(t, err)
	a, _ := s.Get("a")
	require.Equal(t, 1.0, a)
	_, err = s.Undo()
	require.True(t, errors.Is(err, ErrNothingToUndo))

	_, err = s.Redo()
	require.NoError(t, err)
	_, err = s.Redo()
	require.NoError(t, err)
	b, _ := s.Get("b")
	require.Equal(t, 6.0, b)
}

func TestRecordGroupsSeveralChangesIntoOneStep(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("x", 1, Unbounded(), true))
	require.NoError(t, s.Declare("y", 1, Unbounded(), true))
	snap, err := s.Capture("x", "y")
	require.NoError(t, err)
	_, _ = s.SetClipped("x", 5)
	_, _ = s.SetClipped("y", 6)
	require.NoError(t, s.Record("fit", snap))

	label, err := s.Undo()
	require.NoError(t, err)
	require.Equal(t, "fit", label)
	x, _ := s.Get("x")
	y, _ := s.Get("y")
	require.Equal(t, 1.0, x)
	require.Equal(t, 1.0, y)
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("a", 1, Unbounded(), true))
	require.NoError(t, s.Declare("b", 0, Unbounded(), false))
	require.NoError(t, s.Link("b", "a + 1"))
	cp := s.Clone()
	require.NoError(t, cp.Set("a", 10))
	b, _ := s.Get("b")
	require.Equal(t, 2.0, b)
	cb, _ := cp.Get("b")
	require.Equal(t, 11.0, cb)
}

func TestForkKeepsHistory(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("a", 1, Unbounded(), true))
	require.NoError(t, s.Set("a", 2))

	fork := s.Fork()
	require.True(t, fork.CanUndo())
	_, err := fork.Undo()
	require.NoError(t, err)
	a, _ := fork.Get("a")
	require.Equal(t, 1.0, a)

	orig, _ := s.Get("a")
	require.Equal(t, 2.0, orig)
	require.True(t, s.CanUndo())
	require.False(t, s.CanRedo())
	require.False(t, s.Clone().CanUndo())
}

func TestRecordsRoundTrip(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("c", 0, Unbounded(), false))
	require.NoError(t, s.Declare("a", 5, Between(1, 10), true, WithUnit("Å")))
	require.NoError(t, s.Declare("b", 0, AtLeast(0), false))
	require.NoError(t, s.Link("b", "a"))
	require.NoError(t, s.Link("c", "b * 2"))

	restored, err := FromRecords(s.Export())
	require.NoError(t, err)
	require.Equal(t, s.List(), restored.List())
	require.NoError(t, restored.Set("a", 7))
	c, _ := restored.Get("c")
	require.Equal(t, 14.0, c)
}

func TestConcurrentReadersDuringWrites(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("a", 1, Between(0, 100), true))
	require.NoError(t, s.Declare("b", 2, Unbounded(), false))
	require.NoError(t, s.Link("b", "a * 2"))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = s.Set("a", float64(i%100))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			list := s.List()
			assert.Equal(t, list[0].Value*2, list[1].Value)
		}
	}()
	wg.Wait()
}

func TestSetClippedAllIsAtomic(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("a", 1, Between(0, 10), true))
	require.NoError(t, s.Declare("b", 1, Unbounded(), true))
	require.NoError(t, s.Declare("c", 0, Unbounded(), false))
	require.NoError(t, s.Link("c", "b + 1"))

	got, err := s.SetClippedAll([]string{"a", "b"}, []float64{20, 3})
	require.NoError(t, err)
	require.Equal(t, []float64{10, 3}, got)
	c, _ := s.Get("c")
	require.Equal(t, 4.0, c)

	_, err = s.SetClippedAll([]string{"a", "c"}, []float64{5, 5})
	require.True(t, errors.Is(err, domain.ErrConstraintViolation), "got %v", err)
	a, _ := s.Get("a")
	require.Equal(t, 10.0, a)

	_, err = s.SetClippedAll([]string{"a"}, []float64{1, 2})
	require.True(t, errors.Is(err, domain.ErrMalformedData), "got %v", err)
}

func TestReadersNeverSeeHalfWrittenVector(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("a", 0, Unbounded(), true))
	require.NoError(t, s.Declare("b", 0, Unbounded(), true))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			v := float64(i)
			_, _ = s.SetClippedAll([]string{"a", "b"}, []float64{v, v})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			cp := s.Clone()
			a, _ := cp.Get("a")
			b, _ := cp.Get("b")
			assert.Equal(t, a, b)
		}
	}()
	wg.Wait()
}

func TestFailedUndoLeavesStoreUntouched(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Declare("x", 1, Unbounded(), true))
	require.NoError(t, s.Declare("y", 1, Unbounded(), true))
	snap, err := s.Capture("x", "y")
	require.NoError(t, err)
	snap[1].Constraint = "missing + 1"
	_, _ = s.SetClipped("x", 5)
	_, _ = s.SetClipped("y", 6)
	require.NoError(t, s.Record("fit", snap))
	before := s.List()

	_, err = s.Undo()
	require.Error(t, err)
	require.Equal(t, before, s.List())
	require.True(t, s.CanUndo())
	require.False(t, s.CanRedo())
	require.NoError(t, s.Set("x", 7))
	x, _ := s.Get("x")
	require.Equal(t, 7.0, x)
}
