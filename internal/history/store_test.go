package history

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/keepclip/internal/entry"
)

type recorder struct {
	saves [][]entry.Entry
	err   error
}

func (r *recorder) Save(entries []entry.Entry) error {
	cp := make([]entry.Entry, len(entries))
	copy(cp, entries)
	r.saves = append(r.saves, cp)
	return r.err
}

func texts(entries []entry.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func TestInsertEvictsOldest(t *testing.T) {
	rec := &recorder{}
	s := New(3, rec)
	for i, v := range []string{"x", "y", "z", "w"} {
		require.True(t, s.Insert(entry.NewText(v, float64(i+1))))
	}
	assert.Equal(t, []string{"w", "z", "y"}, texts(s.Snapshot()))
	assert.Len(t, rec.saves, 4)
	assert.Equal(t, []string{"w", "z", "y"}, texts(rec.saves[3]))
}

func TestInsertDropsDuplicates(t *testing.T) {
	rec := &recorder{}
	s := New(10, rec)

	require.True(t, s.Insert(entry.NewText("x", 1)))
	require.True(t, s.Insert(entry.NewText("y", 2)))
	assert.False(t, s.Insert(entry.NewText("x", 3)), "duplicate is dropped")

	snap := s.Snapshot()
	assert.Equal(t, []string{"y", "x"}, texts(snap), "duplicate is not promoted")
	assert.Equal(t, 1.0, snap[1].Timestamp, "first capture wins")
	assert.Len(t, rec.saves, 2, "rejected insert does not save")

	files := []string{"/a", "/b"}
	require.True(t, s.Insert(entry.NewFiles(files, 4)))
	assert.False(t, s.Insert(entry.NewFiles([]string{"/a", "/b"}, 5)))
	assert.True(t, s.Insert(entry.NewFiles([]string{"/b", "/a"}, 6)), "order matters")
	assert.True(t, s.Insert(entry.NewText("/a", 7)), "kinds never collide")
}

func TestInsertImagesByFingerprint(t *testing.T) {
	s := New(10, nil)
	a := entry.Entry{Kind: entry.KindImage, Image: []byte{1}, Fingerprint: "fp"}
	b := entry.Entry{Kind: entry.KindImage, Image: []byte{2}, Fingerprint: "fp"}
	require.True(t, s.Insert(a))
	assert.False(t, s.Insert(b))
}

func TestInsertRejectsEmpty(t *testing.T) {
	s := New(10, nil)
	assert.False(t, s.Insert(entry.Entry{Kind: entry.KindText}))
	assert.Zero(t, s.Len())
}

func TestCapacityInvariantRandomized(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	s := New(5, nil)
	for i := 0; i < 500; i++ {
		switch r.IntN(10) {
		case 0:
			s.SetCapacity(r.IntN(12) - 1)
		case 1:
			if e, ok := s.At(r.IntN(6)); ok {
				s.Remove(e.ID)
			}
		default:
			s.Insert(entry.NewText(string(rune('a'+r.IntN(20))), float64(i)))
		}
		require.LessOrEqual(t, s.Len(), s.Capacity())
		snap := s.Snapshot()
		for j := range snap {
			require.False(t, IsDuplicate(snap[j], snap[j+1:]))
		}
	}
}

func TestSetCapacity(t *testing.T) {
	rec := &recorder{}
	s := New(3, rec)
	for i, v := range []string{"x", "y", "z", "w"} {
		s.Insert(entry.NewText(v, float64(i)))
	}
	saves := len(rec.saves)

	assert.Equal(t, 2, s.SetCapacity(2))
	assert.Equal(t, []string{"w", "z"}, texts(s.Snapshot()))
	assert.Len(t, rec.saves, saves+1, "eviction triggers a save")

	assert.Equal(t, 50, s.SetCapacity(50))
	assert.Len(t, rec.saves, saves+1, "growing does not save")

	assert.Equal(t, MaxCapacity, s.SetCapacity(1000))
	assert.Equal(t, MinCapacity, s.SetCapacity(0))
	assert.Equal(t, []string{"w"}, texts(s.Snapshot()))
}

func TestRemoveByIdentity(t *testing.T) {
	rec := &recorder{}
	s := New(10, rec)
	a := entry.NewText("a", 1)
	b := entry.NewText("b", 2)
	s.Insert(a)
	s.Insert(b)

	assert.True(t, s.Remove(a.ID))
	assert.Equal(t, []string{"b"}, texts(s.Snapshot()))

	saves := len(rec.saves)
	assert.False(t, s.Remove(a.ID))
	assert.False(t, s.Remove(entry.NewText("b", 3).ID), "equal content but different identity")
	assert.Len(t, rec.saves, saves)
}

func TestClear(t *testing.T) {
	rec := &recorder{}
	s := New(10, rec)
	s.Insert(entry.NewText("a", 1))
	s.Clear()
	assert.Zero(t, s.Len())
	require.Len(t, rec.saves, 2)
	assert.Empty(t, rec.saves[1])
}

func TestSaveFailureKeepsMemory(t *testing.T) {
	rec := &recorder{err: errors.New("disk full")}
	s := New(10, rec)
	require.True(t, s.Insert(entry.NewText("a", 1)))
	assert.Equal(t, 1, s.Len())
	assert.EqualError(t, s.LastSaveError(), "disk full")

	rec.err = nil
	s.Insert(entry.NewText("b", 2))
	assert.NoError(t, s.LastSaveError(), "next mutation retries")
	assert.Equal(t, []string{"b", "a"}, texts(rec.saves[1]))
}

func TestReplace(t *testing.T) {
	rec := &recorder{}
	s := New(2, rec)
	s.Replace([]entry.Entry{
		entry.NewText("a", 3),
		entry.NewText("a", 2),
		{Kind: entry.KindText},
		entry.NewText("b", 1),
		entry.NewText("c", 0),
	})
	assert.Equal(t, []string{"a", "b"}, texts(s.Snapshot()))
	assert.Empty(t, rec.saves)
}

func TestLookups(t *testing.T) {
	s := New(10, nil)
	a := entry.NewText("a", 1)
	s.Insert(a)

	got, ok := s.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, "a", got.Text)

	got, ok = s.At(0)
	require.True(t, ok)
	assert.Equal(t, a.ID, got.ID)

	_, ok = s.At(1)
	assert.False(t, ok)
	_, ok = s.At(-1)
	assert.False(t, ok)
}

func TestSnapshotIsCopy(t *testing.T) {
	s := New(10, nil)
	s.Insert(entry.NewText("a", 1))
	snap := s.Snapshot()
	snap[0].Text = "mutated"
	assert.Equal(t, "a", s.Snapshot()[0].Text)
}
